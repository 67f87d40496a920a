package ignore

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/doeshing/phishnet-go/internal/domain"
)

// Matcher decides which navigation targets are never intercepted: internal
// browser pages, the extension's own pages, and the local debug path.
type Matcher struct {
	schemes     map[string]struct{}
	debugHost   string
	debugPrefix string
	ownPages    []ownPage
	patterns    []*regexp.Regexp
}

// ownPage identifies a page by scheme, host and exact path; its query varies.
type ownPage struct {
	scheme string
	host   string
	path   string
}

func parseOwnPage(raw string) (ownPage, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ownPage{}, false
	}
	return ownPage{scheme: strings.ToLower(u.Scheme), host: strings.ToLower(u.Host), path: cleanPath(u.Path)}, true
}

func (p ownPage) matches(u *url.URL) bool {
	return u.User == nil &&
		strings.EqualFold(u.Scheme, p.scheme) &&
		strings.EqualFold(u.Host, p.host) &&
		cleanPath(u.Path) == p.path
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// DefaultSchemes are browser-internal schemes skipped by default.
func DefaultSchemes() []string {
	return []string{"chrome", "edge", "about", "chrome-extension"}
}

// NewMatcher compiles settings. ownPages lists pages served by this system
// (the interstitial view) that must never be scanned, whatever their query.
func NewMatcher(settings domain.IgnoreSettings, ownPages ...string) (*Matcher, error) {
	schemes := settings.Schemes
	if len(schemes) == 0 {
		schemes = DefaultSchemes()
	}
	m := &Matcher{
		schemes:     make(map[string]struct{}, len(schemes)),
		debugHost:   strings.ToLower(settings.DebugHost),
		debugPrefix: settings.DebugPathPrefix,
	}
	for _, s := range schemes {
		s = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), ":"))
		if s != "" {
			m.schemes[s] = struct{}{}
		}
	}
	for _, raw := range ownPages {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		page, ok := parseOwnPage(raw)
		if !ok {
			return nil, fmt.Errorf("own page %q must be an absolute URL", raw)
		}
		m.ownPages = append(m.ownPages, page)
	}
	for _, pattern := range settings.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// ShouldIgnore reports whether raw bypasses the gate. Targets that do not
// parse as absolute URLs are ignored as well.
func (m *Matcher) ShouldIgnore(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return true
	}
	if _, ok := m.schemes[strings.ToLower(parsed.Scheme)]; ok {
		return true
	}
	for _, page := range m.ownPages {
		if page.matches(parsed) {
			return true
		}
	}
	if m.debugHost != "" && m.debugPrefix != "" &&
		strings.EqualFold(parsed.Hostname(), m.debugHost) &&
		strings.HasPrefix(parsed.Path, m.debugPrefix) {
		return true
	}
	for _, re := range m.patterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}
