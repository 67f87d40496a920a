package transport

import (
	"crypto/subtle"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/doeshing/phishnet-go/internal/domain"
)

// AccessPolicy keeps web pages the user happens to visit away from /api/v1.
// Browser callers must present an allowed Origin; the server's own pages
// (the interstitial) are always allowed, anything else needs the API key
// when one is configured.
type AccessPolicy struct {
	own     map[string]struct{}
	allowed map[string]struct{}
	apiKey  string
}

// NewAccessPolicy derives the server's own origins from the listen address
// and the interstitial URL.
func NewAccessPolicy(settings domain.ServerSettings) *AccessPolicy {
	p := &AccessPolicy{
		own:     make(map[string]struct{}),
		allowed: make(map[string]struct{}),
		apiKey:  strings.TrimSpace(settings.APIKey),
	}
	if o := originOf(settings.InterstitialURL); o != "" {
		p.own[o] = struct{}{}
	}
	if settings.Listen != "" {
		if o := originOf("http://" + settings.Listen); o != "" {
			p.own[o] = struct{}{}
		}
	}
	for _, raw := range settings.AllowedOrigins {
		if o := originOf(raw); o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

func originOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// AllowOrigin reports whether a browser origin may call the API. An empty
// origin means a non-browser client.
func (p *AccessPolicy) AllowOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	o := originOf(origin)
	if o == "" {
		return false
	}
	if _, ok := p.own[o]; ok {
		return true
	}
	_, ok := p.allowed[o]
	return ok
}

func (p *AccessPolicy) ownOrigin(origin string) bool {
	_, ok := p.own[originOf(origin)]
	return origin != "" && ok
}

// Middleware rejects foreign origins (403), missing keys (401) and request
// bodies that are not JSON (415).
func (p *AccessPolicy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !p.AllowOrigin(origin) {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "origin not allowed"})
			return
		}
		if p.apiKey != "" && !p.ownOrigin(origin) && !p.keyMatches(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		if carriesBody(r.Method) && !isJSON(r.Header.Get("Content-Type")) {
			writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "content type must be application/json"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// keyMatches accepts the key header, or a key query parameter on websocket
// upgrades since browsers cannot set headers there.
func (p *AccessPolicy) keyMatches(r *http.Request) bool {
	key := r.Header.Get(domain.APIKeyHeader)
	if key == "" && websocket.IsWebSocketUpgrade(r) {
		key = r.URL.Query().Get("key")
	}
	return key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(p.apiKey)) == 1
}

func carriesBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
