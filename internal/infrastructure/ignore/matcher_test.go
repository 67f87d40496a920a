package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/phishnet-go/internal/domain"
)

func newDefaultMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher(domain.IgnoreSettings{
		DebugHost:       "localhost",
		DebugPathPrefix: "/_",
		Patterns:        []string{`^https://intranet\.corp/`},
	}, "http://127.0.0.1:8787/warning?url=x")
	require.NoError(t, err)
	return m
}

func TestMatcherIgnoresInternalTargets(t *testing.T) {
	m := newDefaultMatcher(t)
	for _, target := range []string{
		"chrome://settings",
		"edge://flags",
		"about:blank",
		"chrome-extension://abcdef/warning.html?url=https%3A%2F%2Fx",
		"http://localhost:3000/_next/static/chunk.js",
		"http://127.0.0.1:8787/warning?url=https%3A%2F%2Fevil&verdict=MALICIOUS&tabId=3",
		"HTTP://127.0.0.1:8787/warning#top",
		"https://intranet.corp/wiki",
		"",
		"not a url",
	} {
		assert.True(t, m.ShouldIgnore(target), target)
	}
}

func TestMatcherInterceptsRegularTargets(t *testing.T) {
	m := newDefaultMatcher(t)
	for _, target := range []string{
		"https://example.com/",
		"http://localhost:3000/app",
		"https://login.phish.example/_session",
	} {
		assert.False(t, m.ShouldIgnore(target), target)
	}
}

func TestMatcherOwnPageIsExactPath(t *testing.T) {
	m := newDefaultMatcher(t)
	for _, target := range []string{
		"http://127.0.0.1:8787/warning-anything",
		"http://127.0.0.1:8787/warning/extra",
		"https://127.0.0.1:8787/warning",
		"http://127.0.0.1:9999/warning",
		"http://user@127.0.0.1:8787/warning",
		"https://evil.example/?next=http://127.0.0.1:8787/warning",
	} {
		assert.False(t, m.ShouldIgnore(target), target)
	}
}

func TestMatcherRejectsBadPattern(t *testing.T) {
	_, err := NewMatcher(domain.IgnoreSettings{Patterns: []string{"("}})
	assert.Error(t, err)

	_, err = NewMatcher(domain.IgnoreSettings{}, "/warning")
	assert.Error(t, err, "own pages must be absolute")
}
