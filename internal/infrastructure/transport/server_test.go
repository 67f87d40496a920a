package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/phishnet-go/internal/application/gate"
	"github.com/doeshing/phishnet-go/internal/application/messaging"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/cache"
	"github.com/doeshing/phishnet-go/internal/infrastructure/ignore"
	"github.com/doeshing/phishnet-go/internal/infrastructure/storage"
	"github.com/doeshing/phishnet-go/internal/pkg/logger"
)

type countingScanner struct {
	mu      sync.Mutex
	verdict map[string]domain.Verdict
	calls   int
}

func (s *countingScanner) Scan(_ context.Context, target, _ string) domain.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	v, ok := s.verdict[target]
	if !ok {
		v = domain.VerdictSafe
	}
	return domain.ScanResult{Verdict: v, Threats: []domain.ThreatMatch{}}
}

func (s *countingScanner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type harness struct {
	srv     *httptest.Server
	scanner *countingScanner
	guard   *gate.NavigationGuard
}

func newHarness(t *testing.T, verdicts map[string]domain.Verdict) *harness {
	t.Helper()
	return newHarnessWith(t, verdicts, domain.ServerSettings{})
}

func newHarnessWith(t *testing.T, verdicts map[string]domain.Verdict, settings domain.ServerSettings) *harness {
	t.Helper()
	log := logger.Nop()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), domain.DefaultProtectionStorageKey, []byte(`{"isProtected":true,"alwaysOn":false}`)))

	hub := NewHub(log)
	scanCache := cache.NewScanCache(0)
	srv := httptest.NewUnstartedServer(nil)
	settings.Listen = srv.Listener.Addr().String()
	settings.InterstitialURL = "http://" + settings.Listen + "/warning"
	interstitialURL := settings.InterstitialURL
	matcher, err := ignore.NewMatcher(domain.IgnoreSettings{}, interstitialURL)
	require.NoError(t, err)

	scan := &countingScanner{verdict: verdicts}
	guard, err := gate.NewGuard(gate.Dependencies{
		Config:    domain.Config{Server: domain.ServerSettings{InterstitialURL: interstitialURL}},
		Store:     kv,
		Scanner:   scan,
		Navigator: hub,
		Cache:     scanCache,
		Filter:    matcher,
		Logger:    log,
	})
	require.NoError(t, err)
	guard.Start(context.Background())

	dispatcher := messaging.NewDispatcher(guard.Protection(), guard.Warnings(), log)
	srv.Config.Handler = NewServer(guard, dispatcher, hub, scanCache, NewAccessPolicy(settings), log).Router()
	srv.Start()
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		guard.Close()
	})
	return &harness{srv: srv, scanner: scan, guard: guard}
}

func (h *harness) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// send posts raw with the given headers.
func (h *harness) send(t *testing.T, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (h *harness) dialBridge(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/api/v1/tabs/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool {
		_, out := h.get(t, "/api/v1/cache")
		return out["browsers"] == float64(1)
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func (h *harness) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func readInstruction(t *testing.T, conn *websocket.Conn) domain.TabInstruction {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ins domain.TabInstruction
	require.NoError(t, conn.ReadJSON(&ins))
	return ins
}

func TestMaliciousNavigationRoundTrip(t *testing.T) {
	target := "https://evil.example/login"
	h := newHarness(t, map[string]domain.Verdict{target: domain.VerdictMalicious})
	bridge := h.dialBridge(t)

	status, out := h.post(t, "/api/v1/navigations", map[string]any{"tabId": 4, "url": target, "frameId": 0})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(domain.OutcomeRedirected), out["outcome"])

	ins := readInstruction(t, bridge)
	assert.Equal(t, domain.InstructionNavigate, ins.Type)
	assert.Equal(t, 4, ins.TabID)
	redirect, err := url.Parse(ins.URL)
	require.NoError(t, err)
	assert.Equal(t, "/warning", redirect.Path)
	assert.Equal(t, "MALICIOUS", redirect.Query().Get("verdict"))

	status, out = h.post(t, "/api/v1/messages", map[string]any{"type": "warning-page-ready", "tabId": 4})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, target, out["url"])
	assert.Equal(t, "MALICIOUS", out["verdict"])

	status, out = h.post(t, "/api/v1/messages", map[string]any{"type": "warning-decision", "decision": "continue", "url": target, "tabId": 4})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["ok"])

	ins = readInstruction(t, bridge)
	assert.Equal(t, target, ins.URL)

	_, out = h.post(t, "/api/v1/navigations", map[string]any{"tabId": 4, "url": target, "frameId": 0})
	assert.Equal(t, string(domain.OutcomeAllowedOnce), out["outcome"])
	assert.Equal(t, 1, h.scanner.count())

	_, out = h.post(t, "/api/v1/messages", map[string]any{"type": "warning-decision", "decision": "continue", "tabId": 4})
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, domain.ReasonMissingPending, out["reason"])
}

func TestRedirectWithoutBridgeStillRecordsWarning(t *testing.T) {
	target := "https://evil.example/"
	h := newHarness(t, map[string]domain.Verdict{target: domain.VerdictSuspicious})

	status, out := h.post(t, "/api/v1/navigations", map[string]any{"tabId": 1, "url": target})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(domain.OutcomeRedirected), out["outcome"])
	_, ok := h.guard.Warnings().GetPending(1)
	assert.True(t, ok)
}

func TestSubFrameNavigation(t *testing.T) {
	h := newHarness(t, nil)
	_, out := h.post(t, "/api/v1/navigations", map[string]any{"tabId": 1, "url": "https://ads.example/", "frameId": 3})
	assert.Equal(t, string(domain.OutcomeSubFrame), out["outcome"])
	assert.Zero(t, h.scanner.count())
}

func TestNavigationValidation(t *testing.T) {
	h := newHarness(t, nil)
	status, _ := h.post(t, "/api/v1/navigations", map[string]any{"url": "https://a.example/"})
	assert.Equal(t, http.StatusBadRequest, status)

	resp, err := http.Post(h.srv.URL+"/api/v1/navigations", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownMessageIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	status, out := h.post(t, "/api/v1/messages", map[string]any{"type": "mystery"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out["error"], "unknown message type")
}

func TestRemoveTabPrunesPendingWarning(t *testing.T) {
	h := newHarness(t, nil)
	h.guard.Warnings().RegisterPending(6, "https://evil.example/", domain.VerdictMalicious)

	req, err := http.NewRequest(http.MethodDelete, h.srv.URL+"/api/v1/tabs/6", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, ok := h.guard.Warnings().GetPending(6)
	assert.False(t, ok)
}

func TestHistoryEndpoint(t *testing.T) {
	h := newHarness(t, map[string]domain.Verdict{"https://bad.example/": domain.VerdictMalicious})
	h.post(t, "/api/v1/navigations", map[string]any{"tabId": 1, "url": "https://good.example/"})
	h.post(t, "/api/v1/navigations", map[string]any{"tabId": 2, "url": "https://bad.example/"})

	status, out := h.get(t, "/api/v1/history?limit=1")
	require.Equal(t, http.StatusOK, status)
	records := out["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "https://bad.example/", records[0].(map[string]any)["url"])
	assert.Equal(t, float64(2), out["stats"].(map[string]any)["total"])

	status, _ = h.get(t, "/api/v1/history?limit=x")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWarningPageEscapesTarget(t *testing.T) {
	h := newHarness(t, nil)
	q := url.Values{"url": {`https://x.example/"><script>alert(1)</script>`}, "verdict": {"MALICIOUS"}, "tabId": {"3"}}
	resp, err := http.Get(h.srv.URL + "/warning?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Contains(t, page, "Malicious site blocked")
	assert.Contains(t, page, `data-tab-id="3"`)
	assert.NotContains(t, page, "<script>alert(1)</script>")
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

const disableProtection = `{"type":"protection-state","payload":{"isProtected":false}}`

func TestForeignOriginCannotDisableProtection(t *testing.T) {
	h := newHarness(t, nil)

	for _, contentType := range []string{"text/plain", "application/json"} {
		status, _ := h.send(t, "/api/v1/messages", disableProtection, map[string]string{
			"Origin":       "https://phish.example",
			"Content-Type": contentType,
		})
		assert.Equal(t, http.StatusForbidden, status, contentType)
	}
	assert.True(t, h.guard.Protection().Get().IsProtected)
}

func TestForeignOriginCannotSkipItsWarning(t *testing.T) {
	target := "https://phish.example/"
	h := newHarness(t, map[string]domain.Verdict{target: domain.VerdictMalicious})
	h.post(t, "/api/v1/navigations", map[string]any{"tabId": 9, "url": target})

	status, _ := h.send(t, "/api/v1/messages", `{"type":"warning-decision","decision":"continue","tabId":9}`, map[string]string{
		"Origin":       "https://phish.example",
		"Content-Type": "application/json",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.True(t, h.guard.Warnings().HasPendingFor(9, target))
}

func TestNonJSONBodyRejected(t *testing.T) {
	h := newHarness(t, nil)
	status, _ := h.send(t, "/api/v1/messages", disableProtection, map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
	assert.True(t, h.guard.Protection().Get().IsProtected)
}

func TestOwnOriginReachesMessages(t *testing.T) {
	h := newHarness(t, nil)
	status, out := h.send(t, "/api/v1/messages", `{"type":"warning-page-ready","tabId":2}`, map[string]string{
		"Origin":       h.srv.URL,
		"Content-Type": "application/json; charset=utf-8",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "url")
}

func TestForeignOriginBridgeRefused(t *testing.T) {
	h := newHarness(t, nil)
	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/api/v1/tabs/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://phish.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, h.hubClients(t))
}

func TestAPIKeyGuardsExtensionOrigin(t *testing.T) {
	ext := "chrome-extension://abcdefghijklmnop"
	h := newHarnessWith(t, nil, domain.ServerSettings{AllowedOrigins: []string{ext}, APIKey: "s3cret"})
	ready := `{"type":"warning-page-ready","tabId":1}`

	status, _ := h.send(t, "/api/v1/messages", ready, map[string]string{"Origin": ext, "Content-Type": "application/json"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.send(t, "/api/v1/messages", ready, map[string]string{
		"Origin":            ext,
		"Content-Type":      "application/json",
		domain.APIKeyHeader: "s3cret",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.send(t, "/api/v1/messages", ready, map[string]string{"Origin": h.srv.URL, "Content-Type": "application/json"})
	assert.Equal(t, http.StatusOK, status, "interstitial pages need no key")

	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/api/v1/tabs/stream?key=s3cret"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {ext}})
	require.NoError(t, err)
	conn.Close()
}

func (h *harness) hubClients(t *testing.T) float64 {
	t.Helper()
	_, out := h.get(t, "/api/v1/cache")
	n, _ := out["browsers"].(float64)
	return n
}
