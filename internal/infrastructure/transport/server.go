// Package transport exposes the navigation guard over HTTP: navigation events
// and cross-context messages come in as JSON, tab instructions go out over a
// websocket, and the interstitial page itself is served here.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/doeshing/phishnet-go/internal/application/gate"
	"github.com/doeshing/phishnet-go/internal/application/messaging"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/cache"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// CacheInspector reports cache occupancy.
type CacheInspector interface {
	Stats() cache.CacheStats
}

// Server holds the handlers behind Router.
type Server struct {
	guard      *gate.NavigationGuard
	dispatcher *messaging.Dispatcher
	hub        *Hub
	cache      CacheInspector
	access     *AccessPolicy
	logger     ports.Logger
}

// NewServer wires the handlers. A nil access policy admits only the default
// server origin and non-browser clients.
func NewServer(guard *gate.NavigationGuard, dispatcher *messaging.Dispatcher, hub *Hub, cache CacheInspector, access *AccessPolicy, logger ports.Logger) *Server {
	if access == nil {
		access = NewAccessPolicy(domain.ServerSettings{Listen: domain.DefaultListenAddr, InterstitialURL: domain.DefaultInterstitialURL})
	}
	hub.RestrictOrigins(access.AllowOrigin)
	return &Server{guard: guard, dispatcher: dispatcher, hub: hub, cache: cache, access: access, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { writeText(w, http.StatusOK, "ok\n") })
	r.Get("/warning", s.warningPage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.access.Middleware)
		r.Post("/navigations", s.navigate)
		r.Post("/messages", s.message)
		r.Delete("/tabs/{tabId}", s.removeTab)
		r.Get("/tabs/stream", s.hub.ServeHTTP)
		r.Get("/history", s.history)
		r.Get("/cache", s.cacheStats)
	})

	return r
}

type navigationRequest struct {
	TabID           *int   `json:"tabId"`
	URL             string `json:"url"`
	FrameID         *int   `json:"frameId"`
	IsTopLevelFrame *bool  `json:"isTopLevelFrame"`
}

// topLevel accepts either the browser's frameId (0 is the top frame) or an
// explicit flag; a request carrying neither is treated as top level.
func (n navigationRequest) topLevel() bool {
	if n.IsTopLevelFrame != nil {
		return *n.IsTopLevelFrame
	}
	if n.FrameID != nil {
		return *n.FrameID == 0
	}
	return true
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if req.TabID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "tabId is required"})
		return
	}
	ev := domain.NavigationEvent{TabID: *req.TabID, URL: req.URL, IsTopLevelFrame: req.topLevel()}
	res, err := s.guard.HandleNavigation(r.Context(), ev)
	if err != nil {
		s.logger.Error("navigation handling", err, map[string]interface{}{"tab": ev.TabID})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	resp, err := s.dispatcher.Dispatch(r.Context(), msg)
	if errors.Is(err, domain.ErrUnknownMessage) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) removeTab(w http.ResponseWriter, r *http.Request) {
	tabID, err := strconv.Atoi(chi.URLParam(r, "tabId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "tabId must be an integer"})
		return
	}
	resp, err := s.dispatcher.Dispatch(r.Context(), domain.Message{Type: domain.MessageTabRemoved, TabID: &tabID})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := domain.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	records := s.guard.History().Records(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"stats":   domain.SummarizeHistory(s.guard.History().Records(0)),
	})
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "cache inspection unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cache":      s.cache.Stats(),
		"pending":    s.guard.Warnings().Pending(),
		"exemptions": s.guard.Warnings().Exemptions(),
		"browsers":   s.hub.Clients(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(s))
}
