package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/gamewire/pkg/protocol"
)

// Handler returns a router serving both the WebSocket endpoint and the
// admin endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(s.cfg.WSPath, s.HandleWebSocket)
	r.Mount("/", s.AdminHandler())
	return r
}

// WebSocketHandler returns a router serving only the WebSocket endpoint.
func (s *Server) WebSocketHandler() http.Handler {
	r := chi.NewRouter()
	r.Get(s.cfg.WSPath, s.HandleWebSocket)
	return r
}

// AdminHandler returns the admin router:
//
//	GET  /healthz        liveness and open connection count
//	GET  /dict           route dictionary announced to clients
//	GET  /metrics        Prometheus metrics
//	POST /push/{route}   push the request body to every ready client
func (s *Server) AdminHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/dict", s.handleDict)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	r.Post("/push/{route}", s.handlePush)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.Connections(),
	})
}

func (s *Server) handleDict(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dict.Routes())
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	route := chi.URLParam(r, "route")

	body, err := io.ReadAll(io.LimitReader(r.Body, protocol.MaxPacketSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(body) > protocol.MaxPacketSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": protocol.ErrPacketTooLarge.Error()})
		return
	}

	sent, err := s.Broadcast(route, body)
	switch {
	case stderrors.Is(err, protocol.ErrPacketTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Info("push broadcast", "route", route, "bytes", len(body), "sent", sent)
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
