// Package http hosts the read-only management surface: health and stats
// endpoints over the resilience and plugin components. It is not the full
// control API — there is no route to mutate rate limits, breakers, or
// plugins; that stays an external collaborator.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/audit"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/breaker"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/ratelimit"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/timeoutctl"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/trace"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// StatusServer exposes /healthz and /stats/* as a chi.Mux. All handlers are
// read-only snapshots; none can mutate limiter, breaker, or plugin state.
type StatusServer struct {
	router   *chi.Mux
	limiter  *ratelimit.RateLimiter
	breakers *breaker.Registry
	timeouts *timeoutctl.Controller
	auditLog *audit.Logger
	loader   *plugin.Loader
	traceBuf *trace.RingBuffer
	logger   ports.Logger
}

// NewStatusServer builds the status router over the given components.
func NewStatusServer(
	limiter *ratelimit.RateLimiter,
	breakers *breaker.Registry,
	timeouts *timeoutctl.Controller,
	auditLog *audit.Logger,
	loader *plugin.Loader,
	traceBuf *trace.RingBuffer,
	logger ports.Logger,
) *StatusServer {
	s := &StatusServer{
		limiter:  limiter,
		breakers: breakers,
		timeouts: timeouts,
		auditLog: auditLog,
		loader:   loader,
		traceBuf: traceBuf,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/stats", func(r chi.Router) {
		r.Get("/ratelimit", s.handleRateLimitStats)
		r.Get("/breakers", s.handleBreakerStats)
		r.Get("/timeouts", s.handleTimeoutStats)
		r.Get("/audit", s.handleAuditStats)
		r.Get("/plugins", s.handlePluginStats)
		r.Get("/trace", s.handleTraceStats)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *StatusServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *StatusServer) handleRateLimitStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.limiter.Stats())
}

func (s *StatusServer) handleBreakerStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.breakers.GetAllStats())
}

func (s *StatusServer) handleTimeoutStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.timeouts.Stats())
}

func (s *StatusServer) handleAuditStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.auditLog.Stats())
}

func (s *StatusServer) handlePluginStats(w http.ResponseWriter, _ *http.Request) {
	infos := s.loader.GetAllPlugins()
	plugins := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		plugins = append(plugins, map[string]any{
			"plugin_id": info.PluginID,
			"name":      info.Name,
			"type":      info.Type,
			"md5":       info.MD5,
			"enabled":   info.Enabled,
		})
	}
	tools := s.loader.GetAllTools()
	toolNames := make([]string, 0, len(tools))
	for id := range tools {
		toolNames = append(toolNames, id)
	}
	writeJSON(w, map[string]any{"plugins": plugins, "tools": toolNames})
}

func (s *StatusServer) handleTraceStats(w http.ResponseWriter, r *http.Request) {
	n := 50
	if s.traceBuf == nil {
		writeJSON(w, []trace.Entry{})
		return
	}
	writeJSON(w, s.traceBuf.Last(n))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
