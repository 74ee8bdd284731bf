package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chitieu/internal/auth"
	"chitieu/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the record store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.pinger == nil {
		checks["store"] = "not_configured"
	} else if err := s.pinger.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeDatabase)
	} else {
		checks["store"] = "ok"
	}

	if s.stats != nil {
		checks["cache"] = s.stats()
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	if s.hub != nil {
		checks["websocket_sessions"] = s.hub.Sessions()
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides counters in the Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_response_time_avg_microseconds", "gauge", "Mean response time", traceMetrics.AverageResponseTime)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests blocked as probes", securityMetrics.SuspiciousRequests)
	if s.stats != nil {
		st := s.stats()
		metric("snapshot_cache_entries", "gauge", "Cached record snapshots", st.Size)
		metric("snapshot_cache_hits_total", "counter", "Snapshot cache hits", st.Hits)
		metric("snapshot_cache_misses_total", "counter", "Snapshot cache misses", st.Misses)
	}
	if s.hub != nil {
		metric("websocket_sessions", "gauge", "Open websocket sessions", s.hub.Sessions())
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, r, http.StatusNotFound, "realtime updates are disabled")
		return
	}
	owner := auth.OwnerFromContext(r.Context())
	if err := s.hub.HandleRequest(w, r, owner); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Websocket upgrade failed",
			log.FieldOwner, owner,
			log.FieldError, err.Error())
	}
}
