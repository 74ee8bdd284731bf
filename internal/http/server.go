// Package http serves the JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"chitieu/internal/auth"
	"chitieu/internal/cache"
	"chitieu/internal/dashboard"
	"chitieu/internal/log"
	"chitieu/internal/middleware/ratelimit"
	"chitieu/internal/middleware/security"
	"chitieu/internal/middleware/trace"
	"chitieu/internal/realtime"
	"chitieu/internal/services"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the server. Hub, Pinger and CacheStats may
// be nil.
type Deps struct {
	Records    *services.RecordService
	Dashboard  *dashboard.Service
	Auth       *auth.Authenticator
	Hub        *realtime.Hub
	Pinger     Pinger
	CacheStats func() cache.Stats
	Logger     *log.Logger

	RateLimitPerMinute int
}

type Server struct {
	http.Server

	records   *services.RecordService
	dashboard *dashboard.Service
	auth      *auth.Authenticator
	hub       *realtime.Hub
	pinger    Pinger
	stats     func() cache.Stats
	logger    *log.Logger
	now       func() time.Time
	started   time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		records:   deps.Records,
		dashboard: deps.Dashboard,
		auth:      deps.Auth,
		hub:       deps.Hub,
		pinger:    deps.Pinger,
		stats:     deps.CacheStats,
		logger:    logger.WithComponent(log.ComponentHTTP),
		now:       time.Now,
		started:   time.Now(),
	}

	s.detector = security.NewDetector(logger)
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	limits := ratelimit.DefaultConfig()
	limits.RequestsPerMinute = deps.RateLimitPerMinute
	s.rateLimiter = ratelimit.NewLimiter(limits, logger)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           headers.Middleware(s.tracer.Middleware(s.detector.Middleware(limited))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("GET /ws", s.authed(s.handleWebsocket))

	mux.Handle("GET /api/v1/expenses", s.authed(s.handleListExpenses))
	mux.Handle("POST /api/v1/expenses", s.authed(s.handleCreateExpense))
	mux.Handle("PATCH /api/v1/expenses/{id}", s.authed(s.handleUpdateExpense))
	mux.Handle("DELETE /api/v1/expenses/{id}", s.authed(s.handleDeleteExpense))

	mux.Handle("GET /api/v1/incomes", s.authed(s.handleListIncomes))
	mux.Handle("POST /api/v1/incomes", s.authed(s.handleCreateIncome))
	mux.Handle("PATCH /api/v1/incomes/{id}", s.authed(s.handleUpdateIncome))
	mux.Handle("DELETE /api/v1/incomes/{id}", s.authed(s.handleDeleteIncome))

	mux.Handle("GET /api/v1/budgets", s.authed(s.handleListBudgets))
	mux.Handle("GET /api/v1/budgets/status", s.authed(s.handleBudgetStatus))
	mux.Handle("POST /api/v1/budgets", s.authed(s.handleCreateBudget))
	mux.Handle("PATCH /api/v1/budgets/{id}", s.authed(s.handleUpdateBudget))
	mux.Handle("DELETE /api/v1/budgets/{id}", s.authed(s.handleDeleteBudget))

	mux.Handle("GET /api/v1/reminders", s.authed(s.handleListReminders))
	mux.Handle("GET /api/v1/reminders/upcoming", s.authed(s.handleUpcomingReminders))
	mux.Handle("POST /api/v1/reminders", s.authed(s.handleCreateReminder))
	mux.Handle("PATCH /api/v1/reminders/{id}", s.authed(s.handleUpdateReminder))
	mux.Handle("POST /api/v1/reminders/{id}/paid", s.authed(s.handleMarkReminderPaid))
	mux.Handle("DELETE /api/v1/reminders/{id}", s.authed(s.handleDeleteReminder))

	mux.Handle("GET /api/v1/dashboard", s.authed(s.handleDashboard))
	mux.Handle("GET /api/v1/dashboard/profit", s.authed(s.handleProfit))
	mux.Handle("GET /api/v1/export/{file}", s.authed(s.handleExport))
}

// authed wraps h with the identity check.
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return s.auth.Middleware(h)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops background routines and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.hub != nil {
			if err := s.hub.Close(); err != nil {
				s.logger.Warn("Websocket hub close failed", log.FieldError, err.Error())
			}
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
