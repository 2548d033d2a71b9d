// Package api exposes the plan engine over HTTP: plan creation, step
// approval, execution triggering, live event streaming (SSE), and run
// replay. Handlers validate and answer synchronously; execution itself is
// fire-and-forget and surfaces failures only through the event stream.
package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fangio/fangio/internal/approval"
	"github.com/fangio/fangio/internal/engine"
	"github.com/fangio/fangio/internal/planner"
	"github.com/fangio/fangio/internal/ratelimit"
	"github.com/fangio/fangio/internal/store"
)

// Server wires the core components behind the HTTP API.
type Server struct {
	store   *store.Store
	gate    *approval.Gate
	engine  *engine.Engine
	planner *planner.Planner
	limiter *ratelimit.Limiter
	log     *slog.Logger
	cors    []string
	devCORS []*regexp.Regexp
}

// localhost origins allowed when no explicit CORS origins are configured.
var devOriginPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^http://localhost:\d+$`),
	regexp.MustCompile(`^http://127\.0\.0\.1:\d+$`),
}

// NewServer creates a Server. corsOrigins empty enables the localhost
// development origins only.
func NewServer(st *store.Store, gate *approval.Gate, eng *engine.Engine,
	pl *planner.Planner, limiter *ratelimit.Limiter, corsOrigins []string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:   st,
		gate:    gate,
		engine:  eng,
		planner: pl,
		limiter: limiter,
		log:     log,
		cors:    corsOrigins,
		devCORS: devOriginPatterns,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.corsMiddleware)

	r.Post("/api/plan", s.handleCreatePlan)
	r.Post("/api/approve", s.handleApprove)
	r.Post("/api/execute", s.handleExecute)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/replay", s.handleReplay)
	r.Get("/api/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Listen serves the API on the given port until the listener fails.
func (s *Server) Listen(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.log.Info("fangio API server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

// corsMiddleware allows the configured origins, or the localhost dev
// origins when none are configured.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Fangio-Channel")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cors) > 0 {
		for _, allowed := range s.cors {
			if origin == allowed {
				return true
			}
		}
		return false
	}
	for _, re := range s.devCORS {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// clientKey identifies the requesting client for admission control.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
