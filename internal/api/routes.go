package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jaycoolh/hedera-agent-kit/internal/auth"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/metrics"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware(auth.MiddlewareConfig{
			RequiredPermissions: auth.DefaultPermissions(),
			AuditEvent:          "api_v1",
		}))

		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{name}", s.handleInvokeTool)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleSubmitJob)
			r.Get("/", s.handleListJobs)
			r.Get("/stats", s.handleJobStats)
			r.Get("/{id}", s.handleGetJob)
		})

		r.Get("/calls", s.handleListCalls)
	})
	return r
}

// observe 记录每个请求的访问日志与 Prometheus 指标，handler 标签取路由模板。
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(pattern, r.Method, status, elapsed)
		s.log.Debug("http request",
			slog.String("method", r.Method),
			slog.String("route", pattern),
			slog.Int("status", status),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
