// Package httptransport assembles the HTTP surface: shared middleware, the
// public/authenticated/operator route groups and the health and metrics
// endpoints. Domain handlers own their routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"clubdomains/internal/platform/metrics"
	"clubdomains/internal/ratelimit"
	"clubdomains/pkg/platform/httputil"
	adminmw "clubdomains/pkg/platform/middleware/admin"
	"clubdomains/pkg/platform/middleware/auth"
	"clubdomains/pkg/platform/middleware/metadata"
	"clubdomains/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// PublicRoutes mounts read endpoints that need no caller.
type PublicRoutes interface {
	Register(r chi.Router)
}

// AuthenticatedRoutes mounts endpoints that read the caller from context.
type AuthenticatedRoutes interface {
	RegisterAuthenticated(r chi.Router)
}

// OperatorRoutes mounts endpoints guarded by the admin token.
type OperatorRoutes interface {
	RegisterOperator(r chi.Router)
}

// HealthCheck reports a dependency failure. Name appears in the /health body.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps carries everything the router mounts. Handlers are type-switched into
// the groups they implement.
type Deps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Callers    auth.CallerValidator
	AdminToken string
	// RateLimit throttles public reads per IP and mutations per caller when set.
	RateLimit *ratelimit.Middleware
	Handlers  []any
	Health    []HealthCheck
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter wires middleware and every handler's routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.LatencyMiddleware)
	}
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(requesttime.Middleware)

	r.Get("/health", healthHandler(deps.Health, deps.Logger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.PerIP(ratelimit.ClassRead))
		}
		for _, h := range deps.Handlers {
			if p, ok := h.(PublicRoutes); ok {
				p.Register(r)
			}
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireCaller(deps.Callers, deps.Logger))
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.PerCaller(ratelimit.ClassWrite))
		}
		for _, h := range deps.Handlers {
			if a, ok := h.(AuthenticatedRoutes); ok {
				a.RegisterAuthenticated(r)
			}
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(deps.AdminToken, deps.Logger))
		for _, h := range deps.Handlers {
			if o, ok := h.(OperatorRoutes); ok {
				o.RegisterOperator(r)
			}
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
