package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"clubdomains/pkg/platform/circuit"
	"clubdomains/pkg/platform/httputil"
	"clubdomains/pkg/requestcontext"
)

// StatusHeader is set to "degraded" while limits come from the fallback bucket.
const StatusHeader = "X-RateLimit-Status"

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Middleware enforces per-class limits. Primary bucket errors are counted by
// the breaker; until it opens the request is let through, afterwards the
// fallback bucket decides.
type Middleware struct {
	primary  Bucket
	fallback Bucket
	breaker  *circuit.Breaker
	limits   map[Class]Limit
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

func WithFallback(b Bucket) Option {
	return func(m *Middleware) { m.fallback = b }
}

func WithLimits(limits map[Class]Limit) Option {
	return func(m *Middleware) { m.limits = limits }
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func New(primary Bucket, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		breaker: circuit.New("ratelimit", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(3)),
		limits:  DefaultLimits(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerIP limits by client IP. Use it on unauthenticated routes.
func (m *Middleware) PerIP(class Class) func(http.Handler) http.Handler {
	return m.limit(class, func(ctx context.Context) string {
		return ipKey(class, requestcontext.ClientIP(ctx))
	})
}

// PerCaller limits by authenticated caller, falling back to the client IP.
// Mount it after caller authentication.
func (m *Middleware) PerCaller(class Class) func(http.Handler) http.Handler {
	return m.limit(class, func(ctx context.Context) string {
		if caller := requestcontext.Caller(ctx); !caller.IsZero() {
			return callerKey(class, caller.String())
		}
		return ipKey(class, requestcontext.ClientIP(ctx))
	})
}

func (m *Middleware) limit(class Class, keyFn func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim, ok := m.limits[class]
			if m.disabled || !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := keyFn(ctx)

			result, degraded := m.check(ctx, key, lim)
			if degraded {
				w.Header().Set(StatusHeader, "degraded")
			}
			if result == nil {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"class", string(class),
					"key", key,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: result.RetryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// check returns a nil result when no bucket could answer.
func (m *Middleware) check(ctx context.Context, key string, lim Limit) (*Result, bool) {
	result, err := m.primary.Allow(ctx, key, lim.Requests, lim.Window)
	if err == nil {
		if _, change := m.breaker.RecordSuccess(); change.Closed {
			m.logger.InfoContext(ctx, "rate limit circuit closed")
		}
		return result, false
	}

	useFallback, change := m.breaker.RecordFailure()
	if change.Opened {
		m.logger.WarnContext(ctx, "rate limit circuit opened", "error", err)
	} else {
		m.logger.ErrorContext(ctx, "rate limit check failed", "error", err)
	}
	if !useFallback || m.fallback == nil {
		return nil, false
	}
	result, err = m.fallback.Allow(ctx, key, lim.Requests, lim.Window)
	if err != nil {
		m.logger.ErrorContext(ctx, "fallback rate limit check failed", "error", err)
		return nil, true
	}
	return result, true
}
