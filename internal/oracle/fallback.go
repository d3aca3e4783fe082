package oracle

import (
	"context"
	"fmt"
	"log/slog"

	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/platform/circuit"
)

// FallbackPublisher sends requests to a primary bus and diverts them to a
// fallback (normally the polled Log) once the breaker opens. Every call still
// tries the primary first so the breaker can close again.
type FallbackPublisher struct {
	primary  Publisher
	fallback Publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *Metrics
}

type FallbackOption func(*FallbackPublisher)

func WithFallbackLogger(logger *slog.Logger) FallbackOption {
	return func(p *FallbackPublisher) { p.logger = logger }
}

func WithFallbackMetrics(m *Metrics) FallbackOption {
	return func(p *FallbackPublisher) { p.metrics = m }
}

func NewFallbackPublisher(primary, fallback Publisher, breaker *circuit.Breaker, opts ...FallbackOption) (*FallbackPublisher, error) {
	if primary == nil || fallback == nil {
		return nil, fmt.Errorf("primary and fallback publishers are required")
	}
	if breaker == nil {
		breaker = circuit.New("oracle-bus")
	}
	p := &FallbackPublisher{primary: primary, fallback: fallback, breaker: breaker}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *FallbackPublisher) Publish(ctx context.Context, req VerificationRequest) (VerificationRequest, error) {
	published, err := p.primary.Publish(ctx, req)
	if err == nil {
		_, change := p.breaker.RecordSuccess()
		if change.Closed {
			p.metrics.SetCircuitOpen(false)
			p.log(ctx, slog.LevelInfo, "oracle bus circuit closed")
		}
		p.metrics.IncPublished("primary", "ok")
		return published, nil
	}

	p.metrics.IncPublished("primary", "error")
	useFallback, change := p.breaker.RecordFailure()
	if change.Opened {
		p.metrics.SetCircuitOpen(true)
		p.log(ctx, slog.LevelWarn, "oracle bus circuit opened", "error", err)
	}
	if !useFallback {
		return VerificationRequest{}, dErrors.Wrap(err, dErrors.CodeDependency, "oracle bus unavailable")
	}

	published, fbErr := p.fallback.Publish(ctx, req)
	if fbErr != nil {
		p.metrics.IncPublished("fallback", "error")
		return VerificationRequest{}, dErrors.Wrap(fbErr, dErrors.CodeDependency, "oracle fallback unavailable")
	}
	p.metrics.IncPublished("fallback", "ok")
	p.log(ctx, slog.LevelWarn, "verification request diverted to fallback log",
		"request_id", published.ID.String(),
		"sequence", published.Sequence,
	)
	return published, nil
}

func (p *FallbackPublisher) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if p.logger != nil {
		p.logger.Log(ctx, level, msg, append(args, "breaker", p.breaker.Name())...)
	}
}
