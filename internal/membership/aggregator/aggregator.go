// Package aggregator answers "is this user a member of this club" across every
// membership source. A failing source counts as "no" and never fails the
// answer.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"clubdomains/internal/membership/metrics"
	"clubdomains/internal/membership/source"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/requestcontext"
)

const tracerName = "clubdomains/membership/aggregator"

// Subscriptions is the temporary source; its expiries drive classification.
type Subscriptions interface {
	source.Provider
	Expiry(ctx context.Context, name names.Name, user id.Address) (time.Time, bool, error)
}

type Aggregator struct {
	permanent  source.Provider
	temporary  Subscriptions
	tokenGate  source.Provider
	crossChain source.Provider

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Aggregator) { a.tracer = t }
}

func New(permanent source.Provider, temporary Subscriptions, tokenGate, crossChain source.Provider, opts ...Option) (*Aggregator, error) {
	if permanent == nil || temporary == nil || tokenGate == nil || crossChain == nil {
		return nil, errors.New("all four membership sources are required")
	}
	a := &Aggregator{
		permanent:  permanent,
		temporary:  temporary,
		tokenGate:  tokenGate,
		crossChain: crossChain,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Classify returns the highest-precedence active membership:
// permanent, then temporary, then token gate, then cross-chain.
func (a *Aggregator) Classify(ctx context.Context, name names.Name, user id.Address) Classification {
	ctx, span := a.start(ctx, "Classify", name, user)
	defer span.End()

	c := a.classify(ctx, name, user)
	span.SetAttributes(attribute.String("membership.type", string(c.Type)))
	a.metrics.IncClassification(string(c.Type))
	return c
}

func (a *Aggregator) classify(ctx context.Context, name names.Name, user id.Address) Classification {
	if a.probe(ctx, a.permanent, name, user).Active {
		return Classification{IsMember: true, Type: TypePermanent}
	}

	expiry, subscribed := a.expiry(ctx, name, user)
	if subscribed && requestcontext.Now(ctx).Before(expiry) {
		return Classification{IsMember: true, Expiry: expiry, Type: TypeTemporary}
	}
	if a.probe(ctx, a.tokenGate, name, user).Active {
		return Classification{IsMember: true, Type: TypeTokenGate}
	}
	if a.probe(ctx, a.crossChain, name, user).Active {
		return Classification{IsMember: true, Type: TypeCrossChain}
	}
	if subscribed {
		return Classification{Expiry: expiry, Type: TypeInactive}
	}
	return Classification{Type: TypeNone}
}

// HasAnyActiveMembership stops at the first active source.
func (a *Aggregator) HasAnyActiveMembership(ctx context.Context, name names.Name, user id.Address) bool {
	ctx, span := a.start(ctx, "HasAnyActiveMembership", name, user)
	defer span.End()

	for _, p := range a.ordered() {
		if a.probe(ctx, p, name, user).Active {
			span.SetAttributes(attribute.String("membership.source", string(p.Kind())))
			return true
		}
	}
	return false
}

// IsMember is HasAnyActiveMembership under the club-facing name.
func (a *Aggregator) IsMember(ctx context.Context, name names.Name, user id.Address) bool {
	return a.HasAnyActiveMembership(ctx, name, user)
}

// Details probes all four sources concurrently.
func (a *Aggregator) Details(ctx context.Context, name names.Name, user id.Address) Details {
	ctx, span := a.start(ctx, "Details", name, user)
	defer span.End()

	providers := a.ordered()
	results := make([]source.Result, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			results[i] = a.probe(ctx, p, name, user)
			return nil
		})
	}
	_ = g.Wait()

	if failed := source.Failed(results...); len(failed) > 0 {
		span.SetAttributes(attribute.Int("membership.failed_sources", len(failed)))
	}
	return Details{
		IsPermanent:  source.AnyActive(results[0]),
		IsTemporary:  source.AnyActive(results[1]),
		IsTokenBased: source.AnyActive(results[2]),
		IsCrossChain: source.AnyActive(results[3]),
	}
}

func (a *Aggregator) ordered() []source.Provider {
	return []source.Provider{a.permanent, a.temporary, a.tokenGate, a.crossChain}
}

// probe runs one HasActiveMembership call with panic isolation.
func (a *Aggregator) probe(ctx context.Context, p source.Provider, name names.Name, user id.Address) (res source.Result) {
	kind := p.Kind()
	res.Kind = kind
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Active = false
			res.Err = &source.SourceError{Kind: kind, Category: source.CategoryPanic, Err: fmt.Errorf("panic: %v", r)}
		}
		a.metrics.ObserveProbe(string(kind), time.Since(start))
		if res.Err != nil {
			a.report(ctx, res)
		}
	}()

	active, err := p.HasActiveMembership(ctx, name, user)
	if err != nil {
		return source.Result{Kind: kind, Err: source.NewSourceError(kind, err)}
	}
	return source.Result{Kind: kind, Active: active}
}

// expiry reads the subscription expiry with the same isolation as probe.
func (a *Aggregator) expiry(ctx context.Context, name names.Name, user id.Address) (exp time.Time, ok bool) {
	kind := a.temporary.Kind()
	defer func() {
		if r := recover(); r != nil {
			exp, ok = time.Time{}, false
			a.report(ctx, source.Result{Kind: kind, Err: &source.SourceError{
				Kind: kind, Category: source.CategoryPanic, Err: fmt.Errorf("panic: %v", r),
			}})
		}
	}()

	exp, ok, err := a.temporary.Expiry(ctx, name, user)
	if err != nil {
		a.report(ctx, source.Result{Kind: kind, Err: source.NewSourceError(kind, err)})
		return time.Time{}, false
	}
	return exp, ok
}

func (a *Aggregator) report(ctx context.Context, res source.Result) {
	category := source.CategoryInternal
	var se *source.SourceError
	if errors.As(res.Err, &se) {
		category = se.Category
	}
	a.metrics.IncProbeFailure(string(res.Kind), string(category))
	// An uninitialized club is an expected "no", not an incident.
	if category == source.CategoryNotInitialized {
		return
	}
	trace.SpanFromContext(ctx).RecordError(res.Err)
	if a.logger != nil {
		a.logger.WarnContext(ctx, "membership probe failed",
			"request_id", requestcontext.RequestID(ctx),
			"source", string(res.Kind),
			"category", string(category),
			"error", res.Err,
		)
	}
}

func (a *Aggregator) start(ctx context.Context, op string, name names.Name, user id.Address) (context.Context, trace.Span) {
	ctx, span := a.tracer.Start(ctx, "membership."+op, trace.WithAttributes(
		attribute.String("club.name", string(name)),
		attribute.String("member.address", user.String()),
	))
	span.SetStatus(codes.Ok, "")
	return ctx, span
}
