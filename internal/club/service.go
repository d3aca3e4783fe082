// Package club owns the club bound to each domain: its admin, metadata and
// append-only member roster. It keeps every membership source's admin in step
// with the domain's registrant.
package club

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

	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/config"
	"clubdomains/internal/platform/observability"
	"clubdomains/internal/platform/pause"
	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/platform/sentinel"
	"clubdomains/pkg/requestcontext"
)

// DomainReader is the registry view the club registry needs.
type DomainReader interface {
	Get(ctx context.Context, name string) (*registry.Domain, error)
	Status(ctx context.Context, name string) (registry.Status, error)
}

// PassSource is the permanent-pass source. Its club creation cannot be undone.
type PassSource interface {
	CreateClub(ctx context.Context, name names.Name, admin id.Address) error
	TransferAdmin(ctx context.Context, name names.Name, admin id.Address) (id.Address, error)
}

// Source is a membership source with reversible club initialization.
type Source interface {
	InitializeClub(ctx context.Context, name names.Name, admin id.Address) error
	UninitializeClub(ctx context.Context, name names.Name) error
	TransferAdmin(ctx context.Context, name names.Name, admin id.Address) (id.Address, error)
}

type Service struct {
	store         Store
	domains       DomainReader
	pass          PassSource
	subscriptions Source
	tokenGates    Source
	cfg           config.Club
	pause         *pause.Switch

	logger         *slog.Logger
	auditPublisher audit.Publisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store Store, domains DomainReader, pass PassSource, subscriptions, tokenGates Source, cfg config.Club, sw *pause.Switch, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("club store is required")
	}
	if domains == nil {
		return nil, errors.New("domain reader is required")
	}
	if pass == nil || subscriptions == nil || tokenGates == nil {
		return nil, errors.New("membership sources are required")
	}
	if sw == nil {
		return nil, errors.New("pause switch is required")
	}
	s := &Service{
		store:         store,
		domains:       domains,
		pass:          pass,
		subscriptions: subscriptions,
		tokenGates:    tokenGates,
		cfg:           cfg,
		pause:         sw,
		tracer:        otel.Tracer("clubdomains/club"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateClub binds a club to an active domain owned by caller and initializes
// every membership source for it.
func (s *Service) CreateClub(ctx context.Context, caller id.Address, name names.Name, admin id.Address, meta Metadata) (*Record, error) {
	ctx, span := s.tracer.Start(ctx, "club.CreateClub", trace.WithAttributes(attribute.String("club.name", string(name))))
	defer span.End()

	if err := s.pause.Ensure(); err != nil {
		return nil, err
	}
	if admin.IsZero() {
		return nil, ErrInvalidAdmin
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, name); err == nil {
		return nil, ErrClubExists
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, storeErr(err)
	}
	d, err := s.activeDomain(ctx, name)
	if err != nil {
		return nil, err
	}
	if d.Owner != caller {
		return nil, ErrNotDomainOwner
	}

	undo, err := s.initialize(ctx, name, admin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initialization failed")
		return nil, err
	}

	rec := &Record{
		Name:       name,
		Admin:      admin,
		Registrant: d.Owner,
		TokenID:    d.TokenID,
		Active:     true,
		Metadata:   meta,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, name, rec); err != nil {
		rbErr := undo(ctx)
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, ErrClubExists
		}
		return nil, errors.Join(storeErr(err), rbErr)
	}
	s.logAudit(ctx, audit.EventClubCreated,
		"name", string(name),
		"actor", caller.String(),
		"target", admin.String(),
	)
	return rec.Clone(), nil
}

type initStep struct {
	step Step
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// initialize runs the source initializations in order. When a step fails the
// completed reversible steps are undone in reverse order. The permanent pass
// step has no undo; a pass club left by an earlier failed attempt is adopted.
// The returned undo reverses everything that can be reversed.
func (s *Service) initialize(ctx context.Context, name names.Name, admin id.Address) (func(context.Context) error, error) {
	steps := []initStep{
		{
			step: StepPermanentPass,
			run: func(ctx context.Context) error {
				err := s.pass.CreateClub(ctx, name, admin)
				if errors.Is(err, source.ErrAlreadyInitialized) {
					_, err = s.pass.TransferAdmin(ctx, name, admin)
				}
				return err
			},
		},
		{
			step: StepSubscription,
			run:  func(ctx context.Context) error { return s.subscriptions.InitializeClub(ctx, name, admin) },
			undo: func(ctx context.Context) error { return s.subscriptions.UninitializeClub(ctx, name) },
		},
		{
			step: StepTokenGate,
			run:  func(ctx context.Context) error { return s.tokenGates.InitializeClub(ctx, name, admin) },
			undo: func(ctx context.Context) error { return s.tokenGates.UninitializeClub(ctx, name) },
		},
	}

	var done []initStep
	rollback := func(ctx context.Context) error {
		var errs []error
		for i := len(done) - 1; i >= 0; i-- {
			if done[i].undo == nil {
				continue
			}
			if err := done[i].undo(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for _, st := range steps {
		if err := st.run(ctx); err != nil {
			rbErr := rollback(ctx)
			s.logAudit(ctx, audit.EventClubInitRolledBack,
				"name", string(name),
				"reason", string(st.step),
				"error", err.Error(),
			)
			if rbErr != nil {
				s.logError(ctx, "club initialization rollback incomplete", rbErr, "name", string(name))
			}
			return nil, &InitError{Step: st.step, Err: err, Rollback: rbErr}
		}
		done = append(done, st)
	}
	return rollback, nil
}

// TransferAdmin hands the club to newAdmin. Callable by the club admin or the
// contract owner; the club's active state is unchanged.
func (s *Service) TransferAdmin(ctx context.Context, caller id.Address, name names.Name, newAdmin id.Address) (*Record, error) {
	if err := s.pause.Ensure(); err != nil {
		return nil, err
	}
	if newAdmin.IsZero() {
		return nil, ErrInvalidAdmin
	}
	rec, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(rec, caller); err != nil {
		return nil, err
	}
	updated, err := s.reassign(ctx, name, newAdmin, func(r *Record, now time.Time) {
		r.changeAdmin(newAdmin, reasonExplicit, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventClubAdminTransferred,
		"name", string(name),
		"actor", caller.String(),
		"target", newAdmin.String(),
		"reason", reasonExplicit,
	)
	return updated, nil
}

// ConfirmInheritance activates a club after a change of registrant. Only the
// new admin may confirm, and only while they still hold the active domain.
func (s *Service) ConfirmInheritance(ctx context.Context, caller id.Address, name names.Name) (*Record, error) {
	if err := s.pause.Ensure(); err != nil {
		return nil, err
	}
	rec, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !rec.PendingInheritance {
		return nil, ErrNoPendingInheritance
	}
	if rec.Admin != caller {
		return nil, ErrNotClubAdmin
	}
	d, err := s.activeDomain(ctx, name)
	if err != nil {
		return nil, err
	}
	if d.Owner != caller {
		return nil, ErrNotDomainOwner
	}

	var out *Record
	err = s.store.Update(ctx, name, func(r *Record) error {
		if !r.PendingInheritance {
			return ErrNoPendingInheritance
		}
		r.PendingInheritance = false
		r.Active = true
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	s.logAudit(ctx, audit.EventClubInheritanceConfirmed, "name", string(name), "actor", caller.String())
	return out, nil
}

// UpdateMetadata replaces the club's display metadata. Admin or owner only.
func (s *Service) UpdateMetadata(ctx context.Context, caller id.Address, name names.Name, meta Metadata) (*Record, error) {
	if err := s.pause.Ensure(); err != nil {
		return nil, err
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	var out *Record
	err := s.store.Update(ctx, name, func(r *Record) error {
		if err := s.authorize(r, caller); err != nil {
			return err
		}
		r.Metadata = meta
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// HandleDomainExpiry deactivates the club once its domain is no longer
// active and records the transition. A club deactivated by expiry whose
// registrant renewed the same token is reactivated. It reports whether the
// club changed; repeated calls are no-ops.
func (s *Service) HandleDomainExpiry(ctx context.Context, name names.Name) (bool, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	status, err := s.domains.Status(ctx, string(name))
	if err != nil {
		return false, err
	}
	if status == registry.StatusActive {
		if !rec.lapsed() {
			return false, nil
		}
		d, err := s.domains.Get(ctx, string(name))
		if err != nil {
			return false, err
		}
		return s.restore(ctx, name, d.Owner, d.TokenID)
	}
	if !rec.Active && rec.LastTransition != nil && rec.LastTransition.OldTokenID == rec.TokenID {
		return false, nil
	}
	transition := Transition{
		PreviousOwner:  rec.Registrant,
		OldTokenID:     rec.TokenID,
		TokenDestroyed: status == registry.StatusAvailable,
		At:             requestcontext.Now(ctx),
	}
	if err := s.deactivate(ctx, name, transition); err != nil {
		return false, err
	}
	return true, nil
}

// SweepExpired runs HandleDomainExpiry for every club and reports how many
// changed state. Per-club failures are logged and skipped.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	all, err := s.store.Names(ctx)
	if err != nil {
		return 0, storeErr(err)
	}
	changedCount := 0
	for _, name := range all {
		changed, err := s.HandleDomainExpiry(ctx, name)
		if err != nil {
			s.logError(ctx, "club expiry check failed", err, "name", string(name))
			continue
		}
		if changed {
			changedCount++
		}
	}
	return changedCount, nil
}

// StartExpirySweep runs SweepExpired every interval until ctx is cancelled.
func (s *Service) StartExpirySweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := s.SweepExpired(ctx); err != nil {
				return err
			} else if n > 0 && s.logger != nil {
				s.logger.InfoContext(ctx, "clubs synced with domain status", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reassign moves every source to newAdmin, then applies fn to the record.
// A failure part-way restores the sources already moved.
func (s *Service) reassign(ctx context.Context, name names.Name, newAdmin id.Address, fn func(*Record, time.Time)) (*Record, error) {
	ctx, span := s.tracer.Start(ctx, "club.reassign", trace.WithAttributes(attribute.String("club.name", string(name))))
	defer span.End()

	type moved struct {
		transfer func(context.Context, names.Name, id.Address) (id.Address, error)
		previous id.Address
	}
	transfers := []func(context.Context, names.Name, id.Address) (id.Address, error){
		s.pass.TransferAdmin,
		s.subscriptions.TransferAdmin,
		s.tokenGates.TransferAdmin,
	}
	var done []moved
	compensate := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if _, err := done[i].transfer(ctx, name, done[i].previous); err != nil {
				s.logError(ctx, "club admin compensation failed", err, "name", string(name))
			}
		}
	}

	for _, transfer := range transfers {
		prev, err := transfer(ctx, name, newAdmin)
		if err != nil {
			compensate()
			span.RecordError(err)
			span.SetStatus(codes.Error, "source admin transfer failed")
			return nil, fmt.Errorf("%w: %w", ErrSourceUpdateFailed, err)
		}
		done = append(done, moved{transfer: transfer, previous: prev})
	}

	var out *Record
	err := s.store.Update(ctx, name, func(r *Record) error {
		fn(r, requestcontext.Now(ctx))
		out = r.Clone()
		return nil
	})
	if err != nil {
		compensate()
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *Service) deactivate(ctx context.Context, name names.Name, t Transition) error {
	err := s.store.Update(ctx, name, func(r *Record) error {
		r.Active = false
		r.LastTransition = &t
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	s.logAudit(ctx, audit.EventClubDeactivated,
		"name", string(name),
		"target", t.PreviousOwner.String(),
		"old_token_id", t.OldTokenID,
		"token_destroyed", t.TokenDestroyed,
	)
	return nil
}

// restore reactivates a club that lapsed with its domain once the same
// registrant holds the same token again.
func (s *Service) restore(ctx context.Context, name names.Name, owner id.Address, tokenID uint64) (bool, error) {
	restored := false
	err := s.store.Update(ctx, name, func(r *Record) error {
		if !r.lapsed() || r.Registrant != owner || r.TokenID != tokenID {
			return nil
		}
		r.Active = true
		r.LastTransition = nil
		restored = true
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}
	if restored {
		s.logAudit(ctx, audit.EventClubReactivated,
			"name", string(name),
			"actor", owner.String(),
			"token_id", tokenID,
		)
	}
	return restored, nil
}

func (s *Service) activeDomain(ctx context.Context, name names.Name) (*registry.Domain, error) {
	status, err := s.domains.Status(ctx, string(name))
	if err != nil {
		return nil, err
	}
	if status != registry.StatusActive {
		return nil, ErrDomainNotActive
	}
	return s.domains.Get(ctx, string(name))
}

func (s *Service) authorize(rec *Record, caller id.Address) error {
	if !caller.IsZero() && (caller == rec.Admin || s.pause.IsOwner(caller)) {
		return nil
	}
	return ErrNotClubAdmin
}

func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return ErrClubNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return ErrClubExists
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "club store failure")
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	observability.LogAudit(ctx, s.logger, s.auditPublisher, event, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg, append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)...)
}
