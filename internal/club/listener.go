package club

import (
	"context"
	"errors"
	"time"

	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/requestcontext"
)

var _ registry.DomainListener = (*Service)(nil)

// DomainRegistered reconciles an existing club with a fresh registration of
// its name. The same registrant gets the club back as it was; anyone else
// inherits it pending confirmation. Names without a club are ignored.
func (s *Service) DomainRegistered(ctx context.Context, ev registry.DomainEvent) error {
	rec, err := s.Get(ctx, ev.Name)
	if errors.Is(err, ErrClubNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if ev.Owner == rec.Registrant {
		err := s.store.Update(ctx, ev.Name, func(r *Record) error {
			r.Active = true
			r.PendingInheritance = false
			r.TokenID = ev.TokenID
			return nil
		})
		if err != nil {
			return storeErr(err)
		}
		s.logAudit(ctx, audit.EventClubReactivated,
			"name", string(ev.Name),
			"actor", ev.Owner.String(),
			"token_id", ev.TokenID,
		)
		return nil
	}
	return s.inherit(ctx, ev.Name, ev.Owner, ev.TokenID, reasonReregistration)
}

// DomainTransferred moves the club to the new registrant.
func (s *Service) DomainTransferred(ctx context.Context, ev registry.TransferEvent) error {
	if _, err := s.Get(ctx, ev.Name); err != nil {
		if errors.Is(err, ErrClubNotFound) {
			return nil
		}
		return err
	}
	return s.inherit(ctx, ev.Name, ev.To, ev.TokenID, reasonDomainTransfer)
}

// DomainRenewed brings back a club that lapsed while its domain sat in grace.
func (s *Service) DomainRenewed(ctx context.Context, ev registry.DomainEvent) error {
	if _, err := s.Get(ctx, ev.Name); err != nil {
		if errors.Is(err, ErrClubNotFound) {
			return nil
		}
		return err
	}
	_, err := s.restore(ctx, ev.Name, ev.Owner, ev.TokenID)
	return err
}

// DomainReleased deactivates the club when its name token is destroyed.
func (s *Service) DomainReleased(ctx context.Context, ev registry.DomainEvent) error {
	if _, err := s.Get(ctx, ev.Name); err != nil {
		if errors.Is(err, ErrClubNotFound) {
			return nil
		}
		return err
	}
	return s.deactivate(ctx, ev.Name, Transition{
		PreviousOwner:  ev.Owner,
		OldTokenID:     ev.TokenID,
		TokenDestroyed: true,
		At:             requestcontext.Now(ctx),
	})
}

// inherit hands the club to a new registrant. The roster and gates are kept;
// the club stays inactive until the heir confirms unless auto-activation is on.
func (s *Service) inherit(ctx context.Context, name names.Name, heir id.Address, tokenID uint64, reason string) error {
	auto := s.cfg.AutoActivateOnTransfer
	_, err := s.reassign(ctx, name, heir, func(r *Record, now time.Time) {
		r.changeAdmin(heir, reason, now)
		r.Registrant = heir
		r.TokenID = tokenID
		r.Active = auto
		r.PendingInheritance = !auto
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventClubAdminTransferred,
		"name", string(name),
		"target", heir.String(),
		"reason", reason,
	)
	if !auto {
		s.logAudit(ctx, audit.EventClubInheritancePending, "name", string(name), "target", heir.String())
	}
	return nil
}
