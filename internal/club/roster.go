package club

import (
	"context"

	"clubdomains/internal/membership/source"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
)

var _ source.Roster = (*Service)(nil)

// AddMember appends user to the roster. Admin or owner only.
func (s *Service) AddMember(ctx context.Context, caller id.Address, name names.Name, user id.Address) (bool, error) {
	if err := s.pause.Ensure(); err != nil {
		return false, err
	}
	if user.IsZero() {
		return false, ErrInvalidMember
	}
	var added bool
	err := s.store.Update(ctx, name, func(r *Record) error {
		if err := s.authorize(r, caller); err != nil {
			return err
		}
		added = r.addMember(user)
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}
	if added {
		s.logAudit(ctx, audit.EventMemberAdded,
			"name", string(name),
			"actor", caller.String(),
			"target", user.String(),
		)
	}
	return added, nil
}

// RecordMember appends a member on behalf of a membership source.
func (s *Service) RecordMember(ctx context.Context, name names.Name, user id.Address) error {
	if user.IsZero() {
		return ErrInvalidMember
	}
	var added bool
	err := s.store.Update(ctx, name, func(r *Record) error {
		added = r.addMember(user)
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	if added {
		s.logAudit(ctx, audit.EventMemberAdded, "name", string(name), "target", user.String())
	}
	return nil
}

// RemoveMember never removes anyone: membership is not revocable. An
// authorized call succeeds without touching the roster and is audited.
func (s *Service) RemoveMember(ctx context.Context, caller id.Address, name names.Name, user id.Address) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	rec, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := s.authorize(rec, caller); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventMembershipRevocationIgnored,
		"name", string(name),
		"actor", caller.String(),
		"target", user.String(),
		"reason", "membership is not revocable",
	)
	return nil
}

func (s *Service) Get(ctx context.Context, name names.Name) (*Record, error) {
	rec, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, storeErr(err)
	}
	return rec, nil
}

func (s *Service) Members(ctx context.Context, name names.Name) ([]id.Address, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return rec.Members, nil
}

func (s *Service) IsRosterMember(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return rec.HasMember(user), nil
}
