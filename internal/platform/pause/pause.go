// Package pause provides the per-ledger kill switch and contract-owner check.
// A paused ledger rejects every mutation; reads stay available.
package pause

import (
	"sync/atomic"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
)

var (
	ErrPaused   = dErrors.New(dErrors.CodePaused, "contract is paused")
	ErrNotOwner = dErrors.New(dErrors.CodeForbidden, "caller is not the contract owner")
)

// Switch is safe for concurrent use.
type Switch struct {
	name   string
	owner  id.Address
	paused atomic.Bool
}

func New(name string, owner id.Address) *Switch {
	return &Switch{name: name, owner: owner}
}

func (s *Switch) Name() string      { return s.name }
func (s *Switch) Owner() id.Address { return s.owner }

// IsOwner reports whether caller is the configured contract owner.
// A zero owner never matches.
func (s *Switch) IsOwner(caller id.Address) bool {
	return !s.owner.IsZero() && caller == s.owner
}

// RequireOwner returns ErrNotOwner unless caller is the owner.
func (s *Switch) RequireOwner(caller id.Address) error {
	if !s.IsOwner(caller) {
		return ErrNotOwner
	}
	return nil
}

// Ensure returns ErrPaused while the switch is engaged. Call it first in every mutation.
func (s *Switch) Ensure() error {
	if s.paused.Load() {
		return ErrPaused
	}
	return nil
}

func (s *Switch) Paused() bool { return s.paused.Load() }

func (s *Switch) Pause(caller id.Address) error {
	if err := s.RequireOwner(caller); err != nil {
		return err
	}
	s.paused.Store(true)
	return nil
}

func (s *Switch) Unpause(caller id.Address) error {
	if err := s.RequireOwner(caller); err != nil {
		return err
	}
	s.paused.Store(false)
	return nil
}
