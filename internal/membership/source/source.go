// Package source defines the capability shared by every membership source and
// the per-club admin bookkeeping they have in common.
package source

import (
	"context"
	"errors"
	"fmt"

	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/sentinel"
)

// Kind names a membership source. The order of the constants is the
// aggregator's precedence order.
type Kind string

const (
	KindPermanent  Kind = "permanent"
	KindTemporary  Kind = "temporary"
	KindTokenGate  Kind = "token_gate"
	KindCrossChain Kind = "cross_chain"
)

// Provider is the membership capability every source exposes.
type Provider interface {
	Kind() Kind
	// HasMembership reports whether user ever obtained membership.
	HasMembership(ctx context.Context, name names.Name, user id.Address) (bool, error)
	// HasActiveMembership reports whether user's membership is valid now.
	HasActiveMembership(ctx context.Context, name names.Name, user id.Address) (bool, error)
}

// Roster receives acquisitions so the club roster stays in sync.
type Roster interface {
	RecordMember(ctx context.Context, name names.Name, user id.Address) error
}

var (
	ErrNotInitialized     = dErrors.New(dErrors.CodeInvalidState, "club is not initialized in this source")
	ErrAlreadyInitialized = dErrors.New(dErrors.CodeConflict, "club is already initialized in this source")
	ErrNotAdmin           = dErrors.New(dErrors.CodeForbidden, "caller is not the club admin or contract owner")
	ErrZeroAddress        = dErrors.New(dErrors.CodeInvalidInput, "address must not be zero")
	ErrInvalidAmount      = dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	ErrInsufficientFunds  = dErrors.New(dErrors.CodeInsufficientFunds, "payment does not cover the price")
	ErrNothingToWithdraw  = dErrors.New(dErrors.CodeInvalidState, "nothing to withdraw")
)

// Category classifies a probe failure.
type Category string

const (
	CategoryNotInitialized Category = "not_initialized"
	CategoryDependency     Category = "dependency"
	CategoryPanic          Category = "panic"
	CategoryInternal       Category = "internal"
)

// SourceError is a failed membership probe, attributed to its source.
type SourceError struct {
	Kind     Kind
	Category Category
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source (%s): %v", e.Kind, e.Category, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError categorizes err for kind.
func NewSourceError(kind Kind, err error) *SourceError {
	category := CategoryInternal
	switch {
	case errors.Is(err, ErrNotInitialized):
		category = CategoryNotInitialized
	case dErrors.HasCode(err, dErrors.CodeDependency), errors.Is(err, sentinel.ErrUnavailable):
		category = CategoryDependency
	}
	return &SourceError{Kind: kind, Category: category, Err: err}
}

// Authorize passes when caller is the club admin or the contract owner.
func Authorize(sw *pause.Switch, admin, caller id.Address) error {
	if !caller.IsZero() && (caller == admin || sw.IsOwner(caller)) {
		return nil
	}
	return ErrNotAdmin
}

// StoreErr maps store facts onto source errors; domain errors pass through.
func StoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return ErrNotInitialized
	case errors.Is(err, sentinel.ErrConflict):
		return ErrAlreadyInitialized
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "membership store failure")
}
