package registry

import (
	dErrors "clubdomains/pkg/domain-errors"
)

// Each rejection has a distinct reason comparable with errors.Is.
var (
	ErrInvalidDuration    = dErrors.New(dErrors.CodeInvalidInput, "invalid registration duration")
	ErrZeroAddress        = dErrors.New(dErrors.CodeInvalidInput, "owner must not be the zero address")
	ErrInvalidAmount      = dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	ErrInvalidCommitment  = dErrors.New(dErrors.CodeInvalidInput, "commitment hash must not be zero")
	ErrCommitmentExists   = dErrors.New(dErrors.CodeConflict, "commitment already pending")
	ErrCommitmentNotFound = dErrors.New(dErrors.CodeNotFound, "commitment not found")
	ErrCommitmentTooNew   = dErrors.New(dErrors.CodeInvalidState, "commitment is too new")
	ErrCommitmentExpired  = dErrors.New(dErrors.CodeInvalidState, "commitment has expired")
	ErrNameUnavailable    = dErrors.New(dErrors.CodeConflict, "name is not available")
	ErrInsufficientFunds  = dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds")
	ErrDomainNotFound     = dErrors.New(dErrors.CodeNotFound, "domain not registered")
	ErrNotRenewable       = dErrors.New(dErrors.CodeInvalidState, "domain is not renewable")
	ErrNotDomainOwner     = dErrors.New(dErrors.CodeForbidden, "caller is not the domain owner")
	ErrNotTransferable    = dErrors.New(dErrors.CodeInvalidState, "domain is not active")
	ErrNotReclaimable     = dErrors.New(dErrors.CodeInvalidState, "domain is not reclaimable")
	ErrAutoRenewalNotDue  = dErrors.New(dErrors.CodeInvalidState, "auto-renewal is not due")
	ErrInsufficientEscrow = dErrors.New(dErrors.CodeInsufficientFunds, "auto-renewal escrow is insufficient")
	ErrNothingToWithdraw  = dErrors.New(dErrors.CodeInvalidState, "nothing to withdraw")
)
