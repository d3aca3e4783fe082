// Package oracle bridges cross-chain verification between the service and
// off-chain oracles: requests are published as events, results come back
// asynchronously and are written through the allow-listed oracle identity.
package oracle

import (
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

// VerificationRequest asks an oracle to report user's balance of a remote token.
// Sequence is the request's position in the event log; it is the only
// correlation the requester gets.
type VerificationRequest struct {
	ID           uuid.UUID  `json:"id"`
	Name         names.Name `json:"name"`
	User         id.Address `json:"user"`
	ChainID      uint64     `json:"chain_id"`
	TokenAddress string     `json:"token_address"`
	Fee          *big.Int   `json:"fee"`
	RequestedAt  time.Time  `json:"requested_at"`
	Sequence     uint64     `json:"sequence"`
}

// VerificationResult is an oracle's answer to a request.
type VerificationResult struct {
	RequestID    uuid.UUID  `json:"request_id"`
	Name         names.Name `json:"name"`
	User         id.Address `json:"user"`
	ChainID      uint64     `json:"chain_id"`
	TokenAddress string     `json:"token_address"`
	Balance      *big.Int   `json:"balance"`
}

var ErrInvalidResult = dErrors.New(dErrors.CodeValidation, "invalid verification result")

// Validate checks the fields the write-back path depends on.
func (r *VerificationResult) Validate() error {
	if r == nil {
		return ErrInvalidResult
	}
	if _, ok := names.Normalize(string(r.Name)); !ok {
		return dErrors.Wrap(ErrInvalidResult, dErrors.CodeValidation, "name is invalid")
	}
	if r.User.IsZero() {
		return dErrors.Wrap(ErrInvalidResult, dErrors.CodeValidation, "user is required")
	}
	if r.ChainID == 0 {
		return dErrors.Wrap(ErrInvalidResult, dErrors.CodeValidation, "chain_id is required")
	}
	if strings.TrimSpace(r.TokenAddress) == "" {
		return dErrors.Wrap(ErrInvalidResult, dErrors.CodeValidation, "token_address is required")
	}
	if r.Balance == nil || r.Balance.Sign() < 0 {
		return dErrors.Wrap(ErrInvalidResult, dErrors.CodeValidation, "balance must be a non-negative integer")
	}
	return nil
}
