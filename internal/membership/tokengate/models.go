package tokengate

import (
	"math/big"
	"strings"

	"github.com/google/uuid"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

// MaxGates bounds the rules per club so a membership check stays cheap.
const MaxGates = 10

// GateKind selects how a gate is evaluated.
type GateKind string

const (
	// KindFungible compares a fungible token balance.
	KindFungible GateKind = "fungible"
	// KindNFTCount compares the number of NFTs held in a collection.
	KindNFTCount GateKind = "nft_count"
	// KindNFTBalance compares the balance of one token id in a multi-token contract.
	KindNFTBalance GateKind = "nft_balance"
	// KindCrossChain is satisfied by oracle reports, never by local reads.
	KindCrossChain GateKind = "cross_chain"
)

var (
	ErrInvalidGate  = dErrors.New(dErrors.CodeInvalidInput, "invalid gate")
	ErrGateNotFound = dErrors.New(dErrors.CodeNotFound, "gate not found")
	ErrTooManyGates = dErrors.New(dErrors.CodeInvalidState, "club has the maximum number of gates")
)

// Gate is one eligibility rule.
type Gate struct {
	ID           uuid.UUID  `json:"id"`
	Kind         GateKind   `json:"kind"`
	TokenAddress id.Address `json:"token_address"`
	Threshold    *big.Int   `json:"threshold"`
	// TokenID applies to KindNFTBalance only.
	TokenID *big.Int `json:"token_id,omitempty"`
	// ChainID, Symbol and RemoteAddress describe a KindCrossChain gate.
	ChainID       uint64 `json:"chain_id,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	RemoteAddress string `json:"remote_address,omitempty"`
}

func (g Gate) IsLocal() bool { return g.Kind != KindCrossChain }

// Validate checks the fields required by the gate kind.
func (g Gate) Validate() error {
	if !id.IsPositive(g.Threshold) {
		return dErrors.Wrap(ErrInvalidGate, dErrors.CodeInvalidInput, "threshold must be positive")
	}
	switch g.Kind {
	case KindFungible, KindNFTCount:
		if g.TokenAddress.IsZero() {
			return dErrors.Wrap(ErrInvalidGate, dErrors.CodeInvalidInput, "token address is required")
		}
	case KindNFTBalance:
		if g.TokenAddress.IsZero() {
			return dErrors.Wrap(ErrInvalidGate, dErrors.CodeInvalidInput, "token address is required")
		}
		if g.TokenID == nil || g.TokenID.Sign() < 0 {
			return dErrors.Wrap(ErrInvalidGate, dErrors.CodeInvalidInput, "token id is required")
		}
	case KindCrossChain:
		if g.ChainID == 0 {
			return dErrors.Wrap(ErrInvalidGate, dErrors.CodeInvalidInput, "chain id is required")
		}
		if strings.TrimSpace(g.RemoteAddress) == "" {
			return dErrors.Wrap(ErrInvalidGate, dErrors.CodeInvalidInput, "remote address is required")
		}
	default:
		return dErrors.Wrap(ErrInvalidGate, dErrors.CodeInvalidInput, "unknown gate kind")
	}
	return nil
}

func (g Gate) clone() Gate {
	g.Threshold = id.Copy(g.Threshold)
	if g.TokenID != nil {
		g.TokenID = id.Copy(g.TokenID)
	}
	return g
}

// Club holds the gates of one club.
type Club struct {
	Name  names.Name
	Admin id.Address
	Gates []Gate
}

func (c *Club) Clone() *Club {
	out := *c
	out.Gates = make([]Gate, len(c.Gates))
	for i, g := range c.Gates {
		out.Gates[i] = g.clone()
	}
	return &out
}

func (c *Club) indexOf(gateID uuid.UUID) int {
	for i, g := range c.Gates {
		if g.ID == gateID {
			return i
		}
	}
	return -1
}
