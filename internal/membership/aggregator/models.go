package aggregator

import "time"

// Type is the membership kind that decided a classification.
type Type string

const (
	TypeNone       Type = "none"
	TypePermanent  Type = "permanent"
	TypeTemporary  Type = "temporary"
	TypeTokenGate  Type = "token_gate"
	TypeCrossChain Type = "cross_chain"
	// TypeInactive marks a user whose only membership is a lapsed subscription.
	TypeInactive Type = "inactive"
)

// Classification is the single best membership a user holds in a club.
// Expiry is set for TypeTemporary and TypeInactive only.
type Classification struct {
	IsMember bool      `json:"is_member"`
	Expiry   time.Time `json:"expiry,omitempty"`
	Type     Type      `json:"type"`
}

// Details reports every source independently.
type Details struct {
	IsPermanent  bool `json:"is_permanent"`
	IsTemporary  bool `json:"is_temporary"`
	IsTokenBased bool `json:"is_token_based"`
	IsCrossChain bool `json:"is_cross_chain"`
}
