package handler

import (
	"math/big"
	"time"

	"clubdomains/internal/membership/aggregator"
	"clubdomains/internal/membership/crosschain"
	"clubdomains/internal/membership/tokengate"
)

// MembershipResponse combines the classification with the per-source view.
type MembershipResponse struct {
	Name           string                    `json:"name"`
	User           string                    `json:"user"`
	IsMember       bool                      `json:"is_member"`
	Classification aggregator.Classification `json:"classification"`
	Details        aggregator.Details        `json:"details"`
}

type PassResponse struct {
	Name    string `json:"name"`
	TokenID uint64 `json:"token_id"`
	Holder  string `json:"holder"`
}

type SubscriptionResponse struct {
	Name   string    `json:"name"`
	User   string    `json:"user"`
	Expiry time.Time `json:"expiry,omitempty"`
	Active bool      `json:"active"`
	Known  bool      `json:"known"`
}

type GatesResponse struct {
	Name  string           `json:"name"`
	Gates []tokengate.Gate `json:"gates"`
}

type CrossChainResponse struct {
	Name    string               `json:"name"`
	User    string               `json:"user"`
	Records []*crosschain.Record `json:"records"`
}

type VerificationResponse struct {
	ID       string `json:"id"`
	Sequence uint64 `json:"sequence"`
}

// AmountResponse carries a wei-denominated amount as a decimal string.
type AmountResponse struct {
	Amount string `json:"amount"`
}

func amount(v *big.Int) AmountResponse {
	if v == nil {
		return AmountResponse{Amount: "0"}
	}
	return AmountResponse{Amount: v.String()}
}
