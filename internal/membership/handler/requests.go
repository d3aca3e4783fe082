package handler

import (
	"math/big"
	"strings"

	"clubdomains/internal/membership/subscription"
	"clubdomains/internal/membership/tokengate"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
)

func requireBody[T any](r *T) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

func requiredAmount(field, raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	return id.ParseAmount(raw)
}

// PriceRequest sets a pass price. Zero closes the sale.
type PriceRequest struct {
	Price string `json:"price"`

	price *big.Int
}

func (r *PriceRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	price, err := requiredAmount("price", r.Price)
	if err != nil {
		return err
	}
	r.price = price
	return nil
}

// PaymentRequest carries a purchase payment.
type PaymentRequest struct {
	Payment string `json:"payment"`

	payment *big.Int
}

func (r *PaymentRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	payment, err := requiredAmount("payment", r.Payment)
	if err != nil {
		return err
	}
	r.payment = payment
	return nil
}

// AddressRequest names a single address: a mint recipient, a pass transfer
// target, a receiver or an oracle.
type AddressRequest struct {
	Address string `json:"address"`

	address id.Address
}

func (r *AddressRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	addr, err := id.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.address = addr
	return nil
}

type TransferPolicyRequest struct {
	Allowed bool `json:"allowed"`
}

func (r *TransferPolicyRequest) Validate() error { return requireBody(r) }

type WhitelistRequest struct {
	Address string `json:"address"`
	Allowed bool   `json:"allowed"`

	address id.Address
}

func (r *WhitelistRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	addr, err := id.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.address = addr
	return nil
}

type TierPriceRequest struct {
	Tier  string `json:"tier"`
	Price string `json:"price"`

	tier  subscription.Tier
	price *big.Int
}

func (r *TierPriceRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	tier, err := subscription.ParseTier(strings.TrimSpace(r.Tier))
	if err != nil {
		return err
	}
	price, err := requiredAmount("price", r.Price)
	if err != nil {
		return err
	}
	r.tier, r.price = tier, price
	return nil
}

type SubscribeRequest struct {
	Tier    string `json:"tier"`
	Payment string `json:"payment"`

	tier    subscription.Tier
	payment *big.Int
}

func (r *SubscribeRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	tier, err := subscription.ParseTier(strings.TrimSpace(r.Tier))
	if err != nil {
		return err
	}
	payment, err := requiredAmount("payment", r.Payment)
	if err != nil {
		return err
	}
	r.tier, r.payment = tier, payment
	return nil
}

// GateRequest is the body for POST /clubs/{name}/gates.
type GateRequest struct {
	Kind          string `json:"kind"`
	TokenAddress  string `json:"token_address,omitempty"`
	Threshold     string `json:"threshold"`
	TokenID       string `json:"token_id,omitempty"`
	ChainID       uint64 `json:"chain_id,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	RemoteAddress string `json:"remote_address,omitempty"`

	gate tokengate.Gate
}

func (r *GateRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	threshold, err := requiredAmount("threshold", r.Threshold)
	if err != nil {
		return err
	}
	g := tokengate.Gate{
		Kind:          tokengate.GateKind(strings.TrimSpace(r.Kind)),
		Threshold:     threshold,
		ChainID:       r.ChainID,
		Symbol:        strings.TrimSpace(r.Symbol),
		RemoteAddress: strings.TrimSpace(r.RemoteAddress),
	}
	if strings.TrimSpace(r.TokenAddress) != "" {
		if g.TokenAddress, err = id.ParseAddress(r.TokenAddress); err != nil {
			return err
		}
	}
	if strings.TrimSpace(r.TokenID) != "" {
		if g.TokenID, err = id.ParseAmount(r.TokenID); err != nil {
			return err
		}
	}
	if err := g.Validate(); err != nil {
		return err
	}
	r.gate = g
	return nil
}

// VerificationRequest asks an oracle to check the caller's remote balance.
type VerificationRequest struct {
	ChainID      uint64 `json:"chain_id"`
	TokenAddress string `json:"token_address"`
	Fee          string `json:"fee"`

	fee *big.Int
}

func (r *VerificationRequest) Validate() error {
	if err := requireBody(r); err != nil {
		return err
	}
	if r.ChainID == 0 {
		return dErrors.New(dErrors.CodeValidation, "chain_id is required")
	}
	r.TokenAddress = strings.TrimSpace(r.TokenAddress)
	if r.TokenAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "token_address is required")
	}
	fee, err := requiredAmount("fee", r.Fee)
	if err != nil {
		return err
	}
	r.fee = fee
	return nil
}
