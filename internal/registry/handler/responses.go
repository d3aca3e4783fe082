package handler

import (
	"math/big"
	"time"

	"clubdomains/internal/registry"
)

type DomainResponse struct {
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name"`
	Owner        string    `json:"owner"`
	Status       string    `json:"status"`
	TokenID      uint64    `json:"token_id"`
	RegisteredAt time.Time `json:"registered_at"`
	Expiry       time.Time `json:"expiry"`
}

func FromDomain(d *registry.Domain, status registry.Status) DomainResponse {
	return DomainResponse{
		Name:         string(d.Name),
		DisplayName:  d.Name.Display(),
		Owner:        d.Owner.String(),
		Status:       string(status),
		TokenID:      d.TokenID,
		RegisteredAt: d.RegisteredAt,
		Expiry:       d.Expiry,
	}
}

type StatusResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
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
