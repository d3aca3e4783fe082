package handler

import (
	"encoding/hex"
	"math/big"
	"strings"

	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

const maxSecretBytes = 64

// CommitRequest is the body for POST /registry/commitments.
type CommitRequest struct {
	Commitment string `json:"commitment"`
	Deposit    string `json:"deposit,omitempty"`

	hash    registry.Hash
	deposit *big.Int
}

func (r *CommitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	hash, err := registry.ParseHash(strings.TrimSpace(r.Commitment))
	if err != nil {
		return err
	}
	deposit, err := id.ParseAmount(r.Deposit)
	if err != nil {
		return err
	}
	r.hash, r.deposit = hash, deposit
	return nil
}

// MakeCommitmentRequest is the body for POST /registry/commitments/compute.
type MakeCommitmentRequest struct {
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Secret string `json:"secret"`

	name   names.Name
	owner  id.Address
	secret []byte
}

func (r *MakeCommitmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	name, err := names.Parse(strings.TrimSpace(r.Name))
	if err != nil {
		return err
	}
	owner, err := id.ParseAddress(r.Owner)
	if err != nil {
		return err
	}
	secret, err := decodeSecret(r.Secret)
	if err != nil {
		return err
	}
	r.name, r.owner, r.secret = name, owner, secret
	return nil
}

// RegisterRequest is the body for POST /registry/domains.
type RegisterRequest struct {
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	Secret  string `json:"secret"`
	Years   int    `json:"years"`
	Payment string `json:"payment,omitempty"`

	owner   id.Address
	secret  []byte
	payment *big.Int
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	owner, err := id.ParseAddress(r.Owner)
	if err != nil {
		return err
	}
	secret, err := decodeSecret(r.Secret)
	if err != nil {
		return err
	}
	payment, err := id.ParseAmount(r.Payment)
	if err != nil {
		return err
	}
	r.owner, r.secret, r.payment = owner, secret, payment
	return nil
}

// ToDomain builds the registry request for caller-independent fields.
func (r *RegisterRequest) ToDomain() registry.RegisterRequest {
	return registry.RegisterRequest{
		Name:    r.Name,
		Owner:   r.owner,
		Secret:  r.secret,
		Years:   r.Years,
		Payment: r.payment,
	}
}

// RenewRequest is the body for POST /registry/domains/{name}/renew.
type RenewRequest struct {
	Years   int    `json:"years"`
	Payment string `json:"payment,omitempty"`

	payment *big.Int
}

func (r *RenewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	payment, err := id.ParseAmount(r.Payment)
	if err != nil {
		return err
	}
	r.payment = payment
	return nil
}

// AmountRequest is the body for escrow funding.
type AmountRequest struct {
	Amount string `json:"amount"`

	amount *big.Int
}

func (r *AmountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Amount) == "" {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	amount, err := id.ParseAmount(r.Amount)
	if err != nil {
		return err
	}
	r.amount = amount
	return nil
}

// TransferRequest is the body for POST /registry/domains/{name}/transfer.
type TransferRequest struct {
	To string `json:"to"`

	to id.Address
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	to, err := id.ParseAddress(r.To)
	if err != nil {
		return err
	}
	r.to = to
	return nil
}

func decodeSecret(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "secret is required")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "secret must be hex encoded")
	}
	if len(b) > maxSecretBytes {
		return nil, dErrors.New(dErrors.CodeValidation, "secret is too long")
	}
	return b, nil
}
