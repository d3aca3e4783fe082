package admin

import (
	"time"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
)

const maxTokenTTL = 30 * 24 * time.Hour

// TokenRequest is the body for POST /admin/tokens.
type TokenRequest struct {
	Caller string `json:"caller"`
	// TTL is a Go duration string; empty uses the default.
	TTL string `json:"ttl,omitempty"`

	caller id.Address
	ttl    time.Duration
}

func (r *TokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	caller, err := id.ParseAddress(r.Caller)
	if err != nil {
		return err
	}
	r.caller = caller
	if r.TTL != "" {
		ttl, err := time.ParseDuration(r.TTL)
		if err != nil || ttl <= 0 || ttl > maxTokenTTL {
			return dErrors.New(dErrors.CodeValidation, "ttl must be a positive duration up to 720h")
		}
		r.ttl = ttl
	}
	return nil
}
