package admin

import (
	"time"

	"clubdomains/pkg/platform/audit"
)

// AuditEventResponse is the HTTP response DTO for one audit event.
type AuditEventResponse struct {
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Target    string    `json:"target,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// AuditListResponse wraps audit events for HTTP response.
type AuditListResponse struct {
	Events []AuditEventResponse `json:"events"`
	Total  int                  `json:"total"`
}

// KeeperResponse reports how many records a keeper run changed.
type KeeperResponse struct {
	Job       string `json:"job"`
	Processed int    `json:"processed"`
}

// PauseResponse reports the state of one ledger's pause switch.
type PauseResponse struct {
	Ledger string `json:"ledger"`
	Paused bool   `json:"paused"`
}

// PauseListResponse lists every switch, sorted by ledger name.
type PauseListResponse struct {
	Ledgers []PauseResponse `json:"ledgers"`
}

func fromEvents(events []audit.Event) AuditListResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEventResponse{
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Subject:   e.Subject,
			Action:    e.Action,
			Actor:     e.Actor,
			Target:    e.Target,
			Reason:    e.Reason,
			RequestID: e.RequestID,
		})
	}
	return AuditListResponse{Events: out, Total: len(out)}
}

// TokenResponse carries a freshly issued caller token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
