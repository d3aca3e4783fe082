// Package observability provides the audit logging helper shared by ledger services.
package observability

import (
	"context"
	"log/slog"

	"clubdomains/pkg/attrs"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/requestcontext"
)

// LogAudit writes an audit line to the structured logger and emits the event
// to publisher. Attributes are slog-style key/value pairs; "name", "actor",
// "target" and "reason" string values are lifted onto the audit event.
// Publisher failures are logged and never fail the caller.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher audit.Publisher, event audit.AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	args := append(attrList, "event", string(event), "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}
	if publisher == nil {
		return
	}
	err := publisher.Emit(ctx, audit.Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   attrs.ExtractString(attrList, "name"),
		Action:    string(event),
		Actor:     attrs.ExtractString(attrList, "actor"),
		Target:    attrs.ExtractString(attrList, "target"),
		Reason:    attrs.ExtractString(attrList, "reason"),
		RequestID: requestID,
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}
