package httputil

import (
	"context"
	"net/http"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/requestcontext"
)

// RequireCaller returns the authenticated caller or writes 401.
func RequireCaller(w http.ResponseWriter, ctx context.Context) (id.Address, bool) {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ZeroAddress, false
	}
	return caller, true
}
