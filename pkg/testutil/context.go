package testutil

import (
	"context"
	"net/http"
	"time"

	id "clubdomains/pkg/domain"
	"clubdomains/pkg/requestcontext"
)

// Addr returns a deterministic, non-zero address derived from seed.
func Addr(seed byte) id.Address {
	var a id.Address
	for i := range a {
		a[i] = seed
	}
	a[0] = 0x01
	return a
}

// WithCaller adds a caller address to the request context.
// This simulates what the caller-auth middleware does for authenticated requests.
func WithCaller(req *http.Request, caller id.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// At returns a context whose request time is t.
func At(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
