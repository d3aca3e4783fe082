package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	id "clubdomains/pkg/domain"
	"clubdomains/pkg/requestcontext"
)

type stubValidator struct {
	caller id.Address
	err    error
}

func (s stubValidator) ValidateCaller(string) (id.Address, error) { return s.caller, s.err }

func TestRequireCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	alice := id.MustAddress("0x" + strings.Repeat("a1", 20))

	var seen id.Address
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		h := RequireCaller(stubValidator{caller: alice}, logger)(next)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		h := RequireCaller(stubValidator{err: errors.New("bad signature")}, logger)(next)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token sets caller", func(t *testing.T) {
		h := RequireCaller(stubValidator{caller: alice}, logger)(next)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, alice, seen)
	})
}
