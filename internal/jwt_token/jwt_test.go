package jwttoken

import (
	"strings"
	"testing"
	"time"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jwtService = NewJWTService("test-signing-key", "test-issuer", "test-audience")
	caller     = id.MustAddress("0x" + strings.Repeat("c0", 20))
)

func Test_IssueCallerToken(t *testing.T) {
	token, err := jwtService.IssueCallerToken(caller, time.Hour)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller.String(), claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	got, err := jwtService.ValidateCaller(token)
	require.NoError(t, err)
	assert.Equal(t, caller, got)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.IssueCallerToken(caller, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "test-issuer", "other-audience")
	token, err := other.IssueCallerToken(caller, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateCaller(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
