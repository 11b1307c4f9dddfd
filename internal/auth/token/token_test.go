package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workboard/internal/domain"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
)

var tokenService = NewService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var userID = id.NewUserID()
var sessionID = id.NewSessionID()
var expiresIn = time.Hour

func Test_GenerateRoundTrip(t *testing.T) {
	token, err := tokenService.Generate(userID, sessionID, domain.RoleManager, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokenService.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, string(domain.RoleManager), claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_Validate_InvalidToken(t *testing.T) {
	_, err := tokenService.Validate("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_Validate_ExpiredToken(t *testing.T) {
	token, err := tokenService.Generate(userID, sessionID, domain.RoleMember, -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.Validate(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_Validate_WrongKey(t *testing.T) {
	other := NewService("other-key", "test-issuer", "test-audience")
	token, err := other.Generate(userID, sessionID, domain.RoleMember, expiresIn)
	require.NoError(t, err)

	_, err = tokenService.Validate(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}
