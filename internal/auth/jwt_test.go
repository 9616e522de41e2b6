package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager("secret", "roomloop", time.Hour)

	token, err := m.Generate(42, "ada")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "roomloop", claims.Issuer)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	m := NewJWTManager("secret", "roomloop", time.Hour)

	other, err := NewJWTManager("other-secret", "roomloop", time.Hour).Generate(42, "ada")
	require.NoError(t, err)
	_, err = m.Validate(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTManager("secret", "someone-else", time.Hour).Generate(42, "ada")
	require.NoError(t, err)
	_, err = m.Validate(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Validate(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpired(t *testing.T) {
	m := NewJWTManager("secret", "", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.Generate(1, "bob")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestMissingSecret(t *testing.T) {
	m := NewJWTManager("", "", 0)
	_, err := m.Generate(1, "bob")
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = m.Validate("x")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestValidateRejectsMissingUser(t *testing.T) {
	m := NewJWTManager("secret", "", time.Hour)
	token, err := m.Generate(0, "ghost")
	require.NoError(t, err)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
