package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndValidate(t *testing.T) {
	m, err := NewManager("s3cret", "plantpal-idp")
	require.NoError(t, err)

	token, err := m.Issue("u1", "u1@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1@example.com", claims.Email)
}

func TestManager_RejectsExpired(t *testing.T) {
	m, err := NewManager("s3cret", "")
	require.NoError(t, err)

	token, err := m.Issue("u1", "", -time.Hour)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_RejectsForeignSecretAndIssuer(t *testing.T) {
	m, err := NewManager("s3cret", "plantpal-idp")
	require.NoError(t, err)

	other, err := NewManager("other", "plantpal-idp")
	require.NoError(t, err)
	token, err := other.Issue("u1", "", time.Minute)
	require.NoError(t, err)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewManager("s3cret", "someone-else")
	require.NoError(t, err)
	token, err = wrongIssuer.Issue("u1", "", time.Minute)
	require.NoError(t, err)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManager_EmptySecret(t *testing.T) {
	_, err := NewManager("", "")
	assert.Error(t, err)
}
