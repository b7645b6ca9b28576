package auth

import (
	"testing"
	"time"

	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.Issue(42)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, err := svc.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, int32(42), userID)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("secret", -time.Minute)

	token, err := svc.Issue(42)
	assert.NoError(t, err)

	userID, err := svc.Verify(token)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenExpired)
	assert.Equal(t, int32(0), userID)
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := NewTokenService("secret", time.Hour)
	verifier := NewTokenService("other-secret", time.Hour)

	token, err := issuer.Issue(42)
	assert.NoError(t, err)

	userID, err := verifier.Verify(token)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidToken)
	assert.Equal(t, int32(0), userID)
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	userID, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidToken)
	assert.Equal(t, int32(0), userID)
}

func TestTokenService_EmptySecret(t *testing.T) {
	svc := NewTokenService("", time.Hour)

	token, err := svc.Issue(42)
	assert.Error(t, err)
	assert.Empty(t, token)
}
