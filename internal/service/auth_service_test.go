package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newAuthService() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 60
	cfg.Auth.BcryptCost = 4
	return NewAuthService(cfg, users), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()

	user, token, exp, err := svc.Register(context.Background(), "Pat", "pat@example.com", "hunter2222")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEmpty(t, token)
	assert.False(t, exp.IsZero())
	assert.NotEqual(t, "hunter2222", user.PasswordHash)

	logged, token, _, err := svc.Login(context.Background(), "pat@example.com", "hunter2222")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()

	_, _, _, err := svc.Register(context.Background(), "Pat", "pat@example.com", "hunter2222")
	require.NoError(t, err)

	_, _, _, err = svc.Register(context.Background(), "Sam", "pat@example.com", "hunter2222")
	assertDomainCode(t, err, "CONFLICT")
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newAuthService()

	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "x")
	assertDomainCode(t, err, "UNAUTHORIZED")

	_, _, _, err = svc.Register(context.Background(), "Pat", "pat@example.com", "hunter2222")
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "pat@example.com", "wrong-password")
	assertDomainCode(t, err, "UNAUTHORIZED")
}
