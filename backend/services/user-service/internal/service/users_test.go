package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/retry"
	"evcharge/backend/services/user-service/internal/password"
	"evcharge/backend/services/user-service/internal/repository"
)

func newTestService(wallets *fakeWallets) (*UserService, *auth.TokenService) {
	tokens := auth.NewTokenService("secret", time.Hour)
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	svc := NewUserService(repository.NewMemoryUserStore(), password.NewBcryptHasher(bcrypt.MinCost, 8), tokens, wallets, policy, zap.NewNop())
	return svc, tokens
}

func TestSignupProvisionsWallet(t *testing.T) {
	wallets := &fakeWallets{failures: 1}
	svc, _ := newTestService(wallets)

	user, err := svc.Signup(context.Background(), " Driver@Example.com ", "long enough")
	require.NoError(t, err)
	assert.Equal(t, "driver@example.com", user.Email)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "long enough", user.PasswordHash)
	assert.Equal(t, 2, wallets.callCount())
}

func TestSignupSurvivesProvisioningFailure(t *testing.T) {
	wallets := &fakeWallets{err: errors.New("boom")}
	svc, _ := newTestService(wallets)

	user, err := svc.Signup(context.Background(), "a@example.com", "long enough")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, 1, wallets.callCount())
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(&fakeWallets{})
	ctx := context.Background()

	_, err := svc.Signup(ctx, "not-an-email", "long enough")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Signup(ctx, "Bob <bob@example.com>", "long enough")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Signup(ctx, "bob@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Signup(ctx, "bob@example.com", "long enough")
	require.NoError(t, err)
	_, err = svc.Signup(ctx, "BOB@example.com", "another one")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestLogin(t *testing.T) {
	svc, tokens := newTestService(&fakeWallets{})
	ctx := context.Background()
	user, err := svc.Signup(ctx, "carol@example.com", "long enough")
	require.NoError(t, err)

	session, err := svc.Login(ctx, "CAROL@example.com", "long enough")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	claims, err := tokens.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.Login(ctx, "carol@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "long enough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLookups(t *testing.T) {
	svc, _ := newTestService(&fakeWallets{})
	ctx := context.Background()
	user, err := svc.Signup(ctx, "dave@example.com", "long enough")
	require.NoError(t, err)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", got.Email)

	got, err = svc.GetByEmail(ctx, "Dave@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Get(ctx, 42)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
