package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/retry"
	"evcharge/backend/services/user-service/internal/models"
	"evcharge/backend/services/user-service/internal/password"
	"evcharge/backend/services/user-service/internal/repository"
)

var (
	// ErrEmailInUse is returned when attempting to register duplicate email.
	ErrEmailInUse = errors.New("user: email already registered")
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	// ErrInvalidEmail rejects malformed addresses.
	ErrInvalidEmail = errors.New("user: invalid email")
	// ErrWeakPassword rejects passwords the hasher refuses.
	ErrWeakPassword = errors.New("user: password too weak")
)

// WalletProvisioner opens the wallet of a new user.
type WalletProvisioner interface {
	ProvisionWallet(ctx context.Context, userID int64) (*contracts.WalletResponse, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(userID int64, role string) (string, time.Time, error)
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// UserService contains registration, login and lookup logic.
type UserService struct {
	repo    repository.UserStore
	hasher  password.Hasher
	tokens  TokenIssuer
	wallets WalletProvisioner
	policy  retry.Policy
	logger  *zap.Logger
}

// NewUserService builds UserService.
func NewUserService(repo repository.UserStore, hasher password.Hasher, tokens TokenIssuer, wallets WalletProvisioner, policy retry.Policy, logger *zap.Logger) *UserService {
	return &UserService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		wallets: wallets,
		policy:  policy,
		logger:  logger,
	}
}

// Signup registers a new user and provisions their wallet. A provisioning failure is logged
// and does not fail the signup; provisioning is idempotent and can be repeated.
func (s *UserService) Signup(ctx context.Context, email, plain string) (*models.User, error) {
	email = repository.NormalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
		}
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	log := s.logger.With(zap.Int64("user_id", user.ID))
	log.Info("user signed up", zap.String("email", user.Email))
	s.provisionWallet(ctx, user.ID, log)
	return user, nil
}

func (s *UserService) provisionWallet(ctx context.Context, userID int64, log *zap.Logger) {
	if s.wallets == nil {
		return
	}
	wallet, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*contracts.WalletResponse, error) {
		return s.wallets.ProvisionWallet(ctx, userID)
	}, func(attempt uint, err error, next time.Duration) {
		log.Warn("provisionWallet failed, retrying", zap.Uint("attempt", attempt), zap.Duration("next", next), zap.Error(err))
	})
	if err != nil {
		log.Error("wallet provisioning failed", zap.Error(err))
		return
	}
	log.Info("wallet provisioned", zap.String("wallet_id", wallet.WalletID))
}

// Login authenticates a user and produces a JWT.
func (s *UserService) Login(ctx context.Context, email, plain string) (*Session, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || plain == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, plain); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail returns a user by email; idTags presented at chargers resolve through it.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

var _ TokenIssuer = (*auth.TokenService)(nil)
