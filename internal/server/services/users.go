// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and token verification.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	maxEmailLen    = 254
	maxPasswordLen = 1024
)

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - VerifyToken: resolve a bearer token to a user id
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	tokens      *auth.TokenIssuer
	log         logging.Logger
	now         func() time.Time

	// verified against for unknown emails so both login failures cost the same
	dummySalt     []byte
	dummyVerifier []byte
}

// NewUserService constructs a UserService using repositories, the password
// hasher and the token issuer.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher, tokens *auth.TokenIssuer, log logging.Logger) *UserService {
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	return &UserService{
		db:            db,
		repomanager:   m,
		hasher:        hasher,
		tokens:        tokens,
		log:           log.With("module", "users"),
		now:           time.Now,
		dummySalt:     salt,
		dummyVerifier: hasher.Verifier(common.GenerateRandByteArray(16), salt),
	}
}

// normalizeEmail trims and lower-cases email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	switch {
	case email == "" || password == "":
		return fmt.Errorf("%w: email and password are required", common.ErrValidation)
	case len(email) > maxEmailLen || !strings.Contains(email, "@"):
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	case len(password) > maxPasswordLen:
		return fmt.Errorf("%w: password is too long", common.ErrValidation)
	}
	return nil
}

// Register creates a new user. The password is stored only as an argon2id
// verifier under a fresh salt.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByLogin(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateUser
	case !errors.Is(err, common.ErrorNotFound):
		s.log.Error(ctx, "lookup user failed", "error", err)
		return nil, common.ErrorInternal
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Salt:      salt,
		Verifier:  s.hasher.Verifier([]byte(password), salt),
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	u, err := repo.Create(ctx, user)
	if err != nil {
		// a concurrent registration won the unique constraint
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateUser
		}
		s.log.Error(ctx, "create user failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the password and, on success, returns a new token. Unknown
// emails and wrong passwords fail identically with ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*auth.Token, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}
	if len(password) > maxPasswordLen {
		return nil, common.ErrInvalidCredentials
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Check([]byte(password), s.dummySalt, s.dummyVerifier)
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "lookup user failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.hasher.Check([]byte(password), user.Salt, user.Verifier) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error(ctx, "issue token failed", "error", err)
		return nil, common.ErrorInternal
	}
	return token, nil
}

// VerifyToken returns the user id of a valid token. It touches no storage.
func (s *UserService) VerifyToken(token string) (string, error) {
	return s.tokens.Verify(token)
}
