package auth

import (
	"context"
	"fmt"
	"strings"

	"training-app/internal/apperr"
	"training-app/internal/data"
	"training-app/internal/logger"
)

// UserRepository is the user storage the credential service needs.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	Create(ctx context.Context, user *data.User) (int64, error)
}

// Enforcer is the part of casbin used for permission checks.
type Enforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

// Service authenticates users, verifies tokens and gates admin-only actions.
type Service struct {
	users      UserRepository
	tokens     *TokenIssuer
	enforcer   Enforcer
	bcryptCost int
	log        logger.Logger

	// dummyHash is compared against when the user does not exist so that a
	// failed login costs the same either way.
	dummyHash string
}

// NewService creates a credential service.
func NewService(users UserRepository, tokens *TokenIssuer, enforcer Enforcer, bcryptCost int, log logger.Logger) (*Service, error) {
	dummy, err := HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		enforcer:   enforcer,
		bcryptCost: bcryptCost,
		log:        log,
		dummyHash:  dummy,
	}, nil
}

// Authenticate checks a username and password and returns a session token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	ok, err := CheckPassword(hash, password)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if user == nil || !ok {
		return "", apperr.New(apperr.ErrInvalidCredentials, "invalid username or password")
	}

	token, err := s.tokens.Issue(Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify decodes a bearer token into an Identity.
func (s *Service) Verify(token string) (Identity, error) {
	return s.tokens.Verify(token)
}

// Authorize returns ErrForbidden unless id may perform action on object.
func (s *Service) Authorize(id Identity, object, action string) error {
	allowed, err := s.enforcer.Enforce(id.Role(), object, action)
	if err != nil {
		return fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if !allowed {
		return apperr.New(apperr.ErrForbidden, "forbidden")
	}
	return nil
}

// Register creates a non-admin user. Only admins may register users.
func (s *Service) Register(ctx context.Context, id Identity, username, password string) (*data.User, error) {
	if err := s.Authorize(id, ObjectUsers, ActionWrite); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, username, password, false)
	if err != nil {
		return nil, err
	}
	s.log.With(map[string]interface{}{"user_id": user.ID, "by": id.Username}).Info("User registered")
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account unless a user with that
// name already exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if existing != nil {
		return false, nil
	}
	if _, err := s.createUser(ctx, username, password, true); err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	s.log.Info("Created admin account " + username)
	return true, nil
}

func (s *Service) createUser(ctx context.Context, username, password string, isAdmin bool) (*data.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, apperr.New(apperr.ErrValidation, "username and password are required")
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.ErrDuplicateUser, "user already exists")
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &data.User{Username: username, PasswordHash: hash, IsAdmin: isAdmin}
	// The lookup above does not hold a lock, so a concurrent insert of the
	// same name can still win. The repository reports that as
	// ErrDuplicateUser too.
	id, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return user, nil
}
