// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The service knows nothing about HTTP. It accepts primitives and returns
// domain errors (apperror.*); the handler translates those to status codes.
// That keeps every business rule testable with plain function calls and
// reusable from any transport.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anfirdaus/userfinder/internal/apperror"
	"github.com/anfirdaus/userfinder/internal/auth"
	"github.com/anfirdaus/userfinder/internal/model"
	"github.com/anfirdaus/userfinder/internal/repository"
)

// Validation constants.
const (
	MaxNameLength     = 100
	MinPasswordLength = 6
	MaxPasswordBytes  = 72 // bcrypt truncates beyond this — reject instead
)

// invalidCredentials is the single message returned for every login
// failure. Unknown email and wrong password MUST be indistinguishable,
// otherwise the endpoint can be used to enumerate registered accounts.
const invalidCredentials = "invalid email or password"

// UserService handles registration, login, and user CRUD business rules.
//
// DEPENDENCIES (injected via NewUserService):
//   - repo       repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue JWTs at login
//   - passwords  *auth.PasswordService     → bcrypt hashing/verification
//   - adminEmail string                    → registrations with this email get the admin role
//   - logger     *slog.Logger              → structured logging
type UserService struct {
	repo       repository.UserRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	adminEmail string
	logger     *slog.Logger
}

// NewUserService creates a UserService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewUserService(
	repo repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	adminEmail string,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		repo:       repo,
		tokens:     tokens,
		passwords:  passwords,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// LoginResult bundles the authenticated user and the issued JWT so the
// handler can shape the {token, user} response in one step.
type LoginResult struct {
	User  *model.User
	Token string
}

// UpdateInput carries the fields a PATCH may change. Nil pointers mean
// "leave untouched". Password and ID are intentionally absent: this path
// must never modify them.
type UpdateInput struct {
	Name   *string
	Avatar *string
}

// Register validates the input, hashes the password, and inserts the user.
//
// The returned user carries the generated ID; its PasswordHash field is
// populated but never serialized (json:"-").
//
// DUPLICATE EMAILS:
// We don't pre-check with GetByEmail — the repository maps the UNIQUE
// constraint violation to apperror.ErrConflict, which is the only check
// that holds under concurrent registrations.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	// A full RFC 5322 parser buys nothing here — the registration email is
	// only ever used as a login key, so "looks like an address" is enough.
	if !strings.Contains(email[1:], "@") {
		return nil, apperror.ValidationFailed("email", "email is not a valid address")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         s.roleFor(email),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// Conflict (duplicate email) and other domain errors pass through
		// wrapped, so the handler's errors.Is mapping still matches.
		return nil, fmt.Errorf("service/user: registering %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("role", user.Role),
	)

	return user, nil
}

// Login verifies credentials and issues a session token.
//
// Every failure path returns the same apperror.Unauthorized message —
// see invalidCredentials. The bcrypt comparison itself is constant-time.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		// NotFound collapses into the generic 401. Real storage failures
		// still surface as 500 via the wrapped error.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/user: looking up login email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/user: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return &LoginResult{User: user, Token: token}, nil
}

// List returns every registered user. No pagination — an accepted
// limitation of this API.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

// Get returns the user with the given ID, or apperror.ErrNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %d: %w", id, err)
	}
	return user, nil
}

// Update applies the given field changes to the user with the given ID.
//
// PERMISSIONS:
// Only the owning user or an admin may update a record; anyone else gets
// apperror.ErrForbidden. The 404-vs-403 ordering is deliberate: the
// permission check runs first, so a non-owner can't probe which IDs exist.
func (s *UserService) Update(ctx context.Context, caller auth.Identity, id int64, input UpdateInput) (*model.User, error) {
	if caller.UserID != id && caller.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("you may only update your own account")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading user %d for update: %w", id, err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		if len(name) > MaxNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("name must be %d characters or less", MaxNameLength))
		}
		user.Name = name
	}
	if input.Avatar != nil {
		user.Avatar = *input.Avatar
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %d: %w", id, err)
	}

	s.logger.Info("user updated",
		slog.Int64("userID", id),
		slog.Int64("callerID", caller.UserID),
	)

	return user, nil
}

// Delete removes the user with the given ID.
//
// PERMISSIONS:
// A user may delete their own account; deleting anyone else requires the
// admin role. Same ordering as Update — permission before existence.
func (s *UserService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if caller.UserID != id && caller.Role != model.RoleAdmin {
		return apperror.Forbidden("only admins may delete other accounts")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/user: deleting user %d: %w", id, err)
	}

	s.logger.Info("user deleted",
		slog.Int64("userID", id),
		slog.Int64("callerID", caller.UserID),
	)

	return nil
}

// roleFor assigns the admin role to the configured bootstrap email, if any.
// Everyone else registers as a regular user.
func (s *UserService) roleFor(email string) string {
	if s.adminEmail != "" && strings.EqualFold(email, s.adminEmail) {
		return model.RoleAdmin
	}
	return model.RoleUser
}
