// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("accounts/auth")

// Service provides registration, login, profile management and password recovery.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	codes    *ResetCodeRegistry
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a Service that logs to slog.Default().
func NewService(users UserRepository, hasher PasswordHasher, resetCodes *ResetCodeRegistry, notifier Notifier) (*Service, error) {
	return NewServiceWithLogger(users, hasher, resetCodes, notifier, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(
	users UserRepository,
	hasher PasswordHasher,
	resetCodes *ResetCodeRegistry,
	notifier Notifier,
	logger *slog.Logger,
) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if resetCodes == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("reset code registry is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("notifier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		codes:    resetCodes,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is verified against when the email is unknown so that
// login takes the same time whether or not the account exists. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register validates input and creates a new account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ Profile, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer func() { endSpan(span, err) }()

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Profile{}, err
	}

	// Best-effort pre-check; the store's unique indexes are authoritative.
	_, lookupErr := s.users.GetByEmailOrPhone(ctx, in.Email, in.Phone)
	switch {
	case lookupErr == nil:
		return Profile{}, ErrDuplicate(nil)
	case !errors.Is(lookupErr, ErrNotFound):
		return Profile{}, ErrDependency("get user by email or phone", lookupErr)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Profile{}, ErrDependency("hash password", err)
	}

	user, err := NewUser(in, hash)
	if err != nil {
		return Profile{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return Profile{}, ErrDuplicate(err)
		}
		return Profile{}, ErrDependency("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user.Profile(), nil
}

// Login checks credentials and returns the account's profile.
// Unknown email and wrong password fail with the same error.
func (s *Service) Login(ctx context.Context, email, password string) (_ Profile, err error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer func() { endSpan(span, err) }()

	email = NormalizeEmail(email)

	user, lookupErr := s.users.GetByEmail(ctx, email)

	var targetHash string
	var userExists bool
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return Profile{}, ErrDependency("get user by email", lookupErr)
		}
		targetHash = dummyPasswordHash
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify so unknown emails cost the same as wrong passwords.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return Profile{}, ErrInvalidCredentials()
		}
		return Profile{}, ErrDependency("verify password", verifyErr)
	}

	if !userExists || !valid {
		return Profile{}, ErrInvalidCredentials()
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	return user.Profile(), nil
}

// upgradeHash re-hashes a legacy password. Login succeeds even if this fails.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordByEmail(ctx, user.Email, newHash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"user_id", user.ID.String(),
			"operation", "upgrade_hash",
			"error", err.Error(),
		)
		return
	}
	user.PasswordHash = newHash
}

// ListUsers returns every account's profile.
func (s *Service) ListUsers(ctx context.Context) (_ []Profile, err error) {
	ctx, span := tracer.Start(ctx, "auth.list_users")
	defer func() { endSpan(span, err) }()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, ErrDependency("list users", err)
	}

	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	span.SetAttributes(attribute.Int("auth.user_count", len(profiles)))
	return profiles, nil
}

// UpdateUser changes the username, phone or profession of an account.
func (s *Service) UpdateUser(ctx context.Context, id ulid.ULID, update ProfileUpdate) (_ Profile, err error) {
	ctx, span := tracer.Start(ctx, "auth.update_user",
		trace.WithAttributes(attribute.String("auth.user_id", id.String())))
	defer func() { endSpan(span, err) }()

	// Supplied fields are validated after normalization, so blank input is rejected.
	normalized := ProfileUpdate{
		Username:   NormalizeUsername(update.Username),
		Phone:      NormalizePhone(update.Phone),
		Profession: strings.TrimSpace(update.Profession),
	}
	if update.Username != "" {
		if err := ValidateUsername(normalized.Username); err != nil {
			return Profile{}, err
		}
	}
	if update.Phone != "" {
		if err := ValidatePhone(normalized.Phone); err != nil {
			return Profile{}, err
		}
	}
	if update.Profession != "" {
		if err := ValidateProfession(normalized.Profession); err != nil {
			return Profile{}, err
		}
	}
	update = normalized

	var user *User
	if update.IsEmpty() {
		user, err = s.users.GetByID(ctx, id)
	} else {
		user, err = s.users.UpdateProfile(ctx, id, update)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return Profile{}, ErrUserNotFound("id", id.String())
		case errors.Is(err, ErrDuplicateKey):
			return Profile{}, ErrDuplicate(err)
		}
		return Profile{}, ErrDependency("update user", err)
	}
	return user.Profile(), nil
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id ulid.ULID) (err error) {
	ctx, span := tracer.Start(ctx, "auth.delete_user",
		trace.WithAttributes(attribute.String("auth.user_id", id.String())))
	defer func() { endSpan(span, err) }()

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound("id", id.String())
		}
		return ErrDependency("delete user", err)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id.String())
	return nil
}

// UserExists reports whether an account matches every non-empty argument.
func (s *Service) UserExists(ctx context.Context, email, phone string) (_ bool, err error) {
	ctx, span := tracer.Start(ctx, "auth.user_exists")
	defer func() { endSpan(span, err) }()

	email = NormalizeEmail(email)
	phone = NormalizePhone(phone)
	if email == "" && phone == "" {
		return false, ErrValidation("email or phone", "is required")
	}

	found, err := s.users.FindByContact(ctx, email, phone)
	if err != nil {
		return false, ErrDependency("find user by contact", err)
	}
	return found, nil
}

// RequestPasswordReset issues a reset code for email and sends it to that address.
// A delivery failure leaves the issued code in place; requesting again replaces it.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.request_password_reset")
	defer func() { endSpan(span, err) }()

	email = NormalizeEmail(email)
	if email == "" {
		return ErrValidation("email", "is required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound("email", email)
		}
		return ErrDependency("get user by email", err)
	}

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return ErrDependency("issue reset code", err)
	}

	if err := s.notifier.Deliver(ctx, email, ResetCodeMessage(code, s.codes.TTL())); err != nil {
		s.logger.WarnContext(ctx, "reset code delivery failed",
			"operation", "deliver_reset_code",
			"error", err.Error(),
		)
		return ErrDependency("deliver reset code", err)
	}
	return nil
}

// VerifyResetCode checks code against the pending request for email.
// The code stays valid until ResetPassword consumes it.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.verify_reset_code")
	defer func() { endSpan(span, err) }()

	ok, err := s.codes.Verify(ctx, NormalizeEmail(email), code)
	if err != nil {
		return ErrDependency("verify reset code", err)
	}
	if !ok {
		return ErrInvalidCode()
	}
	return nil
}

// ResetPassword sets a new password for email if a reset was requested, then consumes the code.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.reset_password")
	defer func() { endSpan(span, err) }()

	email = NormalizeEmail(email)

	pending, err := s.codes.Exists(ctx, email)
	if err != nil {
		return ErrDependency("check reset code", err)
	}
	if !pending {
		return ErrNoPendingRequest()
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return ErrDependency("hash password", err)
	}

	if err := s.users.UpdatePasswordByEmail(ctx, email, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound("email", email)
		}
		return ErrDependency("update password", err)
	}

	// The code must not outlive a completed reset.
	if err := s.codes.Consume(ctx, email); err != nil {
		return ErrDependency("consume reset code", err)
	}

	s.logger.InfoContext(ctx, "password reset completed")
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
