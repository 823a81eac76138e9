// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// Field validation constraints.
const (
	MinUsernameLength = 3
	MinEmailLength    = 5
	MinPasswordLength = 5
	MinPhoneDigits    = 10
)

// User is a persisted account record. It carries the password hash and must not
// leave the service; callers receive a Profile instead.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	Phone        string
	Profession   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a User.
type Profile struct {
	ID         ulid.ULID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Profession string    `json:"profession"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Profile returns the display projection of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Phone:      u.Phone,
		Profession: u.Profession,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// ProfileUpdate holds the mutable profile fields. Empty fields are left unchanged.
type ProfileUpdate struct {
	Username   string
	Phone      string
	Profession string
}

// IsEmpty reports whether the update changes nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Username == "" && p.Phone == "" && p.Profession == ""
}

// RegisterInput holds the fields submitted at registration.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	Phone      string
	Profession string
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizePhone reduces a phone number to its digits, keeping a leading '+'.
// Spaces, dashes and parentheses are dropped so that one number has one
// stored form. Any other character is kept for ValidatePhone to reject.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	b.Grow(len(phone))
	for i, r := range phone {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == '+', unicode.IsSpace(r), r == '-', r == '(', r == ')':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateUsername checks an already normalized username.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrValidation("username", "is required")
	}
	if len([]rune(username)) < MinUsernameLength {
		return ErrValidation("username", "must be at least 3 characters")
	}
	return nil
}

// ValidateEmail checks an already normalized email address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrValidation("email", "is required")
	}
	if len(email) < MinEmailLength {
		return ErrValidation("email", "must be at least 5 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrValidation("email", "is not a valid address")
	}
	return nil
}

// ValidatePassword checks a plaintext password.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrValidation("password", "is required")
	}
	if len([]rune(password)) < MinPasswordLength {
		return ErrValidation("password", "must be at least 5 characters")
	}
	return nil
}

// ValidatePhone checks a phone number. Digits may be separated by spaces,
// dashes or parentheses and prefixed with '+'.
func ValidatePhone(phone string) error {
	if phone == "" {
		return ErrValidation("phone", "is required")
	}
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return ErrValidation("phone", "may only contain digits, spaces, '+', '-', '(' and ')'")
		}
	}
	if digits < MinPhoneDigits {
		return ErrValidation("phone", "must contain at least 10 digits")
	}
	return nil
}

// ValidateProfession checks a profession.
func ValidateProfession(profession string) error {
	if strings.TrimSpace(profession) == "" {
		return ErrValidation("profession", "is required")
	}
	return nil
}

// Normalize returns a copy of in with normalized identifiers.
func (in RegisterInput) Normalize() RegisterInput {
	return RegisterInput{
		Username:   NormalizeUsername(in.Username),
		Email:      NormalizeEmail(in.Email),
		Password:   in.Password,
		Phone:      NormalizePhone(in.Phone),
		Profession: strings.TrimSpace(in.Profession),
	}
}

// Validate checks every registration field and returns the first failure.
func (in RegisterInput) Validate() error {
	if err := ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if err := ValidatePhone(in.Phone); err != nil {
		return err
	}
	return ValidateProfession(in.Profession)
}

// NewUser creates a User from validated registration input and a password hash.
func NewUser(in RegisterInput, passwordHash string) (*User, error) {
	if passwordHash == "" {
		return nil, ErrValidation("password", "hash is required")
	}
	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Phone:        in.Phone,
		Profession:   in.Profession,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrDuplicateKey if the
	// email, username or phone is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByEmailOrPhone retrieves the first user whose email or phone matches.
	GetByEmailOrPhone(ctx context.Context, email, phone string) (*User, error)

	// FindByContact reports whether a user matches all non-empty arguments.
	FindByContact(ctx context.Context, email, phone string) (bool, error)

	// List returns every user ordered by creation time.
	List(ctx context.Context) ([]*User, error)

	// UpdateProfile applies non-empty fields of update and returns the stored user.
	UpdateProfile(ctx context.Context, id ulid.ULID, update ProfileUpdate) (*User, error)

	// UpdatePasswordByEmail replaces the password hash for the user with email.
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error

	// Delete removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
