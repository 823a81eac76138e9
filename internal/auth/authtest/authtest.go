// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides in-memory fakes for exercising auth.Service.
package authtest

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// UserRepository is an auth.UserRepository backed by a map. It enforces the
// same uniqueness rules as the PostgreSQL schema: email, username and phone.
type UserRepository struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]*auth.User)}
}

// Create stores a copy of user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username || u.Phone == user.Phone {
			return oops.With("username", user.Username).Wrap(auth.ErrDuplicateKey)
		}
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

// GetByID returns a copy of the user with id.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	out := *u
	return &out, nil
}

// GetByEmail returns a copy of the user with email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
}

// GetByEmailOrPhone returns the first user whose email or phone matches.
func (r *UserRepository) GetByEmailOrPhone(_ context.Context, email, phone string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email || u.Phone == phone {
			out := *u
			return &out, nil
		}
	}
	return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
}

// FindByContact reports whether a user matches every non-empty argument.
func (r *UserRepository) FindByContact(_ context.Context, email, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if email == "" && phone == "" {
		return false, nil
	}
	for _, u := range r.users {
		if (email == "" || u.Email == email) && (phone == "" || u.Phone == phone) {
			return true, nil
		}
	}
	return false, nil
}

// List returns copies of all users ordered by creation time.
func (r *UserRepository) List(_ context.Context) ([]*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*auth.User, 0, len(r.users))
	for _, u := range r.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

// UpdateProfile applies the non-empty fields of update.
func (r *UserRepository) UpdateProfile(_ context.Context, id ulid.ULID, update auth.ProfileUpdate) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	for otherID, other := range r.users {
		if otherID == id {
			continue
		}
		if (update.Username != "" && other.Username == update.Username) ||
			(update.Phone != "" && other.Phone == update.Phone) {
			return nil, oops.With("id", id.String()).Wrap(auth.ErrDuplicateKey)
		}
	}
	if update.Username != "" {
		u.Username = update.Username
	}
	if update.Phone != "" {
		u.Phone = update.Phone
	}
	if update.Profession != "" {
		u.Profession = update.Profession
	}
	u.UpdatedAt = time.Now().UTC()
	out := *u
	return &out, nil
}

// UpdatePasswordByEmail replaces the stored hash.
func (r *UserRepository) UpdatePasswordByEmail(_ context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			u.PasswordHash = passwordHash
			u.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return oops.With("email", email).Wrap(auth.ErrNotFound)
}

// Delete removes the user with id.
func (r *UserRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// Notifier records delivered messages instead of sending them.
type Notifier struct {
	mu   sync.Mutex
	sent map[string][]auth.Message

	// Err, when set, is returned from Deliver after the message is recorded.
	Err error
}

// NewNotifier creates an empty recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{sent: make(map[string][]auth.Message)}
}

// Deliver records msg for destination.
func (n *Notifier) Deliver(_ context.Context, destination string, msg auth.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[destination] = append(n.sent[destination], msg)
	return n.Err
}

// Messages returns what was delivered to destination, oldest first.
func (n *Notifier) Messages(destination string) []auth.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]auth.Message(nil), n.sent[destination]...)
}

// LastCode returns the reset code in the newest message to destination, or "".
func (n *Notifier) LastCode(destination string) string {
	msgs := n.Messages(destination)
	if len(msgs) == 0 {
		return ""
	}
	return codePattern.FindString(msgs[len(msgs)-1].Body)
}

// Verify interfaces are satisfied.
var (
	_ auth.UserRepository = (*UserRepository)(nil)
	_ auth.Notifier       = (*Notifier)(nil)
)
