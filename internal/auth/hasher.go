// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// argon2Params are the cost settings encoded in an argon2id hash.
type argon2Params struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
	keyLen  uint32
}

// currentArgon2 is what new hashes use. Stored hashes with other settings
// verify but report NeedsUpgrade.
var currentArgon2 = argon2Params{memory: 64 * 1024, time: 1, threads: 4, keyLen: 32}

const argon2SaltLen = 16

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher hashes new passwords and checks stored ones.
type PasswordHasher interface {
	// Hash returns the stored form of password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A hash that cannot be
	// parsed is an error, not a mismatch.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade reports whether hash should be replaced by Hash(password)
	// after the next successful login.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher writes argon2id hashes in PHC string format. It also
// verifies bcrypt hashes from accounts created before the switch.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash returns $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	p := currentArgon2
	stored := argon2Hash{
		params: p,
		salt:   salt,
		key:    argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen),
	}
	return stored.String(), nil
}

// Verify checks password against an argon2id or bcrypt hash.
func (h *Argon2idHasher) Verify(password, encoded string) (bool, error) {
	stored, err := parseStoredHash(encoded)
	if err != nil {
		return false, err
	}
	return stored.matches(password)
}

// NeedsUpgrade reports true for bcrypt hashes, argon2id hashes with outdated
// parameters and anything unparseable.
func (h *Argon2idHasher) NeedsUpgrade(encoded string) bool {
	stored, err := parseStoredHash(encoded)
	if err != nil {
		return true
	}
	return !stored.current()
}

// storedHash is a parsed password hash of some supported algorithm.
type storedHash interface {
	matches(password string) (bool, error)
	current() bool
}

func parseStoredHash(encoded string) (storedHash, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return parseArgon2Hash(encoded)
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return bcryptHash(encoded), nil
	}

	algorithm := "unknown"
	if parts := strings.SplitN(encoded, "$", 3); len(parts) == 3 && parts[0] == "" {
		algorithm = parts[1]
	}
	return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", algorithm)
}

type argon2Hash struct {
	params argon2Params
	salt   []byte
	key    []byte
}

func parseArgon2Hash(encoded string) (*argon2Hash, error) {
	invalid := oops.Code("AUTH_INVALID_HASH").With("algorithm", "argon2id")

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, invalid.Errorf("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, invalid.Wrap(err)
	}
	if version != argon2.Version {
		return nil, invalid.Errorf("unsupported argon2 version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, invalid.Wrap(err)
	}
	if threads > 255 {
		return nil, invalid.Errorf("threads value %d exceeds uint8 max", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, invalid.Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, invalid.Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<30 {
		return nil, invalid.Errorf("invalid hash key length: %d", len(key))
	}

	return &argon2Hash{
		params: argon2Params{memory: memory, time: time, threads: uint8(threads), keyLen: uint32(len(key))},
		salt:   salt,
		key:    key,
	}, nil
}

func (a *argon2Hash) matches(password string) (bool, error) {
	p := a.params
	computed := argon2.IDKey([]byte(password), a.salt, p.time, p.memory, p.threads, p.keyLen)
	return subtle.ConstantTimeCompare(computed, a.key) == 1, nil
}

func (a *argon2Hash) current() bool {
	return a.params == currentArgon2
}

func (a *argon2Hash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.params.memory,
		a.params.time,
		a.params.threads,
		base64.RawStdEncoding.EncodeToString(a.salt),
		base64.RawStdEncoding.EncodeToString(a.key),
	)
}

type bcryptHash string

// matches compares in constant time inside bcrypt.
func (b bcryptHash) matches(password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(b), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.Code("AUTH_INVALID_HASH").With("algorithm", "bcrypt").Wrap(err)
}

func (bcryptHash) current() bool { return false }
