// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/accounts/internal/auth"
)

// TestingT is satisfied by *testing.T.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t TestingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userOrNil(v any) *auth.User {
	if v == nil {
		return nil
	}
	return v.(*auth.User) //nolint:forcetypeassert // mock setup guarantees the type
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := m.Called(ctx, id)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// GetByEmail provides a mock function.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// GetByEmailOrPhone provides a mock function.
func (m *MockUserRepository) GetByEmailOrPhone(ctx context.Context, email, phone string) (*auth.User, error) {
	ret := m.Called(ctx, email, phone)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// FindByContact provides a mock function.
func (m *MockUserRepository) FindByContact(ctx context.Context, email, phone string) (bool, error) {
	ret := m.Called(ctx, email, phone)
	return ret.Bool(0), ret.Error(1)
}

// List provides a mock function.
func (m *MockUserRepository) List(ctx context.Context) ([]*auth.User, error) {
	ret := m.Called(ctx)
	var users []*auth.User
	if v := ret.Get(0); v != nil {
		users = v.([]*auth.User) //nolint:forcetypeassert // mock setup guarantees the type
	}
	return users, ret.Error(1)
}

// UpdateProfile provides a mock function.
func (m *MockUserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, update auth.ProfileUpdate) (*auth.User, error) {
	ret := m.Called(ctx, id, update)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// UpdatePasswordByEmail provides a mock function.
func (m *MockUserRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	return m.Called(ctx, email, passwordHash).Error(0)
}

// Delete provides a mock function.
func (m *MockUserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

// NeedsUpgrade provides a mock function.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockNotifier is a mock of auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a mock that asserts its expectations on cleanup.
func NewMockNotifier(t TestingT) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Deliver provides a mock function.
func (m *MockNotifier) Deliver(ctx context.Context, destination string, msg auth.Message) error {
	return m.Called(ctx, destination, msg).Error(0)
}

// MockResetCodeStore is a mock of auth.ResetCodeStore.
type MockResetCodeStore struct {
	mock.Mock
}

// NewMockResetCodeStore creates a mock that asserts its expectations on cleanup.
func NewMockResetCodeStore(t TestingT) *MockResetCodeStore {
	m := &MockResetCodeStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Put provides a mock function.
func (m *MockResetCodeStore) Put(ctx context.Context, code *auth.ResetCode) error {
	return m.Called(ctx, code).Error(0)
}

// Get provides a mock function.
func (m *MockResetCodeStore) Get(ctx context.Context, email string) (*auth.ResetCode, error) {
	ret := m.Called(ctx, email)
	var code *auth.ResetCode
	if v := ret.Get(0); v != nil {
		code = v.(*auth.ResetCode) //nolint:forcetypeassert // mock setup guarantees the type
	}
	return code, ret.Error(1)
}

// Delete provides a mock function.
func (m *MockResetCodeStore) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

var (
	_ auth.UserRepository = (*MockUserRepository)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.Notifier       = (*MockNotifier)(nil)
	_ auth.ResetCodeStore = (*MockResetCodeStore)(nil)
)
