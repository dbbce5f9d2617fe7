// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/safevault/safevault/internal/auth"
)

// mockUserRepository is a mock for auth.UserRepository.
type mockUserRepository struct {
	mock.Mock
}

// newMockUserRepository creates a mock that asserts its expectations on cleanup.
func newMockUserRepository(t *testing.T) *mockUserRepository {
	m := &mockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockUserRepository) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUserRepository) Insert(ctx context.Context, username, email, passwordHash, role string) (int64, error) {
	args := m.Called(ctx, username, email, passwordHash, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.UserRecord), args.Error(1)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*auth.UserRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.UserRecord), args.Error(1)
}

func (m *mockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// mockTokenStore is a mock for auth.TokenStore.
type mockTokenStore struct {
	mock.Mock
}

// newMockTokenStore creates a mock that asserts its expectations on cleanup.
func newMockTokenStore(t *testing.T) *mockTokenStore {
	m := &mockTokenStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockTokenStore) Issue(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *mockTokenStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockTokenStore) Revoke(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

// mockPasswordHasher is a mock for auth.PasswordHasher.
type mockPasswordHasher struct {
	mock.Mock
}

// newMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func newMockPasswordHasher(t *testing.T) *mockPasswordHasher {
	m := &mockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockPasswordHasher) Verify(password, hash string) bool {
	args := m.Called(password, hash)
	return args.Bool(0)
}

var (
	_ auth.UserRepository = (*mockUserRepository)(nil)
	_ auth.TokenStore     = (*mockTokenStore)(nil)
	_ auth.PasswordHasher = (*mockPasswordHasher)(nil)
)
