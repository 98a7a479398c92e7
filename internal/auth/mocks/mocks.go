// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// mockConstructorTestingT is the subset of *testing.T the constructors need.
type mockConstructorTestingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAccountRepository is a mock auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a MockAccountRepository that asserts its
// expectations at test cleanup.
func NewMockAccountRepository(t mockConstructorTestingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ret := m.Called(ctx, id)
	var account *auth.Account
	if ret.Get(0) != nil {
		account = ret.Get(0).(*auth.Account)
	}
	return account, ret.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	ret := m.Called(ctx, email)
	var account *auth.Account
	if ret.Get(0) != nil {
		account = ret.Get(0).(*auth.Account)
	}
	return account, ret.Error(1)
}

func (m *MockAccountRepository) ListActive(ctx context.Context, offset, limit int) ([]*auth.Account, error) {
	ret := m.Called(ctx, offset, limit)
	var accounts []*auth.Account
	if ret.Get(0) != nil {
		accounts = ret.Get(0).([]*auth.Account)
	}
	return accounts, ret.Error(1)
}

func (m *MockAccountRepository) Search(ctx context.Context, query string, offset, limit int) ([]*auth.Account, error) {
	ret := m.Called(ctx, query, offset, limit)
	var accounts []*auth.Account
	if ret.Get(0) != nil {
		accounts = ret.Get(0).([]*auth.Account)
	}
	return accounts, ret.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) Deactivate(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockSessionRepository is a mock auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a MockSessionRepository that asserts its
// expectations at test cleanup.
func NewMockSessionRepository(t mockConstructorTestingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetValidByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	var session *auth.Session
	if ret.Get(0) != nil {
		session = ret.Get(0).(*auth.Session)
	}
	return session, ret.Error(1)
}

func (m *MockSessionRepository) Invalidate(ctx context.Context, tokenHash string) (bool, error) {
	ret := m.Called(ctx, tokenHash)
	return ret.Bool(0), ret.Error(1)
}

func (m *MockSessionRepository) Refresh(ctx context.Context, tokenHash string, ttl time.Duration) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash, ttl)
	var session *auth.Session
	if ret.Get(0) != nil {
		session = ret.Get(0).(*auth.Session)
	}
	return session, ret.Error(1)
}

func (m *MockSessionRepository) SweepExpired(ctx context.Context) (int64, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockSessionRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	ret := m.Called(ctx, accountID)
	var sessions []*auth.Session
	if ret.Get(0) != nil {
		sessions = ret.Get(0).([]*auth.Session)
	}
	return sessions, ret.Error(1)
}

func (m *MockSessionRepository) InvalidateByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	ret := m.Called(ctx, accountID)
	return ret.Get(0).(int64), ret.Error(1)
}

// MockAuditRepository is a mock auth.AuditRepository.
type MockAuditRepository struct {
	mock.Mock
}

// NewMockAuditRepository creates a MockAuditRepository that asserts its
// expectations at test cleanup.
func NewMockAuditRepository(t mockConstructorTestingT) *MockAuditRepository {
	m := &MockAuditRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditRepository) Record(ctx context.Context, entry *auth.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) ListByActor(ctx context.Context, actorID ulid.ULID, offset, limit int) ([]*auth.AuditEntry, error) {
	ret := m.Called(ctx, actorID, offset, limit)
	var entries []*auth.AuditEntry
	if ret.Get(0) != nil {
		entries = ret.Get(0).([]*auth.AuditEntry)
	}
	return entries, ret.Error(1)
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, since time.Time, offset, limit int) ([]*auth.AuditEntry, error) {
	ret := m.Called(ctx, since, offset, limit)
	var entries []*auth.AuditEntry
	if ret.Get(0) != nil {
		entries = ret.Get(0).([]*auth.AuditEntry)
	}
	return entries, ret.Error(1)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher that asserts its
// expectations at test cleanup.
func NewMockPasswordHasher(t mockConstructorTestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockSettingsRepository is a mock auth.SettingsRepository.
type MockSettingsRepository struct {
	mock.Mock
}

// NewMockSettingsRepository creates a MockSettingsRepository that asserts
// its expectations at test cleanup.
func NewMockSettingsRepository(t mockConstructorTestingT) *MockSettingsRepository {
	m := &MockSettingsRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	ret := m.Called(ctx, key)
	return ret.String(0), ret.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value, description string) error {
	return m.Called(ctx, key, value, description).Error(0)
}

func (m *MockSettingsRepository) All(ctx context.Context) (map[string]string, error) {
	ret := m.Called(ctx)
	var settings map[string]string
	if ret.Get(0) != nil {
		settings = ret.Get(0).(map[string]string)
	}
	return settings, ret.Error(1)
}

// TxPassthrough is an auth.Transactor that runs the function directly,
// without a database.
type TxPassthrough struct{}

func (TxPassthrough) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Verify interfaces are satisfied.
var (
	_ auth.AccountRepository  = (*MockAccountRepository)(nil)
	_ auth.SessionRepository  = (*MockSessionRepository)(nil)
	_ auth.AuditRepository    = (*MockAuditRepository)(nil)
	_ auth.PasswordHasher     = (*MockPasswordHasher)(nil)
	_ auth.SettingsRepository = (*MockSettingsRepository)(nil)
	_ auth.Transactor         = TxPassthrough{}
)
