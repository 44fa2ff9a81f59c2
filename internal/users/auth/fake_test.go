// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/dberr"
	"github.com/fugallabs/gatekeeper/internal/platform/sec"
	"github.com/fugallabs/gatekeeper/internal/users/auth"
)

// # Account Store Fake

// memoryAccounts is an in-memory [auth.AccountRepository] with the same
// compare-and-swap semantics as the Postgres implementation.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]auth.Account

	// failWith, when set, is returned by every call.
	failWith error
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: map[string]auth.Account{}}
}

func (m *memoryAccounts) find(match func(auth.Account) bool) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, account := range m.accounts {
		if match(account) {
			found := account
			return &found, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (m *memoryAccounts) FindByID(_ context.Context, id string) (*auth.Account, error) {
	return m.find(func(a auth.Account) bool { return a.ID == id })
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	return m.find(func(a auth.Account) bool { return a.Email == email })
}

func (m *memoryAccounts) FindByUsername(_ context.Context, username string) (*auth.Account, error) {
	return m.find(func(a auth.Account) bool { return a.Username == username })
}

func (m *memoryAccounts) FindByLogin(_ context.Context, credential string) (*auth.Account, error) {
	return m.find(func(a auth.Account) bool { return a.Email == credential || a.Username == credential })
}

func (m *memoryAccounts) FindByRefreshToken(_ context.Context, tokenHash string) (*auth.Account, error) {
	return m.find(func(a auth.Account) bool { return tokenHash != "" && a.RefreshTokenHash == tokenHash })
}

func (m *memoryAccounts) Create(_ context.Context, account *auth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	for _, existing := range m.accounts {
		if existing.Email == account.Email || existing.Username == account.Username {
			return apperr.Conflict("Account already exists")
		}
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.accounts[account.ID] = *account
	return nil
}

func (m *memoryAccounts) SaveRefreshToken(_ context.Context, accountID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	account, ok := m.accounts[accountID]
	if !ok {
		return dberr.ErrNotFound
	}
	account.RefreshTokenHash = tokenHash
	m.accounts[accountID] = account
	return nil
}

func (m *memoryAccounts) RotateRefreshToken(_ context.Context, accountID, currentHash, nextHash string, tokenVersion int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return false, m.failWith
	}
	account, ok := m.accounts[accountID]
	if !ok || account.RefreshTokenHash != currentHash || account.TokenVersion != tokenVersion {
		return false, nil
	}
	account.RefreshTokenHash = nextHash
	m.accounts[accountID] = account
	return true, nil
}

func (m *memoryAccounts) RevokeAll(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return 0, m.failWith
	}
	account, ok := m.accounts[accountID]
	if !ok {
		return 0, dberr.ErrNotFound
	}
	account.TokenVersion++
	account.RefreshTokenHash = ""
	m.accounts[accountID] = account
	return account.TokenVersion, nil
}

// forcePointer overwrites the stored pointer, bypassing every check.
func (m *memoryAccounts) forcePointer(accountID, tokenHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.accounts[accountID]
	account.RefreshTokenHash = tokenHash
	m.accounts[accountID] = account
}

// # OTP Fake

type MockOTPVerifier struct {
	mock.Mock
}

func (m *MockOTPVerifier) Verify(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

// # Fixture

type fixture struct {
	service  *auth.Service
	accounts *memoryAccounts
	otp      *MockOTPVerifier
	signer   *sec.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signer, err := sec.NewSigner(sec.SignerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "fugallabs.test",
	})
	require.NoError(t, err)

	accounts := newMemoryAccounts()
	verifier := new(MockOTPVerifier)

	return &fixture{
		service:  auth.NewService(accounts, signer, verifier, nil),
		accounts: accounts,
		otp:      verifier,
		signer:   signer,
	}
}

var adaInput = auth.RegisterInput{
	Name:     "Ada Lovelace",
	Username: "ada",
	Email:    "ada@example.com",
	Password: "correct-horse",
	OTP:      "123456",
}

// register enrolls adaInput with an accepting OTP verifier.
func (f *fixture) register(t *testing.T) *auth.Session {
	t.Helper()
	f.otp.On("Verify", mock.Anything, adaInput.Email, adaInput.OTP).Return(nil).Once()

	session, err := f.service.Register(context.Background(), adaInput)
	require.NoError(t, err)
	return session
}
