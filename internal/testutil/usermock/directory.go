package usermock

import (
	"context"

	"f2f-lending-backend/internal/domain/user"
)

var _ user.Directory = (*Directory)(nil)
var _ user.Repository = (*Repo)(nil)

// Directory resolves from a fixed profile map; unknown ids get ErrNotFound.
type Directory struct {
	Profiles map[string]user.Profile

	ResolveFn func(ctx context.Context, userID string) (*user.Profile, error)
}

func (m *Directory) Resolve(ctx context.Context, userID string) (*user.Profile, error) {
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, userID)
	}
	if p, ok := m.Profiles[userID]; ok {
		return &p, nil
	}
	return nil, user.ErrNotFound
}

// Repo is a function-backed mock that satisfies user.Repository.
type Repo struct {
	CreateFn             func(ctx context.Context, u *user.User) error
	GetByUserIDFn        func(ctx context.Context, userID string) (*user.User, error)
	CreateAccountFn      func(ctx context.Context, a *user.PayoutAccount) error
	GetAccountByUserIDFn func(ctx context.Context, userID string) (*user.PayoutAccount, error)
}

func (m *Repo) Create(ctx context.Context, u *user.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}
func (m *Repo) GetByUserID(ctx context.Context, userID string) (*user.User, error) {
	if m.GetByUserIDFn != nil {
		return m.GetByUserIDFn(ctx, userID)
	}
	return nil, user.ErrNotFound
}
func (m *Repo) CreateAccount(ctx context.Context, a *user.PayoutAccount) error {
	if m.CreateAccountFn != nil {
		return m.CreateAccountFn(ctx, a)
	}
	return nil
}
func (m *Repo) GetAccountByUserID(ctx context.Context, userID string) (*user.PayoutAccount, error) {
	if m.GetAccountByUserIDFn != nil {
		return m.GetAccountByUserIDFn(ctx, userID)
	}
	return nil, user.ErrNoPayoutAccount
}
