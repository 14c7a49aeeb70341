package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user not found")
	// ErrNoPayoutAccount: the user exists but has no payout destination
	// configured; money movement towards them cannot start.
	ErrNoPayoutAccount = errors.New("payout account not configured")
)

// User is the minimal principal record the lending core needs. Full
// profile/KYC management lives outside this service.
type User struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID    string    `gorm:"size:32;uniqueIndex:ux_users_user_id" json:"user_id"`
	Phone     string    `gorm:"size:20;uniqueIndex:ux_users_phone" json:"phone"`
	FirstName string    `gorm:"size:50" json:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// PayoutAccount holds the UPI destination used for payouts and refunds.
// Created by the explicit provisioning step, never implicitly.
type PayoutAccount struct {
	ID         uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID     string    `gorm:"size:32;uniqueIndex:ux_payout_accounts_user" json:"user_id"`
	UPIID      string    `gorm:"size:50;column:upi_id" json:"upi_id"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PayoutAccount) TableName() string { return "payout_accounts" }

// Profile is the directory view consumed by payouts and notifications.
type Profile struct {
	UserID string
	Name   string
	Phone  string
	UPI    string
}

// Directory resolves a principal id to its display name and payout
// destination. A missing payout account leaves Profile.UPI empty; callers
// that need one wrap ErrNoPayoutAccount.
type Directory interface {
	Resolve(ctx context.Context, userID string) (*Profile, error)
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUserID(ctx context.Context, userID string) (*User, error)
	CreateAccount(ctx context.Context, a *PayoutAccount) error
	GetAccountByUserID(ctx context.Context, userID string) (*PayoutAccount, error)
}
