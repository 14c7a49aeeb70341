package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	userDomain "f2f-lending-backend/internal/domain/user"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *userDomain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*userDomain.User, error) {
	var out userDomain.User
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, userDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *UserRepository) CreateAccount(ctx context.Context, a *userDomain.PayoutAccount) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *UserRepository) GetAccountByUserID(ctx context.Context, userID string) (*userDomain.PayoutAccount, error) {
	var out userDomain.PayoutAccount
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, userDomain.ErrNoPayoutAccount
	}
	return &out, res.Error
}

// Directory joins users and payout accounts into the profile view the
// usecases consume. A missing account leaves UPI empty.
type Directory struct{ repo *UserRepository }

func NewDirectory(db *gorm.DB) *Directory { return &Directory{repo: NewUserRepository(db)} }

func (d *Directory) Resolve(ctx context.Context, userID string) (*userDomain.Profile, error) {
	u, err := d.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &userDomain.Profile{
		UserID: u.UserID,
		Name:   strings.TrimSpace(u.FirstName + " " + u.LastName),
		Phone:  u.Phone,
	}
	acct, err := d.repo.GetAccountByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, userDomain.ErrNoPayoutAccount) {
			return p, nil
		}
		return nil, err
	}
	p.UPI = acct.UPIID
	return p, nil
}
