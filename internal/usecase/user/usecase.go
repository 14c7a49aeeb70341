package user

import (
	"context"
	"fmt"

	"f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/internal/domain/user"
	"f2f-lending-backend/pkg/id"
)

type ProvisionInput struct {
	Phone     string
	FirstName string
	LastName  string
	UPIID     string
}

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

// Provision creates the user record and, when a UPI id is supplied, its
// payout account — one transaction, so a user never exists half-configured.
func (u *Usecase) Provision(ctx context.Context, in ProvisionInput) (*user.User, error) {
	if in.Phone == "" || in.FirstName == "" {
		return nil, fmt.Errorf("%w: phone and first name are required", loan.ErrValidation)
	}

	rec := &user.User{
		UserID:    id.New32(),
		Phone:     in.Phone,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Users.Create(ctx, rec); err != nil {
			return err
		}
		if in.UPIID == "" {
			return nil
		}
		return r.Users.CreateAccount(ctx, &user.PayoutAccount{
			UserID: rec.UserID,
			UPIID:  in.UPIID,
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
