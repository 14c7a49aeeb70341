package paymentrequest

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/paymentrequest"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/internal/domain/user"
	"f2f-lending-backend/pkg/id"
)

type CreateInput struct {
	SenderID   string
	ReceiverID string

	AmountPaise int64
	Purpose     string
}

type RespondInput struct {
	RequestID  string
	ReceiverID string
	Accept     bool
}

type Usecase struct {
	uow uow.UnitOfWork
	dir user.Directory
}

func NewUsecase(tx uow.UnitOfWork, dir user.Directory) *Usecase {
	return &Usecase{uow: tx, dir: dir}
}

// Create opens a pending peer ask from sender towards receiver.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (*paymentrequest.PaymentRequest, error) {
	if in.SenderID == in.ReceiverID {
		return nil, fmt.Errorf("%w: cannot request payment from yourself", loan.ErrInvalidRequest)
	}
	if in.AmountPaise <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", loan.ErrValidation)
	}
	if _, err := u.dir.Resolve(ctx, in.ReceiverID); err != nil {
		return nil, fmt.Errorf("%w: unknown receiver", loan.ErrInvalidRequest)
	}

	pr := &paymentrequest.PaymentRequest{
		RequestID:   id.New32(),
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		AmountPaise: in.AmountPaise,
		Purpose:     in.Purpose,
		Status:      paymentrequest.StatusPending,
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.PaymentRequests.Create(ctx, pr)
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// List returns every request the user is party to, either side.
func (u *Usecase) List(ctx context.Context, userID string) ([]paymentrequest.PaymentRequest, error) {
	var out []paymentrequest.PaymentRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.PaymentRequests.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Respond settles a pending request. Only the receiver may respond, and
// only once; everything else is ErrNotFoundOrProcessed.
func (u *Usecase) Respond(ctx context.Context, in RespondInput) (*paymentrequest.PaymentRequest, error) {
	var pr *paymentrequest.PaymentRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		pr, err = r.PaymentRequests.GetByRequestIDForUpdate(ctx, in.RequestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return paymentrequest.ErrNotFoundOrProcessed
		}
		if err != nil {
			return err
		}
		if pr.ReceiverID != in.ReceiverID || pr.Status != paymentrequest.StatusPending {
			return paymentrequest.ErrNotFoundOrProcessed
		}
		if in.Accept {
			pr.Status = paymentrequest.StatusAccepted
		} else {
			pr.Status = paymentrequest.StatusRejected
		}
		return r.PaymentRequests.Save(ctx, pr)
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}
