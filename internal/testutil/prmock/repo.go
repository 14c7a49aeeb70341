package prmock

import (
	"context"

	"gorm.io/gorm"

	"f2f-lending-backend/internal/domain/paymentrequest"
)

var _ paymentrequest.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies paymentrequest.Repository.
type Repo struct {
	CreateFn                  func(ctx context.Context, pr *paymentrequest.PaymentRequest) error
	SaveFn                    func(ctx context.Context, pr *paymentrequest.PaymentRequest) error
	GetByRequestIDFn          func(ctx context.Context, requestID string) (*paymentrequest.PaymentRequest, error)
	GetByRequestIDForUpdateFn func(ctx context.Context, requestID string) (*paymentrequest.PaymentRequest, error)
	ListByUserFn              func(ctx context.Context, userID string) ([]paymentrequest.PaymentRequest, error)
}

func (m *Repo) Create(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, pr)
	}
	return nil
}
func (m *Repo) Save(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, pr)
	}
	return nil
}
func (m *Repo) GetByRequestID(ctx context.Context, requestID string) (*paymentrequest.PaymentRequest, error) {
	if m.GetByRequestIDFn != nil {
		return m.GetByRequestIDFn(ctx, requestID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *Repo) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*paymentrequest.PaymentRequest, error) {
	if m.GetByRequestIDForUpdateFn != nil {
		return m.GetByRequestIDForUpdateFn(ctx, requestID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *Repo) ListByUser(ctx context.Context, userID string) ([]paymentrequest.PaymentRequest, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID)
	}
	return nil, nil
}
