package txmock

import (
	"context"

	"f2f-lending-backend/internal/domain/transaction"
)

var _ transaction.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies transaction.Repository.
// Unfilled lookups behave like an empty table.
type Repo struct {
	CreateFn                     func(ctx context.Context, t *transaction.Transaction) error
	SaveFn                       func(ctx context.Context, t *transaction.Transaction) error
	GetByOrderIDFn               func(ctx context.Context, orderID string) (*transaction.Transaction, error)
	LastByLoanTypeStatusFn       func(ctx context.Context, loanNumericID uint64, typ transaction.Type, status transaction.Status) (*transaction.Transaction, error)
	LastByLoanFn                 func(ctx context.Context, loanNumericID uint64) (*transaction.Transaction, error)
	SumCompletedByLoanReceiverFn func(ctx context.Context, loanNumericID uint64, userID string) (int64, error)
	SumCompletedByLoanSenderFn   func(ctx context.Context, loanNumericID uint64, userID string) (int64, error)
	ListByUserFn                 func(ctx context.Context, userID string) ([]transaction.Transaction, error)
}

func (m *Repo) Create(ctx context.Context, t *transaction.Transaction) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	return nil
}
func (m *Repo) Save(ctx context.Context, t *transaction.Transaction) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, t)
	}
	return nil
}
func (m *Repo) GetByOrderID(ctx context.Context, orderID string) (*transaction.Transaction, error) {
	if m.GetByOrderIDFn != nil {
		return m.GetByOrderIDFn(ctx, orderID)
	}
	return nil, transaction.ErrNotFound
}
func (m *Repo) LastByLoanTypeStatus(ctx context.Context, loanNumericID uint64, typ transaction.Type, status transaction.Status) (*transaction.Transaction, error) {
	if m.LastByLoanTypeStatusFn != nil {
		return m.LastByLoanTypeStatusFn(ctx, loanNumericID, typ, status)
	}
	return nil, transaction.ErrNotFound
}
func (m *Repo) LastByLoan(ctx context.Context, loanNumericID uint64) (*transaction.Transaction, error) {
	if m.LastByLoanFn != nil {
		return m.LastByLoanFn(ctx, loanNumericID)
	}
	return nil, transaction.ErrNotFound
}
func (m *Repo) SumCompletedByLoanReceiver(ctx context.Context, loanNumericID uint64, userID string) (int64, error) {
	if m.SumCompletedByLoanReceiverFn != nil {
		return m.SumCompletedByLoanReceiverFn(ctx, loanNumericID, userID)
	}
	return 0, nil
}
func (m *Repo) SumCompletedByLoanSender(ctx context.Context, loanNumericID uint64, userID string) (int64, error) {
	if m.SumCompletedByLoanSenderFn != nil {
		return m.SumCompletedByLoanSenderFn(ctx, loanNumericID, userID)
	}
	return 0, nil
}
func (m *Repo) ListByUser(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID)
	}
	return nil, nil
}
