package transaction

import "context"

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Save(ctx context.Context, t *Transaction) error
	GetByOrderID(ctx context.Context, orderID string) (*Transaction, error)
	// LastByLoanTypeStatus returns the most recent transaction for the loan
	// matching type and status (payout retry lookup).
	LastByLoanTypeStatus(ctx context.Context, loanNumericID uint64, typ Type, status Status) (*Transaction, error)
	LastByLoan(ctx context.Context, loanNumericID uint64) (*Transaction, error)
	// SumCompletedByLoanReceiver totals COMPLETED amounts on the loan paid
	// to the given user.
	SumCompletedByLoanReceiver(ctx context.Context, loanNumericID uint64, userID string) (int64, error)
	// SumCompletedByLoanSender totals COMPLETED amounts on the loan paid by
	// the given user.
	SumCompletedByLoanSender(ctx context.Context, loanNumericID uint64, userID string) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]Transaction, error)
}
