package loan

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByID resolves by surrogate key (transaction rows link loans this way).
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// GetByLoanIDForUpdate locks the row for the duration of the enclosing
	// transaction. Decision flows must read through this.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// GetByOrderID resolves a loan by its funding order (webhook fallback).
	GetByOrderID(ctx context.Context, orderID string) (*Loan, error)
	ListByLenderAndStatus(ctx context.Context, lenderID string, status Status) ([]Loan, error)
	ListByBorrowerAndStatus(ctx context.Context, borrowerID string, status Status) ([]Loan, error)
	ListByStatus(ctx context.Context, status Status) ([]Loan, error)
}

type EMIRepository interface {
	CreateBatch(ctx context.Context, emis []EMI) error
	Save(ctx context.Context, e *EMI) error
	ListByLoan(ctx context.Context, loanNumericID uint64) ([]EMI, error)
	// NextUnpaid returns the lowest-numbered PENDING or MISSED installment.
	NextUnpaid(ctx context.Context, loanNumericID uint64) (*EMI, error)
	// CountUnpaid counts installments still awaiting money.
	CountUnpaid(ctx context.Context, loanNumericID uint64) (int64, error)
	GetByNumber(ctx context.Context, loanNumericID uint64, number int) (*EMI, error)
	// ListPendingDueBefore returns PENDING installments with a due date
	// strictly before cutoff, regardless of loan.
	ListPendingDueBefore(ctx context.Context, loanNumericID uint64, cutoff time.Time) ([]EMI, error)
}
