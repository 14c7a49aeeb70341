package uow

import (
	"context"

	"f2f-lending-backend/internal/domain/activity"
	"f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/paymentrequest"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/user"
)

// Repos is the set of repositories bound to one storage transaction. The
// ledger store is the single source of truth; the three core components
// coordinate exclusively through it.
type Repos struct {
	Loans           loan.Repository
	EMIs            loan.EMIRepository
	Transactions    transaction.Repository
	Activities      activity.Repository
	PaymentRequests paymentrequest.Repository
	Users           user.Repository
}

type UnitOfWork interface {
	// WithinTx runs fn inside one storage transaction.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx locks the loan row up-front and passes it in, so the
	// read-then-decide sequence cannot race another actor.
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
