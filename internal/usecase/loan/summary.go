package loan

import (
	"context"
	"errors"
	"sort"

	domain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/uow"
)

// CounterpartySummary aggregates all ONGOING loans a user holds against one
// counterparty.
type CounterpartySummary struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`

	Loans            int   `json:"loans"`
	PrincipalPaise   int64 `json:"principal_paise"`
	ReceivedPaise    int64 `json:"received_paise"`
	OutstandingPaise int64 `json:"outstanding_paise"`

	LastTransactionID string `json:"last_transaction_id,omitempty"`
}

// LenderSummary groups the lender's ONGOING book by borrower: how much went
// out, how much has come back.
func (u *Usecase) LenderSummary(ctx context.Context, lenderID string) ([]CounterpartySummary, error) {
	return u.summarize(ctx, lenderID, true)
}

// BorrowerSummary is the borrower-side mirror, grouped by lender.
func (u *Usecase) BorrowerSummary(ctx context.Context, borrowerID string) ([]CounterpartySummary, error) {
	return u.summarize(ctx, borrowerID, false)
}

func (u *Usecase) summarize(ctx context.Context, userID string, asLender bool) ([]CounterpartySummary, error) {
	byParty := map[string]*CounterpartySummary{}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var loans []domain.Loan
		var err error
		if asLender {
			loans, err = r.Loans.ListByLenderAndStatus(ctx, userID, domain.StatusOngoing)
		} else {
			loans, err = r.Loans.ListByBorrowerAndStatus(ctx, userID, domain.StatusOngoing)
		}
		if err != nil {
			return err
		}

		for i := range loans {
			l := &loans[i]
			party := l.BorrowerID
			if !asLender {
				party = l.LenderID
			}
			s, ok := byParty[party]
			if !ok {
				s = &CounterpartySummary{UserID: party}
				byParty[party] = s
			}

			// "Received" is from the reader's point of view: repayments
			// forwarded to the lender, or principal paid out to the borrower.
			received, err := r.Transactions.SumCompletedByLoanReceiver(ctx, l.ID, userID)
			if err != nil {
				return err
			}

			s.Loans++
			s.PrincipalPaise += l.PrincipalPaise
			s.ReceivedPaise += received
			s.OutstandingPaise += l.OutstandingPaise

			last, err := r.Transactions.LastByLoan(ctx, l.ID)
			if err != nil && !errors.Is(err, transaction.ErrNotFound) {
				return err
			}
			if last != nil {
				s.LastTransactionID = last.TransactionID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]CounterpartySummary, 0, len(byParty))
	for party, s := range byParty {
		if p, err := u.dir.Resolve(ctx, party); err == nil {
			s.Name = p.Name
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
