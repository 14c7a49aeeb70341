package loan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/internal/domain/user"
	"f2f-lending-backend/pkg/id"
)

// DrivePayout disburses the escrowed principal to the borrower and moves
// the loan to ONGOING. Preconditions: the lender's money has been captured
// AND the offer has borrower consent (full approval, or an accepted
// partial). The gateway call runs between two transactions; the driver
// claims the transaction (PENDING) under the row lock before calling out,
// so a concurrent driver backs off instead of paying twice. An INITIATED
// row left by an older writer is claimed and resumed, never duplicated.
func (u *Usecase) DrivePayout(ctx context.Context, loanID string) error {
	var payout *transaction.Transaction
	var borrowerID string
	var busy bool
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if !payoutReady(l) {
			return fmt.Errorf("%w: loan %s not ready for payout", domain.ErrInvalidRequest, loanID)
		}
		borrowerID = l.BorrowerID

		// Another driver has already claimed a payout and is mid-call.
		inflight, err := r.Transactions.LastByLoanTypeStatus(ctx, l.ID, transaction.TypePayout, transaction.StatusPending)
		if err != nil && !errors.Is(err, transaction.ErrNotFound) {
			return err
		}
		if inflight != nil {
			busy = true
			return nil
		}

		// Resume an interrupted attempt, claiming it so a concurrent
		// driver backs off instead of paying the borrower twice.
		prev, err := r.Transactions.LastByLoanTypeStatus(ctx, l.ID, transaction.TypePayout, transaction.StatusInitiated)
		if err != nil && !errors.Is(err, transaction.ErrNotFound) {
			return err
		}
		if prev != nil {
			prev.Status = transaction.StatusPending
			payout = prev
			return r.Transactions.Save(ctx, prev)
		}

		now := time.Now().UTC()
		payout = &transaction.Transaction{
			TransactionID: id.New32(),
			LoanID:        &l.ID,
			ReceiverID:    &l.BorrowerID,
			AmountPaise:   l.PrincipalPaise,
			Type:          transaction.TypePayout,
			Status:        transaction.StatusPending,
			ReferenceID:   id.NewReference("payout"),
			InitiatedAt:   &now,
		}
		return r.Transactions.Create(ctx, payout)
	})
	if err != nil {
		return mapNotFound(err)
	}
	if busy {
		log.Printf("loan %s: payout already in flight, backing off", loanID)
		return nil
	}

	borrower, err := u.dir.Resolve(ctx, borrowerID)
	if err != nil {
		return err
	}
	if borrower.UPI == "" {
		return fmt.Errorf("%w: borrower %s", user.ErrNoPayoutAccount, borrowerID)
	}

	payoutID, meta, gwErr := u.gw.Payout(ctx, borrower.UPI, payout.AmountPaise, payout.ReferenceID)

	var snapshot *domain.Loan
	var conflict bool
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		now := time.Now().UTC()
		if gwErr != nil {
			payout.Status = transaction.StatusFailed
			payout.FailedAt = &now
			return r.Transactions.Save(ctx, payout)
		}
		payout.Status = transaction.StatusCompleted
		payout.GatewayPaymentID = payoutID
		payout.Metadata = meta
		payout.CompletedAt = &now

		// The money moved, but the loan may have changed hands while the
		// gateway call was in flight (a concurrent cancel, say). Record
		// the completed payout either way; only flip the loan when it is
		// still the loan we paid out for.
		if !payoutReady(l) {
			if payout.Metadata == nil {
				payout.Metadata = transaction.Metadata{}
			}
			payout.Metadata["needs_reconciliation"] = "true"
			conflict = true
			return r.Transactions.Save(ctx, payout)
		}
		if err := r.Transactions.Save(ctx, payout); err != nil {
			return err
		}

		l.Status = domain.StatusOngoing
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if l.RepaymentMode == domain.ModeEMI {
			if err := u.ensureSchedule(ctx, r, l); err != nil {
				return err
			}
		}
		snapshot = l
		return nil
	})
	if err != nil {
		return err
	}
	if gwErr != nil {
		// Loan state untouched; the money stays escrowed until a retry.
		return gwErr
	}
	if conflict {
		log.Printf("loan %s: state changed during payout, transaction %s flagged for reconciliation", loanID, payout.TransactionID)
		return domain.ErrNotFoundOrProcessed
	}

	u.notifier.StatusUpdate(ctx, snapshot, domain.StatusOngoing)
	if u.agreements != nil {
		if err := u.agreements.Send(ctx, snapshot); err != nil {
			log.Printf("loan %s: agreement delivery failed: %v", loanID, err)
		}
	}
	return nil
}

// RetryPayout re-drives disbursal after a failed or interrupted attempt.
// It is the recovery entry point for gateway failures: the failed attempt
// stays FAILED, a fresh transaction is cut.
func (u *Usecase) RetryPayout(ctx context.Context, loanID, borrowerID string) error {
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return mapNotFound(err)
		}
		if l.BorrowerID != borrowerID {
			return domain.ErrNotFoundOrProcessed
		}
		if !payoutReady(l) {
			return fmt.Errorf("%w: loan %s not awaiting payout", domain.ErrInvalidRequest, loanID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return u.DrivePayout(ctx, loanID)
}

// payoutReady: money captured and consent complete, not yet disbursed.
func payoutReady(l *domain.Loan) bool {
	if !l.IsFundedByLender {
		return false
	}
	switch l.Status {
	case domain.StatusApproved:
		return l.FullyApproved()
	case domain.StatusPartialLoanAccepted:
		return true
	}
	return false
}

// ensureSchedule creates the EMI rows exactly once; reruns after a crash
// find the existing rows and leave them alone.
func (u *Usecase) ensureSchedule(ctx context.Context, r uow.Repos, l *domain.Loan) error {
	existing, err := r.EMIs.ListByLoan(ctx, l.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	start := time.Now().UTC().AddDate(0, 1, 0)
	if l.EMIStartDate != nil {
		start = *l.EMIStartDate
	}
	rows, err := domain.BuildSchedule(l.PrincipalPaise, l.InterestRate, l.EMITenureMonths, start)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].LoanID = l.ID
	}
	return r.EMIs.CreateBatch(ctx, rows)
}
