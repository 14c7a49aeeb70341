package webhook

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"f2f-lending-backend/internal/domain/activity"
	"f2f-lending-backend/internal/domain/gateway"
	"f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/internal/domain/user"
	"f2f-lending-backend/pkg/id"
)

// StatusNotifier mirrors the loan usecase's notifier so the reconciler can
// announce the transitions it commits.
type StatusNotifier interface {
	StatusUpdate(ctx context.Context, l *loan.Loan, status loan.Status)
}

// PayoutDriver disburses a funded, consented loan. Implemented by the loan
// usecase.
type PayoutDriver interface {
	DrivePayout(ctx context.Context, loanID string) error
}

// Usecase reconciles gateway webhook events against the ledger. Deliveries
// are at-least-once and unordered; every path through Ingest is idempotent.
type Usecase struct {
	uow      uow.UnitOfWork
	gw       gateway.PaymentGateway
	dir      user.Directory
	rec      activity.Recorder
	notifier StatusNotifier
	payouts  PayoutDriver
}

func NewUsecase(tx uow.UnitOfWork, gw gateway.PaymentGateway, dir user.Directory, rec activity.Recorder, n StatusNotifier, p PayoutDriver) *Usecase {
	return &Usecase{uow: tx, gw: gw, dir: dir, rec: rec, notifier: n, payouts: p}
}

// Ingest applies one event. Returns ErrMalformedEvent for payloads that can
// never be applied and ErrUnknownOrder when the order matches nothing we
// issued; both are terminal, the gateway must not redeliver.
func (u *Usecase) Ingest(ctx context.Context, ev gateway.Event) error {
	if ev.OrderID == "" {
		return fmt.Errorf("%w: missing order id", loan.ErrMalformedEvent)
	}
	if ev.PaymentID == "" {
		return fmt.Errorf("%w: missing payment id", loan.ErrMalformedEvent)
	}
	if ev.Event != gateway.EventCaptured && ev.Event != gateway.EventFailed {
		return fmt.Errorf("%w: unhandled event %q", loan.ErrMalformedEvent, ev.Event)
	}

	loanID, err := u.resolveLoan(ctx, ev)
	if err != nil {
		return err
	}

	var after *outcome
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		txn, err := r.Transactions.GetByOrderID(ctx, ev.OrderID)
		if errors.Is(err, transaction.ErrNotFound) {
			// The decision flow crashed between the gateway call and its
			// commit. Reconstruct the funding row from the loan itself.
			txn, err = u.adoptOrphanOrder(ctx, r, l, ev)
		}
		if err != nil {
			return err
		}

		// Idempotency gate: a terminal transaction absorbs replays.
		if txn.Status.Terminal() {
			return nil
		}

		if ev.Event == gateway.EventFailed {
			now := time.Now().UTC()
			txn.Status = transaction.StatusFailed
			txn.GatewayPaymentID = ev.PaymentID
			txn.FailedAt = &now
			// Loan state is deliberately untouched: a failed payment
			// attempt never advances or rolls back the lifecycle.
			return r.Transactions.Save(ctx, txn)
		}

		switch txn.Type {
		case transaction.TypeLoanPayment:
			after, err = u.applyFunding(ctx, r, l, txn, ev)
		case transaction.TypeEMI:
			after, err = u.applyRepayment(ctx, r, l, txn, ev)
		case transaction.TypeRequestedPayment:
			err = u.completeTransaction(ctx, r, txn, ev)
		default:
			return fmt.Errorf("%w: order %s resolves to a %s transaction", loan.ErrMalformedEvent, ev.OrderID, txn.Type)
		}
		return err
	})
	if err != nil {
		return err
	}
	if after == nil {
		return nil
	}

	if after.notify != "" {
		u.notifier.StatusUpdate(ctx, after.loan, after.notify)
	}
	if after.drivePayout {
		if err := u.payouts.DrivePayout(ctx, loanID); err != nil {
			// Funding is recorded; disbursal is retried explicitly.
			log.Printf("webhook: payout for loan %s failed: %v", loanID, err)
		}
	}
	if after.forwardPaise > 0 {
		u.forwardToLender(ctx, loanID, after.loan.LenderID, after.forwardPaise)
	}
	return nil
}

// outcome is the post-commit work a captured event produces.
type outcome struct {
	loan         *loan.Loan
	notify       loan.Status
	drivePayout  bool
	forwardPaise int64
}

// resolveLoan maps the order to a loan without taking the row lock yet.
func (u *Usecase) resolveLoan(ctx context.Context, ev gateway.Event) (string, error) {
	var loanID string
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if txn, err := r.Transactions.GetByOrderID(ctx, ev.OrderID); err == nil {
			if txn.LoanID == nil {
				return fmt.Errorf("%w: order %s has no loan", loan.ErrMalformedEvent, ev.OrderID)
			}
			l, err := r.Loans.GetByID(ctx, *txn.LoanID)
			if err != nil {
				return err
			}
			loanID = l.LoanID
			return nil
		} else if !errors.Is(err, transaction.ErrNotFound) {
			return err
		}

		l, err := r.Loans.GetByOrderID(ctx, ev.OrderID)
		if err != nil {
			return fmt.Errorf("%w: %s", loan.ErrUnknownOrder, ev.OrderID)
		}
		loanID = l.LoanID
		return nil
	})
	return loanID, err
}

// adoptOrphanOrder recreates the funding transaction the decision flow
// failed to commit. Only funding orders can be orphaned this way; the loan
// row is their fallback index.
func (u *Usecase) adoptOrphanOrder(ctx context.Context, r uow.Repos, l *loan.Loan, ev gateway.Event) (*transaction.Transaction, error) {
	if l.GatewayOrderID != ev.OrderID {
		return nil, fmt.Errorf("%w: %s", loan.ErrUnknownOrder, ev.OrderID)
	}
	log.Printf("webhook: adopting orphan funding order %s for loan %s", ev.OrderID, l.LoanID)
	now := time.Now().UTC()
	orderID := ev.OrderID
	txn := &transaction.Transaction{
		TransactionID:  id.New32(),
		LoanID:         &l.ID,
		SenderID:       &l.LenderID,
		AmountPaise:    l.PrincipalPaise,
		Type:           transaction.TypeLoanPayment,
		Status:         transaction.StatusInitiated,
		GatewayOrderID: &orderID,
		ReferenceID:    id.NewReference("funding"),
		InitiatedAt:    &now,
	}
	if err := r.Transactions.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (u *Usecase) completeTransaction(ctx context.Context, r uow.Repos, txn *transaction.Transaction, ev gateway.Event) error {
	now := time.Now().UTC()
	txn.Status = transaction.StatusCompleted
	txn.GatewayPaymentID = ev.PaymentID
	if len(ev.Metadata) > 0 {
		if txn.Metadata == nil {
			txn.Metadata = transaction.Metadata{}
		}
		for k, v := range ev.Metadata {
			txn.Metadata[k] = v
		}
	}
	txn.CompletedAt = &now
	return r.Transactions.Save(ctx, txn)
}

// applyFunding records the lender's captured principal and decides whether
// disbursal can start.
func (u *Usecase) applyFunding(ctx context.Context, r uow.Repos, l *loan.Loan, txn *transaction.Transaction, ev gateway.Event) (*outcome, error) {
	if err := u.completeTransaction(ctx, r, txn, ev); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	l.IsFundedByLender = true
	l.FundedAt = &now
	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, err
	}

	out := &outcome{loan: l}
	switch {
	case l.Status == loan.StatusApproved && l.FullyApproved():
		out.drivePayout = true
	case l.Status == loan.StatusPartialLoanAccepted:
		// Borrower consented before the money landed.
		out.drivePayout = true
	case l.Status == loan.StatusPartialApproved:
		// Escrowed; waiting on the borrower's accept/cancel.
	default:
		log.Printf("webhook: funding captured for loan %s in unexpected status %s", l.LoanID, l.Status)
	}
	return out, nil
}

// applyRepayment credits a captured repayment against the loan and its
// schedule, closing the loan when the principal is fully returned.
func (u *Usecase) applyRepayment(ctx context.Context, r uow.Repos, l *loan.Loan, txn *transaction.Transaction, ev gateway.Event) (*outcome, error) {
	if l.Status != loan.StatusOngoing {
		return nil, fmt.Errorf("%w: repayment captured for loan %s in status %s", loan.ErrInvariantViolation, l.LoanID, l.Status)
	}
	if err := u.completeTransaction(ctx, r, txn, ev); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	kind := txn.Metadata["repayment"]
	out := &outcome{loan: l, forwardPaise: txn.AmountPaise}

	switch kind {
	case "prepay":
		l.PrincipalRepaidPaise = l.PrincipalPaise
		l.TotalPaidPaise += txn.AmountPaise
		l.Status = loan.StatusClosedEarly
		l.ClosedAt = &now
		out.notify = loan.StatusClosedEarly

	case "onetime":
		l.PrincipalRepaidPaise = l.PrincipalPaise
		l.TotalPaidPaise += txn.AmountPaise
		l.Status = loan.StatusCompleted
		l.ClosedAt = &now
		out.notify = loan.StatusCompleted

	default: // emi
		e, err := u.resolveInstallment(ctx, r, l, txn)
		if err != nil {
			return nil, err
		}
		if now.After(e.DueDate.AddDate(0, 0, 1)) || e.Status == loan.EMIMissed {
			e.Status = loan.EMILate
		} else {
			e.Status = loan.EMIPaid
		}
		e.PaidAt = &now
		if err := r.EMIs.Save(ctx, e); err != nil {
			return nil, err
		}

		l.PrincipalRepaidPaise += e.PrincipalPaise
		l.TotalPaidPaise += txn.AmountPaise
		left, err := r.EMIs.CountUnpaid(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		if left == 0 {
			l.Status = loan.StatusCompleted
			l.ClosedAt = &now
			out.notify = loan.StatusCompleted
		}
	}

	outstanding, err := loan.RecomputeOutstanding(l)
	if err != nil {
		return nil, err
	}
	l.OutstandingPaise = outstanding
	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, err
	}
	out.loan = l
	return out, nil
}

func (u *Usecase) resolveInstallment(ctx context.Context, r uow.Repos, l *loan.Loan, txn *transaction.Transaction) (*loan.EMI, error) {
	if s, ok := txn.Metadata["emi_number"]; ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: bad emi_number %q", loan.ErrMalformedEvent, s)
		}
		return r.EMIs.GetByNumber(ctx, l.ID, n)
	}
	e, err := r.EMIs.NextUnpaid(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: repayment captured with no unpaid installment on loan %s", loan.ErrInvariantViolation, l.LoanID)
	}
	return e, nil
}

// forwardToLender pushes a captured repayment on to the lender. Failure is
// surfaced as an alert, never as a webhook error: the borrower's payment
// already counted.
func (u *Usecase) forwardToLender(ctx context.Context, loanID, lenderID string, amountPaise int64) {
	var payout *transaction.Transaction
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		now := time.Now().UTC()
		payout = &transaction.Transaction{
			TransactionID: id.New32(),
			LoanID:        &l.ID,
			ReceiverID:    &l.LenderID,
			AmountPaise:   amountPaise,
			Type:          transaction.TypePayout,
			Status:        transaction.StatusInitiated,
			ReferenceID:   id.NewReference("forward"),
			InitiatedAt:   &now,
		}
		return r.Transactions.Create(ctx, payout)
	})
	if err != nil {
		log.Printf("webhook: recording lender forward for loan %s: %v", loanID, err)
		return
	}

	lender, err := u.dir.Resolve(ctx, lenderID)
	if err != nil || lender.UPI == "" {
		u.alertForwardFailure(ctx, loanID, lenderID, "no payout destination on file")
		return
	}

	payoutID, meta, gwErr := u.gw.Payout(ctx, lender.UPI, amountPaise, payout.ReferenceID)
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		now := time.Now().UTC()
		if gwErr != nil {
			payout.Status = transaction.StatusFailed
			payout.FailedAt = &now
		} else {
			payout.Status = transaction.StatusCompleted
			payout.GatewayPaymentID = payoutID
			payout.Metadata = meta
			payout.CompletedAt = &now
		}
		return r.Transactions.Save(ctx, payout)
	})
	if err != nil {
		log.Printf("webhook: confirming lender forward for loan %s: %v", loanID, err)
	}
	if gwErr != nil {
		u.alertForwardFailure(ctx, loanID, lenderID, gwErr.Error())
	}
}

func (u *Usecase) alertForwardFailure(ctx context.Context, loanID, lenderID, reason string) {
	log.Printf("webhook: lender forward failed for loan %s: %s", loanID, reason)
	ref := loanID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	u.rec.Record(ctx, lenderID, lenderID,
		fmt.Sprintf("A repayment on loan #%s was received but could not be transferred to you. Support has been notified.", ref),
		activity.KindAlert)
}
