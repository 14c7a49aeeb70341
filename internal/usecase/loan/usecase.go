package loan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	domain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/gateway"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/internal/domain/user"
	"f2f-lending-backend/pkg/id"
)

// Usecase is the loan state machine. Every entry point takes the acting
// principal explicitly; there is no ambient "current user".
type Usecase struct {
	uow        uow.UnitOfWork
	gw         gateway.PaymentGateway
	dir        user.Directory
	notifier   StatusNotifier
	agreements AgreementSender
}

func NewUsecase(tx uow.UnitOfWork, gw gateway.PaymentGateway, dir user.Directory, n StatusNotifier, ag AgreementSender) *Usecase {
	return &Usecase{uow: tx, gw: gw, dir: dir, notifier: n, agreements: ag}
}

// CreateRequest opens a PENDING loan from borrower towards lender.
func (u *Usecase) CreateRequest(ctx context.Context, in CreateRequestInput) (*LoanDTO, error) {
	if in.BorrowerID == "" || in.LenderID == "" {
		return nil, fmt.Errorf("%w: borrower and lender are required", domain.ErrValidation)
	}
	if in.BorrowerID == in.LenderID {
		return nil, fmt.Errorf("%w: self loan request does not make sense", domain.ErrInvalidRequest)
	}
	if in.AmountPaise <= 0 {
		return nil, fmt.Errorf("%w: requested amount must be positive", domain.ErrValidation)
	}
	if err := domain.ValidatePlan(in.RepaymentMode, in.EMIStartDate, in.OnetimeRepaymentDate, in.EMITenureMonths); err != nil {
		return nil, err
	}
	if _, err := u.dir.Resolve(ctx, in.LenderID); err != nil {
		return nil, fmt.Errorf("%w: unknown lender", domain.ErrInvalidRequest)
	}

	l := &domain.Loan{
		LoanID:               id.New32(),
		LenderID:             in.LenderID,
		BorrowerID:           in.BorrowerID,
		RequestedPaise:       in.AmountPaise,
		InterestRate:         in.F2FInterestRate,
		F2FInterestRate:      in.F2FInterestRate,
		RepaymentMode:        in.RepaymentMode,
		EMIStartDate:         in.EMIStartDate,
		EMITenureMonths:      in.EMITenureMonths,
		OnetimeRepaymentDate: in.OnetimeRepaymentDate,
		Status:               domain.StatusPending,
		IsPrepaymentAllowed:  true,
		BorrowerComments:     in.Comments,
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Loans.Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}

	u.notifier.StatusUpdate(ctx, l, domain.StatusPending)
	return toDTO(l), nil
}

// Get returns the loan as seen by one of its parties.
func (u *Usecase) Get(ctx context.Context, loanID, principalID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return mapNotFound(err)
		}
		if l.LenderID != principalID && l.BorrowerID != principalID {
			return domain.ErrNotFoundOrProcessed
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// LenderDecide applies the lender's decision on a PENDING loan. Any other
// state — including a decision that raced this one — fails with
// ErrNotFoundOrProcessed and leaves no side effects.
func (u *Usecase) LenderDecide(ctx context.Context, in LenderDecision) (*OfferResult, error) {
	if (in.Approve == nil) == (in.Reject == nil) {
		return nil, fmt.Errorf("%w: exactly one of approve or reject must be set", domain.ErrValidation)
	}
	if in.Reject != nil {
		return u.reject(ctx, in)
	}
	return u.approve(ctx, in)
}

func (u *Usecase) reject(ctx context.Context, in LenderDecision) (*OfferResult, error) {
	var snapshot *domain.Loan
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		if l.LenderID != in.LenderID || l.Status != domain.StatusPending {
			return domain.ErrNotFoundOrProcessed
		}
		now := time.Now().UTC()
		l.Status = domain.StatusRejected
		l.LenderRemarks = in.Reject.Remarks
		l.RejectedAt = &now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		snapshot = l
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	u.notifier.StatusUpdate(ctx, snapshot, domain.StatusRejected)
	return &OfferResult{LoanID: snapshot.LoanID, Status: domain.StatusRejected}, nil
}

func (u *Usecase) approve(ctx context.Context, in LenderDecision) (*OfferResult, error) {
	terms := in.Approve

	// Validate against a snapshot before touching the gateway. The status
	// is re-checked under lock after the order exists.
	var rateModified bool
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, in.LoanID)
		if err != nil {
			return mapNotFound(err)
		}
		if l.LenderID != in.LenderID || l.Status != domain.StatusPending {
			return domain.ErrNotFoundOrProcessed
		}
		if err := domain.ValidateOffer(l.RequestedPaise, terms.PrincipalPaise, terms.InterestRate); err != nil {
			return err
		}
		rateModified = terms.InterestRate != l.InterestRate
		return nil
	})
	if err != nil {
		return nil, err
	}

	lender, err := u.dir.Resolve(ctx, in.LenderID)
	if err != nil {
		return nil, err
	}
	if lender.UPI == "" {
		return nil, fmt.Errorf("%w: lender %s", user.ErrNoPayoutAccount, in.LenderID)
	}

	// Blocking external I/O stays outside any held row lock.
	orderID, err := u.gw.CreateOrder(ctx, terms.PrincipalPaise, lender.UPI, map[string]string{
		"type":    "loan_funding",
		"loan_id": in.LoanID,
	})
	if err != nil {
		return nil, err
	}

	var snapshot *domain.Loan
	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		// Optimistic re-check: another decision may have landed while the
		// order was being created.
		if l.LenderID != in.LenderID || l.Status != domain.StatusPending {
			return domain.ErrNotFoundOrProcessed
		}
		now := time.Now().UTC()

		l.PrincipalPaise = terms.PrincipalPaise
		l.OutstandingPaise = terms.PrincipalPaise
		l.InterestRate = terms.InterestRate
		l.IsInterestRateModified = rateModified
		l.LenderRemarks = terms.Remarks
		l.GatewayOrderID = orderID
		l.ApprovedAt = &now
		if l.FullyApproved() {
			l.Status = domain.StatusApproved
		} else {
			l.Status = domain.StatusPartialApproved
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		txn := &transaction.Transaction{
			TransactionID:  id.New32(),
			LoanID:         &l.ID,
			SenderID:       &l.LenderID,
			AmountPaise:    terms.PrincipalPaise,
			Type:           transaction.TypeLoanPayment,
			Status:         transaction.StatusInitiated,
			GatewayOrderID: &orderID,
			ReferenceID:    id.NewReference("funding"),
			InitiatedAt:    &now,
		}
		if err := r.Transactions.Create(ctx, txn); err != nil {
			return err
		}
		snapshot = l
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFoundOrProcessed) {
			// The order was never paid; it expires on the gateway side.
			log.Printf("loan %s: decision lost the race, abandoning order %s", in.LoanID, orderID)
		}
		return nil, mapNotFound(err)
	}

	u.notifier.StatusUpdate(ctx, snapshot, snapshot.Status)
	return &OfferResult{
		LoanID:     snapshot.LoanID,
		Status:     snapshot.Status,
		OrderID:    orderID,
		PaymentURL: paymentURL(orderID),
	}, nil
}

// BorrowerDecide applies the borrower's accept/cancel decision on a
// partially approved loan.
func (u *Usecase) BorrowerDecide(ctx context.Context, in BorrowerDecision) (*OfferResult, error) {
	switch in.Decision {
	case DecisionAccept:
		return u.acceptPartial(ctx, in)
	case DecisionCancel:
		return u.cancelPartial(ctx, in)
	default:
		return nil, fmt.Errorf("%w: decision must be %q or %q", domain.ErrValidation, DecisionAccept, DecisionCancel)
	}
}

func (u *Usecase) acceptPartial(ctx context.Context, in BorrowerDecision) (*OfferResult, error) {
	var funded bool
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		if l.BorrowerID != in.BorrowerID || l.Status != domain.StatusPartialApproved {
			return domain.ErrNotFoundOrProcessed
		}
		now := time.Now().UTC()
		l.Status = domain.StatusPartialLoanAccepted
		l.AcceptedAt = &now
		funded = l.IsFundedByLender
		return r.Loans.Save(ctx, l)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	if !funded {
		// Funding has not been confirmed yet; the webhook will drive the
		// payout once it arrives.
		return &OfferResult{LoanID: in.LoanID, Status: domain.StatusPartialLoanAccepted}, nil
	}
	if err := u.DrivePayout(ctx, in.LoanID); err != nil {
		return nil, err
	}
	return &OfferResult{LoanID: in.LoanID, Status: domain.StatusOngoing}, nil
}

func (u *Usecase) cancelPartial(ctx context.Context, in BorrowerDecision) (*OfferResult, error) {
	// Snapshot first: the refund destination is resolved before any write.
	var funded bool
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, in.LoanID)
		if err != nil {
			return mapNotFound(err)
		}
		if l.BorrowerID != in.BorrowerID || l.Status != domain.StatusPartialApproved {
			return domain.ErrNotFoundOrProcessed
		}
		funded = l.IsFundedByLender
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !funded {
		// Nothing escrowed yet; cancellation is a plain state flip.
		var snapshot *domain.Loan
		err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
			if l.BorrowerID != in.BorrowerID || l.Status != domain.StatusPartialApproved {
				return domain.ErrNotFoundOrProcessed
			}
			now := time.Now().UTC()
			l.Status = domain.StatusCancelled
			l.CancelledByBorrowerAt = &now
			snapshot = l
			return r.Loans.Save(ctx, l)
		})
		if err != nil {
			return nil, mapNotFound(err)
		}
		u.notifier.StatusUpdate(ctx, snapshot, domain.StatusCancelled)
		return &OfferResult{LoanID: in.LoanID, Status: domain.StatusCancelled}, nil
	}

	return u.refundAndCancel(ctx, in)
}

// refundAndCancel returns the escrowed principal to the lender, then flips
// the loan to CANCELLED. The refund call runs between two transactions so
// no row lock spans external I/O; the loan only changes state once the
// refund is confirmed.
func (u *Usecase) refundAndCancel(ctx context.Context, in BorrowerDecision) (*OfferResult, error) {
	var refund *transaction.Transaction
	var lenderID string
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		if l.BorrowerID != in.BorrowerID || l.Status != domain.StatusPartialApproved {
			return domain.ErrNotFoundOrProcessed
		}
		now := time.Now().UTC()
		lenderID = l.LenderID
		refund = &transaction.Transaction{
			TransactionID: id.New32(),
			LoanID:        &l.ID,
			ReceiverID:    &l.LenderID,
			AmountPaise:   l.PrincipalPaise,
			Type:          transaction.TypeRefund,
			Status:        transaction.StatusInitiated,
			ReferenceID:   id.NewReference("refund"),
			InitiatedAt:   &now,
		}
		return r.Transactions.Create(ctx, refund)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	lender, err := u.dir.Resolve(ctx, lenderID)
	if err != nil {
		return nil, err
	}
	if lender.UPI == "" {
		return nil, fmt.Errorf("%w: lender %s", user.ErrNoPayoutAccount, lenderID)
	}

	refundID, meta, gwErr := u.gw.Refund(ctx, lender.UPI, refund.AmountPaise, refund.ReferenceID)

	var snapshot *domain.Loan
	var conflict bool
	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		now := time.Now().UTC()
		if gwErr != nil {
			refund.Status = transaction.StatusFailed
			refund.FailedAt = &now
			return r.Transactions.Save(ctx, refund)
		}
		refund.Status = transaction.StatusCompleted
		refund.GatewayPaymentID = refundID
		refund.Metadata = meta
		refund.CompletedAt = &now

		// The refund went out, but the loan may have moved on while the
		// gateway call was in flight (the borrower accepting on another
		// request, say). Never overwrite a later state with CANCELLED:
		// record the completed refund and leave the loan alone.
		if l.BorrowerID != in.BorrowerID || l.Status != domain.StatusPartialApproved {
			if refund.Metadata == nil {
				refund.Metadata = transaction.Metadata{}
			}
			refund.Metadata["needs_reconciliation"] = "true"
			conflict = true
			return r.Transactions.Save(ctx, refund)
		}
		if err := r.Transactions.Save(ctx, refund); err != nil {
			return err
		}
		l.Status = domain.StatusCancelled
		l.CancelledByBorrowerAt = &now
		snapshot = l
		return r.Loans.Save(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	if gwErr != nil {
		// Loan left in PARTIAL_APPROVED; the borrower can retry the cancel.
		return nil, gwErr
	}
	if conflict {
		log.Printf("loan %s: state changed during refund, transaction %s flagged for reconciliation", in.LoanID, refund.TransactionID)
		return nil, domain.ErrNotFoundOrProcessed
	}

	u.notifier.StatusUpdate(ctx, snapshot, domain.StatusCancelled)
	return &OfferResult{LoanID: in.LoanID, Status: domain.StatusCancelled}, nil
}

// MarkDefaulted flips an ONGOING loan to DEFAULTED. Deliberately an
// explicit operator action: what counts as "beyond tolerance" is a product
// decision, not something the sweep guesses at.
func (u *Usecase) MarkDefaulted(ctx context.Context, loanID string) error {
	var snapshot *domain.Loan
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.Status != domain.StatusOngoing {
			return domain.ErrNotFoundOrProcessed
		}
		l.Status = domain.StatusDefaulted
		snapshot = l
		return r.Loans.Save(ctx, l)
	})
	if err != nil {
		return mapNotFound(err)
	}
	u.notifier.StatusUpdate(ctx, snapshot, domain.StatusDefaulted)
	return nil
}

// mapNotFound translates a storage miss into the caller-facing race/stale
// error, leaving all other errors untouched.
func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFoundOrProcessed
	}
	return err
}
