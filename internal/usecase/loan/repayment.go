package loan

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	domain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/pkg/id"
)

// CreateRepaymentOrder opens a collection order for the next repayment the
// borrower owes: the next unpaid installment in EMI mode, the whole
// remaining balance in onetime mode, or the full outstanding principal for
// a prepayment. Money only moves state when the capture webhook lands.
func (u *Usecase) CreateRepaymentOrder(ctx context.Context, in RepaymentOrderInput) (*RepaymentOrder, error) {
	var amount int64
	var emiNumber int
	notes := map[string]string{"loan_id": in.LoanID}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, in.LoanID)
		if err != nil {
			return mapNotFound(err)
		}
		if l.BorrowerID != in.BorrowerID || l.Status != domain.StatusOngoing {
			return domain.ErrNotFoundOrProcessed
		}

		switch {
		case in.Prepay:
			if !l.IsPrepaymentAllowed {
				return domain.ErrPrepaymentNotAllowed
			}
			amount = l.OutstandingPaise
			notes["repayment"] = "prepay"

		case l.RepaymentMode == domain.ModeEMI:
			next, err := r.EMIs.NextUnpaid(ctx, l.ID)
			if err != nil {
				return err
			}
			if next == nil {
				return fmt.Errorf("%w: no unpaid installment", domain.ErrInvalidRequest)
			}
			amount = next.AmountPaise + next.PenaltyPaise
			emiNumber = next.Number
			notes["repayment"] = "emi"
			notes["emi_number"] = strconv.Itoa(next.Number)

		default: // onetime
			due := domain.OnetimeAmountDue(l.PrincipalPaise, l.InterestRate, fundedOr(l), *l.OnetimeRepaymentDate)
			amount = due - l.TotalPaidPaise
			notes["repayment"] = "onetime"
		}

		if amount <= 0 {
			return fmt.Errorf("%w: nothing due", domain.ErrInvalidRequest)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The payer hint is best effort: the borrower completes the hosted
	// checkout regardless of whether a UPI id is on file.
	payerUPI := ""
	if p, err := u.dir.Resolve(ctx, in.BorrowerID); err == nil {
		payerUPI = p.UPI
	}
	orderID, err := u.gw.CreateOrder(ctx, amount, payerUPI, notes)
	if err != nil {
		return nil, err
	}

	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		// The loan may have closed while the order was being created.
		if l.Status != domain.StatusOngoing {
			return domain.ErrNotFoundOrProcessed
		}
		now := time.Now().UTC()
		meta := transaction.Metadata{}
		for k, v := range notes {
			meta[k] = v
		}
		return r.Transactions.Create(ctx, &transaction.Transaction{
			TransactionID:  id.New32(),
			LoanID:         &l.ID,
			SenderID:       &l.BorrowerID,
			AmountPaise:    amount,
			Type:           transaction.TypeEMI,
			Status:         transaction.StatusInitiated,
			GatewayOrderID: &orderID,
			ReferenceID:    id.NewReference("repay"),
			Metadata:       meta,
			InitiatedAt:    &now,
		})
	})
	if err != nil {
		log.Printf("loan %s: repayment order %s abandoned: %v", in.LoanID, orderID, err)
		return nil, mapNotFound(err)
	}

	return &RepaymentOrder{
		LoanID:      in.LoanID,
		OrderID:     orderID,
		AmountPaise: amount,
		EMINumber:   emiNumber,
		PaymentURL:  paymentURL(orderID),
	}, nil
}

// fundedOr returns the funding instant, falling back to approval then
// creation for rows written before funded_at existed.
func fundedOr(l *domain.Loan) time.Time {
	if l.FundedAt != nil {
		return *l.FundedAt
	}
	if l.ApprovedAt != nil {
		return *l.ApprovedAt
	}
	return l.CreatedAt
}
