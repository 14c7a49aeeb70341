package loan

import (
	"context"
	"time"

	domain "f2f-lending-backend/internal/domain/loan"
)

// StatusNotifier records the per-party activity entries for a committed
// status change. Implementations are fire-and-forget.
type StatusNotifier interface {
	StatusUpdate(ctx context.Context, l *domain.Loan, status domain.Status)
}

// AgreementSender delivers the loan agreement once a loan goes live.
// Optional collaborator; delivery failure never affects loan state.
type AgreementSender interface {
	Send(ctx context.Context, l *domain.Loan) error
}

type CreateRequestInput struct {
	BorrowerID string
	LenderID   string

	AmountPaise     int64
	F2FInterestRate float64

	RepaymentMode        domain.RepaymentMode
	EMIStartDate         *time.Time
	EMITenureMonths      int
	OnetimeRepaymentDate *time.Time

	Comments string
}

// LenderDecision is a tagged variant: exactly one of Approve or Reject
// must be set.
type LenderDecision struct {
	LoanID   string
	LenderID string

	Approve *ApproveTerms
	Reject  *RejectTerms
}

type ApproveTerms struct {
	PrincipalPaise int64
	InterestRate   float64
	Remarks        string
}

type RejectTerms struct {
	Remarks string
}

type BorrowerDecision struct {
	LoanID     string
	BorrowerID string
	Decision   string // "accept" | "cancel"
}

const (
	DecisionAccept = "accept"
	DecisionCancel = "cancel"
)

type RepaymentOrderInput struct {
	LoanID     string
	BorrowerID string
	// Prepay requests early closure of the full outstanding principal.
	Prepay bool
}

type OfferResult struct {
	LoanID     string        `json:"loan_id"`
	Status     domain.Status `json:"status"`
	OrderID    string        `json:"order_id,omitempty"`
	PaymentURL string        `json:"payment_url,omitempty"`
}

type RepaymentOrder struct {
	LoanID      string `json:"loan_id"`
	OrderID     string `json:"order_id"`
	AmountPaise int64  `json:"amount_paise"`
	EMINumber   int    `json:"emi_number,omitempty"`
	PaymentURL  string `json:"payment_url"`
}

type LoanDTO struct {
	LoanID     string `json:"loan_id"`
	LenderID   string `json:"lender_id"`
	BorrowerID string `json:"borrower_id"`

	RequestedPaise   int64   `json:"requested_paise"`
	PrincipalPaise   int64   `json:"principal_paise"`
	OutstandingPaise int64   `json:"outstanding_paise"`
	TotalPaidPaise   int64   `json:"total_paid_paise"`
	InterestRate     float64 `json:"interest_rate"`

	RepaymentMode domain.RepaymentMode `json:"repayment_mode"`
	Status        domain.Status        `json:"status"`

	IsFundedByLender bool      `json:"is_funded_by_lender"`
	CreatedAt        time.Time `json:"created_at"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:           l.LoanID,
		LenderID:         l.LenderID,
		BorrowerID:       l.BorrowerID,
		RequestedPaise:   l.RequestedPaise,
		PrincipalPaise:   l.PrincipalPaise,
		OutstandingPaise: l.OutstandingPaise,
		TotalPaidPaise:   l.TotalPaidPaise,
		InterestRate:     l.InterestRate,
		RepaymentMode:    l.RepaymentMode,
		Status:           l.Status,
		IsFundedByLender: l.IsFundedByLender,
		CreatedAt:        l.CreatedAt,
	}
}

// paymentURL is the hosted checkout link for a collection order.
func paymentURL(orderID string) string { return "https://rzp.io/i/" + orderID }
