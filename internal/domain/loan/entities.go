package loan

import (
	"time"
)

type Status string

const (
	StatusPending             Status = "PENDING"
	StatusApproved            Status = "APPROVED"
	StatusPartialApproved     Status = "PARTIAL_APPROVED"
	StatusPartialLoanAccepted Status = "PARTIAL_LOAN_ACCEPTED"
	StatusRejected            Status = "REJECTED"
	StatusCancelled           Status = "CANCELLED"
	StatusOngoing             Status = "ONGOING"
	StatusCompleted           Status = "COMPLETED"
	StatusDefaulted           Status = "DEFAULTED"
	StatusClosedEarly         Status = "CLOSED_EARLY"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted, StatusDefaulted, StatusClosedEarly:
		return true
	}
	return false
}

type RepaymentMode string

const (
	ModeOnetime RepaymentMode = "ONETIME"
	ModeEMI     RepaymentMode = "EMI"
)

// Loan is the central aggregate. Money columns are int64 paise: the payment
// gateway is paise-denominated, and integer amounts keep the reconciliation
// arithmetic exact.
type Loan struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID string `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`

	LenderID   string `gorm:"size:32;index:idx_loans_lender" json:"lender_id"`
	BorrowerID string `gorm:"size:32;index:idx_loans_borrower" json:"borrower_id"`

	RequestedPaise       int64   `gorm:"column:requested_paise" json:"requested_paise"`
	PrincipalPaise       int64   `gorm:"column:principal_paise" json:"principal_paise"`
	InterestRate         float64 `gorm:"type:decimal(5,2);column:interest_rate" json:"interest_rate"`
	F2FInterestRate      float64 `gorm:"type:decimal(5,2);column:f2f_interest_rate" json:"f2f_interest_rate"`
	PrincipalRepaidPaise int64   `gorm:"column:principal_repaid_paise" json:"principal_repaid_paise"`
	TotalPaidPaise       int64   `gorm:"column:total_paid_paise" json:"total_paid_paise"`
	OutstandingPaise     int64   `gorm:"column:outstanding_paise" json:"outstanding_paise"`

	RepaymentMode        RepaymentMode `gorm:"size:10" json:"repayment_mode"`
	EMIStartDate         *time.Time    `gorm:"column:emi_start_date" json:"emi_start_date,omitempty"`
	EMITenureMonths      int           `gorm:"column:emi_tenure_months" json:"emi_tenure_months,omitempty"`
	OnetimeRepaymentDate *time.Time    `gorm:"column:onetime_repayment_date" json:"onetime_repayment_date,omitempty"`

	Status Status `gorm:"size:24;default:'PENDING'" json:"status"`

	// Funding order placed for the lender. The webhook fallback path
	// resolves the loan by this id when the local transaction row never
	// committed.
	GatewayOrderID string `gorm:"size:100;index:idx_loans_gateway_order" json:"-"`

	IsFundedByLender bool       `gorm:"column:is_funded_by_lender" json:"is_funded_by_lender"`
	FundedAt         *time.Time `json:"funded_at,omitempty"`

	// Write-once transition timestamps, null until the transition occurs.
	ApprovedAt            *time.Time `json:"approved_at,omitempty"`
	RejectedAt            *time.Time `json:"rejected_at,omitempty"`
	CancelledByBorrowerAt *time.Time `json:"cancelled_by_borrower_at,omitempty"`
	AcceptedAt            *time.Time `json:"accepted_at,omitempty"`
	ClosedAt              *time.Time `json:"closed_at,omitempty"`

	IsPrepaymentAllowed    bool `gorm:"default:true" json:"is_prepayment_allowed"`
	IsInterestRateModified bool `json:"is_interest_rate_modified"`

	LenderRemarks    string `gorm:"type:text" json:"lender_remarks,omitempty"`
	BorrowerComments string `gorm:"type:text" json:"borrower_comments,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// FullyApproved reports whether the lender offered the whole requested
// amount.
func (l *Loan) FullyApproved() bool { return l.PrincipalPaise == l.RequestedPaise }

type EMIStatus string

const (
	EMIPending EMIStatus = "PENDING"
	EMIPaid    EMIStatus = "PAID"
	EMIMissed  EMIStatus = "MISSED"
	EMILate    EMIStatus = "LATE"
)

// EMI is one scheduled installment, owned by a Loan and cascade-deleted
// with it. emi_number is a contiguous 1..N sequence equal to the tenure.
type EMI struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID uint64 `gorm:"column:loan_id;uniqueIndex:ux_emis_loan_number" json:"-"`

	Number  int       `gorm:"column:emi_number;uniqueIndex:ux_emis_loan_number" json:"emi_number"`
	DueDate time.Time `gorm:"column:due_date" json:"due_date"`

	AmountPaise    int64 `gorm:"column:amount_paise" json:"amount_paise"`
	PrincipalPaise int64 `gorm:"column:principal_paise" json:"principal_paise"`
	InterestPaise  int64 `gorm:"column:interest_paise" json:"interest_paise"`
	PenaltyPaise   int64 `gorm:"column:penalty_paise" json:"penalty_paise"`

	Status EMIStatus  `gorm:"size:10;default:'PENDING'" json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EMI) TableName() string { return "emis" }

// Unpaid reports whether the installment still needs money.
func (e *EMI) Unpaid() bool { return e.Status == EMIPending || e.Status == EMIMissed }
