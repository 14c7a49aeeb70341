package transaction

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Type string

const (
	TypeLoanPayment      Type = "LOAN_PAYMENT"      // lender → platform
	TypePayout           Type = "PAYOUT"            // platform → borrower (or lender, for repayments)
	TypeRefund           Type = "REFUND"            // platform → lender
	TypeEMI              Type = "EMI"               // borrower → platform
	TypeRequestedPayment Type = "REQUESTED_PAYMENT" // peer ask settlement
)

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the status may no longer change. Transaction
// statuses are monotonic: INITIATED/PENDING may only move to COMPLETED or
// FAILED, never back.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Metadata is the opaque gateway payload stored alongside a transaction.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("metadata: unsupported scan type %T", src)
}

var ErrNotFound = errors.New("transaction not found")

// Transaction is an append-mostly audit record of one money-movement
// attempt. The loan link is weak: the row survives loan or user deletion.
type Transaction struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	TransactionID string `gorm:"size:32;uniqueIndex:ux_txns_txn_id" json:"transaction_id"`

	LoanID     *uint64 `gorm:"column:loan_id;index" json:"-"`
	SenderID   *string `gorm:"size:32;index" json:"sender_id,omitempty"`
	ReceiverID *string `gorm:"size:32;index" json:"receiver_id,omitempty"`

	AmountPaise int64  `gorm:"column:amount_paise" json:"amount_paise"`
	Type        Type   `gorm:"size:30;column:transaction_type" json:"transaction_type"`
	Status      Status `gorm:"size:20;default:'INITIATED'" json:"status"`

	// At most one COMPLETED transaction may exist per gateway order; the
	// unique index backs the webhook idempotency gate. Pointer so payout
	// and refund rows (which have no inbound order) stay out of the index.
	GatewayOrderID   *string `gorm:"size:100;uniqueIndex:ux_txns_gateway_order" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string  `gorm:"size:100" json:"gateway_payment_id,omitempty"`
	ReferenceID      string  `gorm:"size:100" json:"reference_id,omitempty"`

	Metadata Metadata `gorm:"type:json" json:"metadata,omitempty"`

	InitiatedAt *time.Time `json:"initiated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }
