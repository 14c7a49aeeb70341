package paymentrequest

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

var ErrNotFoundOrProcessed = errors.New("payment request not found or already processed")

// PaymentRequest is a plain peer-to-peer ask. It is tracked independently
// of the loan escrow flow.
type PaymentRequest struct {
	ID        uint64 `gorm:"primaryKey;column:id" json:"-"`
	RequestID string `gorm:"size:32;uniqueIndex:ux_payment_requests_request_id" json:"request_id"`

	SenderID   string `gorm:"size:32;index" json:"sender_id"`
	ReceiverID string `gorm:"size:32;index" json:"receiver_id"`

	AmountPaise int64  `gorm:"column:amount_paise" json:"amount_paise"`
	Purpose     string `gorm:"size:255" json:"purpose,omitempty"`
	Status      Status `gorm:"size:10;default:'pending'" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentRequest) TableName() string { return "payment_requests" }

type Repository interface {
	Create(ctx context.Context, pr *PaymentRequest) error
	Save(ctx context.Context, pr *PaymentRequest) error
	GetByRequestID(ctx context.Context, requestID string) (*PaymentRequest, error)
	// GetByRequestIDForUpdate locks the row within the enclosing transaction.
	GetByRequestIDForUpdate(ctx context.Context, requestID string) (*PaymentRequest, error)
	ListByUser(ctx context.Context, userID string) ([]PaymentRequest, error)
}
