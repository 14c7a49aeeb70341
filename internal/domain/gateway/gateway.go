package gateway

import (
	"context"
	"fmt"
)

// Error is any failure surfaced by the external payment system. Timeouts
// are Errors too: they mean "unknown outcome", never assumed success.
// Retrying is always an explicit caller action.
type Error struct {
	Op     string // "create_order", "payout", "refund"
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("gateway %s failed: %s", e.Op, e.Reason) }

// Event is one parsed webhook delivery. Deliveries are at-least-once and
// may be replayed or arrive out of order.
type Event struct {
	Event     string // "payment.captured" | "payment.failed"
	OrderID   string
	PaymentID string
	Metadata  map[string]string
}

const (
	EventCaptured = "payment.captured"
	EventFailed   = "payment.failed"
)

// PaymentGateway creates collection orders and moves money out of the
// platform account. Amounts are paise.
type PaymentGateway interface {
	// CreateOrder opens a collection order the payer completes out of band.
	CreateOrder(ctx context.Context, amountPaise int64, payerUPI string, notes map[string]string) (orderID string, err error)
	// Payout pushes money from the platform account to a UPI destination.
	Payout(ctx context.Context, upiID string, amountPaise int64, reference string) (payoutID string, meta map[string]string, err error)
	// Refund returns escrowed money to its origin.
	Refund(ctx context.Context, upiID string, amountPaise int64, reference string) (refundID string, meta map[string]string, err error)
}

// WebhookVerifier authenticates a raw webhook delivery before the
// reconciler sees it.
type WebhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}
