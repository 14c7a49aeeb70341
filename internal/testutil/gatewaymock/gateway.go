package gatewaymock

import (
	"context"
	"fmt"
	"sync/atomic"

	"f2f-lending-backend/internal/domain/gateway"
)

var _ gateway.PaymentGateway = (*Gateway)(nil)

// Gateway is a function-backed mock that satisfies gateway.PaymentGateway.
// Unfilled methods succeed with generated ids, so happy-path tests need no
// setup.
type Gateway struct {
	CreateOrderFn func(ctx context.Context, amountPaise int64, payerUPI string, notes map[string]string) (string, error)
	PayoutFn      func(ctx context.Context, upiID string, amountPaise int64, reference string) (string, map[string]string, error)
	RefundFn      func(ctx context.Context, upiID string, amountPaise int64, reference string) (string, map[string]string, error)

	seq atomic.Int64
}

func (m *Gateway) CreateOrder(ctx context.Context, amountPaise int64, payerUPI string, notes map[string]string) (string, error) {
	if m.CreateOrderFn != nil {
		return m.CreateOrderFn(ctx, amountPaise, payerUPI, notes)
	}
	return fmt.Sprintf("order_mock%04d", m.seq.Add(1)), nil
}
func (m *Gateway) Payout(ctx context.Context, upiID string, amountPaise int64, reference string) (string, map[string]string, error) {
	if m.PayoutFn != nil {
		return m.PayoutFn(ctx, upiID, amountPaise, reference)
	}
	return fmt.Sprintf("pout_mock%04d", m.seq.Add(1)), nil, nil
}
func (m *Gateway) Refund(ctx context.Context, upiID string, amountPaise int64, reference string) (string, map[string]string, error) {
	if m.RefundFn != nil {
		return m.RefundFn(ctx, upiID, amountPaise, reference)
	}
	return fmt.Sprintf("rfnd_mock%04d", m.seq.Add(1)), nil, nil
}
