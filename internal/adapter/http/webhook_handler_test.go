package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"f2f-lending-backend/internal/adapter/gateway/razorpay"
	domain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/domain/transaction"
	"f2f-lending-backend/internal/domain/uow"
	"f2f-lending-backend/internal/testutil/activitymock"
	"f2f-lending-backend/internal/testutil/gatewaymock"
	"f2f-lending-backend/internal/testutil/loanmock"
	"f2f-lending-backend/internal/testutil/txmock"
	"f2f-lending-backend/internal/testutil/uowmock"
	"f2f-lending-backend/internal/testutil/usermock"
	"f2f-lending-backend/internal/usecase/webhook"
)

const testWebhookSecret = "whsecret"

type noopNotifier struct{}

func (noopNotifier) StatusUpdate(ctx context.Context, l *domain.Loan, status domain.Status) {}

type noopDriver struct{}

func (noopDriver) DrivePayout(ctx context.Context, loanID string) error { return nil }

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookFixture(t *testing.T, repos uow.Repos) *WebhookHandler {
	t.Helper()
	if repos.Loans == nil {
		repos.Loans = &loanmock.Repo{
			GetByOrderIDFn: func(ctx context.Context, orderID string) (*domain.Loan, error) {
				return nil, gorm.ErrRecordNotFound
			},
		}
	}
	if repos.Transactions == nil {
		repos.Transactions = &txmock.Repo{}
	}
	if repos.EMIs == nil {
		repos.EMIs = &loanmock.EMIRepo{}
	}
	uc := webhook.NewUsecase(uowmock.Passthrough(repos), &gatewaymock.Gateway{},
		&usermock.Directory{}, &activitymock.Recorder{}, noopNotifier{}, noopDriver{})
	verifier := razorpay.NewClient("key", "secret", testWebhookSecret, "")
	return NewWebhookHandler(uc, verifier)
}

func postWebhook(e *echo.Echo, body []byte, sig string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(stdhttp.MethodPost, "/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sig != "" {
		req.Header.Set("X-Razorpay-Signature", sig)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func capturedPayload(orderID, paymentID string) []byte {
	b, _ := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       paymentID,
					"order_id": orderID,
				},
			},
		},
	})
	return b
}

func TestRazorpay_RejectsBadSignature(t *testing.T) {
	e := echo.New()
	h := newWebhookFixture(t, uow.Repos{})

	body := capturedPayload("order_x", "pay_x")
	c, rec := postWebhook(e, body, "deadbeef")
	if err := h.Razorpay(c); err != nil {
		t.Fatalf("Razorpay error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRazorpay_MalformedJSON(t *testing.T) {
	e := echo.New()
	h := newWebhookFixture(t, uow.Repos{})

	body := []byte(`{"event":`)
	c, rec := postWebhook(e, body, sign(body))
	if err := h.Razorpay(c); err != nil {
		t.Fatalf("Razorpay error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRazorpay_MissingOrderIsMalformed(t *testing.T) {
	e := echo.New()
	h := newWebhookFixture(t, uow.Repos{})

	body := capturedPayload("", "pay_x")
	c, rec := postWebhook(e, body, sign(body))
	if err := h.Razorpay(c); err != nil {
		t.Fatalf("Razorpay error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRazorpay_UnknownOrderIsAcked(t *testing.T) {
	e := echo.New()
	h := newWebhookFixture(t, uow.Repos{})

	body := capturedPayload("order_nobody_issued", "pay_x")
	c, rec := postWebhook(e, body, sign(body))
	if err := h.Razorpay(c); err != nil {
		t.Fatalf("Razorpay error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200 ack", rec.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["status"] != "ignored" {
		t.Fatalf("status field = %q, want ignored", out["status"])
	}
}

func TestRazorpay_FundingCaptured(t *testing.T) {
	e := echo.New()

	l := pendingLoan()
	l.Status = domain.StatusPartialApproved
	l.PrincipalPaise = 600_000
	l.OutstandingPaise = 600_000
	l.GatewayOrderID = "order_fund1"

	now := time.Now().UTC()
	orderID := l.GatewayOrderID
	txn := &transaction.Transaction{
		TransactionID:  "cccccccccccccccccccccccccccccccc",
		LoanID:         &l.ID,
		SenderID:       &l.LenderID,
		AmountPaise:    600_000,
		Type:           transaction.TypeLoanPayment,
		Status:         transaction.StatusInitiated,
		GatewayOrderID: &orderID,
		ReferenceID:    "funding-test",
		InitiatedAt:    &now,
	}

	var savedLoan *domain.Loan
	var savedTxn *transaction.Transaction
	repos := uow.Repos{
		Loans: &loanmock.Repo{
			GetByIDFn: func(ctx context.Context, id uint64) (*domain.Loan, error) { cp := *l; return &cp, nil },
			GetByLoanIDForUpdateFn: func(ctx context.Context, loanID string) (*domain.Loan, error) {
				cp := *l
				return &cp, nil
			},
			SaveFn: func(ctx context.Context, got *domain.Loan) error {
				cp := *got
				savedLoan = &cp
				return nil
			},
		},
		Transactions: &txmock.Repo{
			GetByOrderIDFn: func(ctx context.Context, id string) (*transaction.Transaction, error) {
				if id != orderID {
					return nil, transaction.ErrNotFound
				}
				cp := *txn
				return &cp, nil
			},
			SaveFn: func(ctx context.Context, got *transaction.Transaction) error {
				cp := *got
				savedTxn = &cp
				return nil
			},
		},
	}
	h := newWebhookFixture(t, repos)

	body := capturedPayload(orderID, "pay_fund1")
	c, rec := postWebhook(e, body, sign(body))
	if err := h.Razorpay(c); err != nil {
		t.Fatalf("Razorpay error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if savedLoan == nil || !savedLoan.IsFundedByLender {
		t.Fatalf("loan not marked funded: %+v", savedLoan)
	}
	if savedTxn == nil || savedTxn.Status != transaction.StatusCompleted || savedTxn.GatewayPaymentID != "pay_fund1" {
		t.Fatalf("funding transaction not completed: %+v", savedTxn)
	}
}
