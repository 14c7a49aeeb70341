package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"f2f-lending-backend/internal/domain/gateway"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Client talks to the Razorpay REST API. Amounts are paise end to end;
// Razorpay is paise-denominated, so no conversion happens here.
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	accountNumber string

	httpc *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different API host (tests).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpc = h } }

func NewClient(keyID, keySecret, webhookSecret, accountNumber string, opts ...Option) *Client {
	c := &Client{
		baseURL:       defaultBaseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		accountNumber: accountNumber,
		httpc:         &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, payerUPI string, notes map[string]string) (string, error) {
	body := map[string]any{
		"amount":   amountPaise,
		"currency": "INR",
		"notes":    notes,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/orders", body, &out); err != nil {
		return "", &gateway.Error{Op: "create_order", Reason: err.Error()}
	}
	return out.ID, nil
}

func (c *Client) Payout(ctx context.Context, upiID string, amountPaise int64, reference string) (string, map[string]string, error) {
	body := map[string]any{
		"account_number": c.accountNumber,
		"amount":         amountPaise,
		"currency":       "INR",
		"mode":           "UPI",
		"purpose":        "payout",
		"fund_account": map[string]any{
			"account_type": "vpa",
			"vpa":          map[string]string{"address": upiID},
		},
		"queue_if_low_balance": true,
		"reference_id":         reference,
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		UTR    string `json:"utr"`
	}
	if err := c.post(ctx, "/payouts", body, &out); err != nil {
		return "", nil, &gateway.Error{Op: "payout", Reason: err.Error()}
	}
	return out.ID, map[string]string{"status": out.Status, "utr": out.UTR}, nil
}

func (c *Client) Refund(ctx context.Context, upiID string, amountPaise int64, reference string) (string, map[string]string, error) {
	// Refunds ride the payout rail back to the payer's VPA.
	id, meta, err := c.Payout(ctx, upiID, amountPaise, reference)
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return "", nil, &gateway.Error{Op: "refund", Reason: gwErr.Reason}
		}
		return "", nil, &gateway.Error{Op: "refund", Reason: err.Error()}
	}
	return id, meta, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 hex signature Razorpay
// attaches to every delivery.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d: %s", path, res.StatusCode, apiErrorReason(raw))
	}
	return json.Unmarshal(raw, out)
}

func apiErrorReason(raw []byte) string {
	var e struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error.Description != "" {
		return e.Error.Description
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}
