package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"f2f-lending-backend/internal/domain/gateway"
	loanDomain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/usecase/webhook"
)

type WebhookHandler struct {
	uc       *webhook.Usecase
	verifier gateway.WebhookVerifier
}

func NewWebhookHandler(uc *webhook.Usecase, v gateway.WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{uc: uc, verifier: v}
}

// razorpayEvent is the subset of the webhook payload the reconciler needs.
type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (h *WebhookHandler) Razorpay(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
	}

	sig := c.Request().Header.Get("X-Razorpay-Signature")
	if !h.verifier.VerifyWebhookSignature(body, sig) {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
	}

	var ev razorpayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed payload"})
	}

	err = h.uc.Ingest(c.Request().Context(), gateway.Event{
		Event:     ev.Event,
		OrderID:   ev.Payload.Payment.Entity.OrderID,
		PaymentID: ev.Payload.Payment.Entity.ID,
		Metadata:  ev.Payload.Payment.Entity.Notes,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, loanDomain.ErrMalformedEvent):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loanDomain.ErrUnknownOrder):
		// Ack so the gateway stops redelivering; keep the trace for support.
		log.Printf("webhook: %v", err)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	default:
		// Transient failure: a 5xx makes the gateway redeliver, and the
		// reconciler is idempotent.
		log.Printf("webhook: ingest: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
