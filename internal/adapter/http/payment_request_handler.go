package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"f2f-lending-backend/internal/usecase/paymentrequest"
)

type PaymentRequestHandler struct{ uc *paymentrequest.Usecase }

func NewPaymentRequestHandler(uc *paymentrequest.Usecase) *PaymentRequestHandler {
	return &PaymentRequestHandler{uc: uc}
}

type createPaymentRequestReq struct {
	ReceiverID  string `json:"receiver_id" validate:"required,hex32"`
	AmountPaise int64  `json:"amount_paise" validate:"required,gt=0"`
	Purpose     string `json:"purpose,omitempty"`
}

func (h *PaymentRequestHandler) Create(c echo.Context) error {
	sender, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	var req createPaymentRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	pr, err := h.uc.Create(c.Request().Context(), paymentrequest.CreateInput{
		SenderID:    sender,
		ReceiverID:  req.ReceiverID,
		AmountPaise: req.AmountPaise,
		Purpose:     req.Purpose,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, pr)
}

func (h *PaymentRequestHandler) List(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	out, err := h.uc.List(c.Request().Context(), actor)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type respondPaymentRequestReq struct {
	Response string `json:"response" validate:"required,oneof=accept reject"`
}

func (h *PaymentRequestHandler) Respond(c echo.Context) error {
	receiver, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	var req respondPaymentRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	pr, err := h.uc.Respond(c.Request().Context(), paymentrequest.RespondInput{
		RequestID:  c.Param("request_id"),
		ReceiverID: receiver,
		Accept:     req.Response == "accept",
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, pr)
}
