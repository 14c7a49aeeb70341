package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	loanDomain "f2f-lending-backend/internal/domain/loan"
	"f2f-lending-backend/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

// actorID is set by the idempotency middleware contract for mutating
// routes; reads pass it explicitly too.
func actorID(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get("X-Actor-Id"))
}

func requireActor(c echo.Context) (string, bool) {
	id := actorID(c)
	if !reHex32.MatchString(id) {
		return "", false
	}
	return id, true
}

type createLoanReq struct {
	LenderID string `json:"lender_id" validate:"required,hex32"`

	AmountPaise  int64   `json:"amount_paise" validate:"required,gt=0"`
	InterestRate float64 `json:"interest_rate" validate:"gte=0,lte=100,dec2"`

	RepaymentMode        string     `json:"repayment_mode" validate:"required,oneof=EMI ONETIME"`
	EMIStartDate         *time.Time `json:"emi_start_date,omitempty"`
	EMITenureMonths      int        `json:"emi_tenure_months,omitempty"`
	OnetimeRepaymentDate *time.Time `json:"onetime_repayment_date,omitempty"`

	Comments string `json:"comments,omitempty"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	borrower, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	dto, err := h.uc.CreateRequest(c.Request().Context(), loan.CreateRequestInput{
		BorrowerID:           borrower,
		LenderID:             req.LenderID,
		AmountPaise:          req.AmountPaise,
		F2FInterestRate:      req.InterestRate,
		RepaymentMode:        loanDomain.RepaymentMode(req.RepaymentMode),
		EMIStartDate:         req.EMIStartDate,
		EMITenureMonths:      req.EMITenureMonths,
		OnetimeRepaymentDate: req.OnetimeRepaymentDate,
		Comments:             req.Comments,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"), actor)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type offerReq struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`

	PrincipalPaise int64   `json:"principal_paise,omitempty" validate:"gte=0"`
	InterestRate   float64 `json:"interest_rate,omitempty" validate:"gte=0,lte=100,dec2"`
	Remarks        string  `json:"remarks,omitempty"`
}

// Offer is the lender's decision on a pending request.
func (h *LoanHandler) Offer(c echo.Context) error {
	lender, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	var req offerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	in := loan.LenderDecision{LoanID: c.Param("loan_id"), LenderID: lender}
	if req.Action == "approve" {
		in.Approve = &loan.ApproveTerms{
			PrincipalPaise: req.PrincipalPaise,
			InterestRate:   req.InterestRate,
			Remarks:        req.Remarks,
		}
	} else {
		in.Reject = &loan.RejectTerms{Remarks: req.Remarks}
	}

	res, err := h.uc.LenderDecide(c.Request().Context(), in)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type decisionReq struct {
	Decision string `json:"decision" validate:"required,oneof=accept cancel"`
}

// Decision is the borrower's accept/cancel on a partial offer.
func (h *LoanHandler) Decision(c echo.Context) error {
	borrower, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	res, err := h.uc.BorrowerDecide(c.Request().Context(), loan.BorrowerDecision{
		LoanID:     c.Param("loan_id"),
		BorrowerID: borrower,
		Decision:   req.Decision,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type repaymentReq struct {
	Prepay bool `json:"prepay,omitempty"`
}

func (h *LoanHandler) CreateRepayment(c echo.Context) error {
	borrower, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	var req repaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	order, err := h.uc.CreateRepaymentOrder(c.Request().Context(), loan.RepaymentOrderInput{
		LoanID:     c.Param("loan_id"),
		BorrowerID: borrower,
		Prepay:     req.Prepay,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *LoanHandler) RetryPayout(c echo.Context) error {
	borrower, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	if err := h.uc.RetryPayout(c.Request().Context(), c.Param("loan_id"), borrower); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *LoanHandler) LenderSummary(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	out, err := h.uc.LenderSummary(c.Request().Context(), actor)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) BorrowerSummary(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid X-Actor-Id"})
	}
	out, err := h.uc.BorrowerSummary(c.Request().Context(), actor)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
