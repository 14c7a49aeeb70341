package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"f2f-lending-backend/internal/domain/gateway"
	loanDomain "f2f-lending-backend/internal/domain/loan"
	prDomain "f2f-lending-backend/internal/domain/paymentrequest"
	"f2f-lending-backend/internal/domain/user"
)

// writeErr maps domain errors onto HTTP statuses. Unknown errors are 500
// and logged; invariant violations are logged loudly because they mean the
// books do not balance.
func writeErr(c echo.Context, err error) error {
	var gwErr *gateway.Error

	switch {
	case errors.Is(err, loanDomain.ErrValidation),
		errors.Is(err, loanDomain.ErrInvalidRequest),
		errors.Is(err, loanDomain.ErrPrepaymentNotAllowed),
		errors.Is(err, user.ErrNoPayoutAccount):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, loanDomain.ErrNotFoundOrProcessed),
		errors.Is(err, prDomain.ErrNotFoundOrProcessed),
		errors.Is(err, user.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.As(err, &gwErr):
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: gwErr.Error()})

	case errors.Is(err, loanDomain.ErrInvariantViolation):
		log.Printf("INVARIANT VIOLATION: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})

	default:
		log.Printf("unhandled error: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
