package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const serviceName = "f2f-lending-backend"

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

// Health is the liveness probe. The service name is included so shared
// dashboards can tell whose reply they are looking at.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": serviceName,
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339Nano),
	})
}
