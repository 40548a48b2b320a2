package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dkotelnikov/storefront/internal/service"
)

type WebhookHandler struct {
	Svc *service.WebhookService
}

// HandlePayment reads the raw body because signature verification needs the
// exact bytes the processor signed. No cookie auth here; the signature is
// the trust boundary.
func (h *WebhookHandler) HandlePayment(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}
	sigHeader := c.Request().Header.Get("Stripe-Signature")

	if err := h.Svc.HandleEvent(c.Request().Context(), payload, sigHeader); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
