package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/dkotelnikov/storefront/internal/middleware/auth"
	"github.com/dkotelnikov/storefront/internal/service"
)

type CheckoutHandler struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	res, err := h.Svc.Checkout(c.Request().Context(), user.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
