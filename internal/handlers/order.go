package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/dkotelnikov/storefront/internal/middleware/auth"
	"github.com/dkotelnikov/storefront/internal/service"
)

type OrderHandler struct {
	Svc *service.OrderService
}

// ListOrders is scoped to the caller; there is no way to read someone
// else's orders through this endpoint.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	orders, err := h.Svc.ListByUser(c.Request().Context(), user.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}
