package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dkotelnikov/storefront/internal/models"
)

// extractToken prefers the session cookie and falls back to a bearer header.
func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func setUserContext(c echo.Context, user *models.User) {
	c.Set(userContextKey, user)
	c.Set("userID", user.ID)
	c.Set("role", user.Role)
}

// CurrentUser returns the user resolved by the gate for this request.
func CurrentUser(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(userContextKey).(*models.User)
	return user, ok
}
