package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/auth"
	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/repo"
)

const userContextKey = "user"

// Gate authenticates requests: token out of the cookie or bearer header,
// signature+expiry check, then resolution to a live user row.
type Gate struct {
	Users     *repo.UserRepo
	JWTSecret []byte
}

func (g *Gate) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := g.authenticate(c)
		if err != nil {
			return err
		}
		setUserContext(c, user)
		return next(c)
	}
}

func (g *Gate) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := g.authenticate(c)
		if err != nil {
			return err
		}
		if user.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}
		setUserContext(c, user)
		return next(c)
	}
}

func (g *Gate) authenticate(c echo.Context) (*models.User, error) {
	raw := extractToken(c)
	if raw == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	claims, err := auth.ParseSessionToken(raw, g.JWTSecret)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	user, err := g.Users.ByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		}
		return nil, err
	}

	return user, nil
}
