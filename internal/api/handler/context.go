package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyon/coursehub/internal/api/middleware"
	"github.com/studyon/coursehub/internal/core/domain"
)

// currentPrincipal returns the session principal, failing fast for anonymous
// requests that slipped past the role guard.
func currentPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.Principal(c)
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return nil
}
