package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/studyon/coursehub/internal/core/domain"
)

// RequireRole lets the request through when the session principal holds at
// least one of roles. Anonymous requests fail with domain.ErrUnauthenticated
// and principals lacking every role with domain.ErrForbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := Principal(c)
			if p == nil {
				return domain.ErrUnauthenticated
			}
			for _, r := range roles {
				if p.HasRole(r) {
					return next(c)
				}
			}
			return domain.ErrForbidden
		}
	}
}
