package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const csrfContextKey = "csrf"

// CSRF protects unsafe methods of session-authenticated requests. The token
// is accepted from the X-CSRF-Token header or the _token form field. It must
// run after the session middleware: requests that did not resolve to a
// principal, stale session cookies included, have no ambient authority and
// skip the check.
func CSRF(secure bool) echo.MiddlewareFunc {
	return echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token,form:_token",
		ContextKey:     csrfContextKey,
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			return Principal(c) == nil
		},
	})
}

// CSRFToken returns the token issued for this request, if any.
func CSRFToken(c echo.Context) string {
	token, _ := c.Get(csrfContextKey).(string)
	return token
}
