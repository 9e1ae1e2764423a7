package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/studyon/coursehub/internal/core/domain"
)

const unavailableMessage = "service temporarily unavailable, try later"

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status codes.
//   - Hides billing outages behind a generic 503 message.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, errorResponse{Error: domain.ErrValidation.Error(), Fields: ve.Fields}
	}

	if domain.IsBillingFailure(err) {
		log.Warn().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("billing unavailable")
		return http.StatusServiceUnavailable, errorResponse{Error: unavailableMessage}
	}

	if code, ok := statusOf(err); ok {
		return code, errorResponse{Error: messageOf(err)}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

var statusTable = []struct {
	err  error
	code int
}{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrSessionExpired, http.StatusUnauthorized},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrCourseNotFound, http.StatusNotFound},
	{domain.ErrLessonNotFound, http.StatusNotFound},
	{domain.ErrAccountAlreadyExists, http.StatusConflict},
	{domain.ErrCourseCodeConflict, http.StatusConflict},
	{domain.ErrCourseAlreadyPaid, http.StatusConflict},
	{domain.ErrInsufficientFunds, http.StatusNotAcceptable},
}

func statusOf(err error) (int, bool) {
	for _, s := range statusTable {
		if errors.Is(err, s.err) {
			return s.code, true
		}
	}
	return 0, false
}

// messageOf prefers the message billing sent with a classified error.
func messageOf(err error) string {
	var be *domain.BillingError
	if errors.As(err, &be) {
		if be.Message != "" {
			return be.Message
		}
		return be.Kind.Error()
	}
	for _, s := range statusTable {
		if errors.Is(err, s.err) {
			return s.err.Error()
		}
	}
	return err.Error()
}
