package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
	"github.com/studyon/coursehub/internal/pkg/metrics"
)

// --- Status classification ---

// statusRule maps a matching status code to a domain error. Rules are
// evaluated in order and the first match wins, so specific codes must be
// listed before the >= 400 fallback.
type statusRule struct {
	match func(status int) bool
	kind  error
}

func is(code int) func(int) bool      { return func(s int) bool { return s == code } }
func atLeast(code int) func(int) bool { return func(s int) bool { return s >= code } }

var (
	authRules = []statusRule{
		{is(http.StatusUnauthorized), domain.ErrInvalidCredentials},
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	registerRules = []statusRule{
		{is(http.StatusConflict), domain.ErrAccountAlreadyExists},
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	currentUserRules = []statusRule{
		{is(http.StatusUnauthorized), domain.ErrSessionExpired},
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	refreshRules = []statusRule{
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	listCoursesRules = []statusRule{
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	getCourseRules = []statusRule{
		{is(http.StatusNotFound), domain.ErrCourseNotFound},
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	payCourseRules = []statusRule{
		{is(http.StatusUnauthorized), domain.ErrSessionExpired},
		{is(http.StatusNotFound), domain.ErrCourseNotFound},
		{is(http.StatusNotAcceptable), domain.ErrInsufficientFunds},
		{is(http.StatusConflict), domain.ErrCourseAlreadyPaid},
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	transactionsRules = []statusRule{
		{is(http.StatusUnauthorized), domain.ErrSessionExpired},
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
	saveCourseRules = []statusRule{
		{is(http.StatusUnauthorized), domain.ErrSessionExpired},
		{is(http.StatusForbidden), domain.ErrForbidden},
		{is(http.StatusNotFound), domain.ErrCourseNotFound},
		{is(http.StatusConflict), domain.ErrCourseCodeConflict},
		{atLeast(http.StatusBadRequest), domain.ErrBillingUnavailable},
	}
)

// classify returns nil when no rule matches resp.Status.
func classify(resp *Response, rules []statusRule) error {
	for _, r := range rules {
		if r.match(resp.Status) {
			return &domain.BillingError{
				Kind:    r.kind,
				Status:  resp.Status,
				Message: errorMessage(resp.Body),
			}
		}
	}
	return nil
}

// errorMessage extracts a human readable message from an error body. The
// billing service answers {"message": "..."} or {"error": "..."}.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if s, ok := payload.Error.(string); ok {
		return s
	}
	return ""
}

// --- Client ---

// Client implements ports.BillingClient on top of a Transport and a Decoder.
type Client struct {
	transport Transport
	decoder   *Decoder
	log       zerolog.Logger
}

var _ ports.BillingClient = (*Client)(nil)

// NewClient wires a billing client. A nil decoder gets a default one.
func NewClient(transport Transport, decoder *Decoder, log zerolog.Logger) *Client {
	if decoder == nil {
		decoder = NewDecoder()
	}
	return &Client{transport: transport, decoder: decoder, log: log}
}

type successResponse struct {
	Success bool `json:"success"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func coursePath(code string) string {
	return "/courses/" + url.PathEscape(code)
}

// call executes req and classifies the status. The returned response is
// always a success (no rule matched).
func (c *Client) call(ctx context.Context, op string, req Request, rules []statusRule) (*Response, error) {
	start := time.Now()
	resp, err := c.transport.Execute(ctx, req)
	elapsed := time.Since(start)
	metrics.BillingRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err != nil {
		metrics.BillingRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.log.Warn().Err(err).
			Str("operation", op).
			Str("method", req.Method).
			Str("path", req.Path).
			Dur("duration", elapsed).
			Msg("billing request failed")
		return nil, fmt.Errorf("billing %s: %w", op, err)
	}

	metrics.BillingRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.Status)).Inc()
	c.log.Debug().
		Str("operation", op).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.Status).
		Dur("duration", elapsed).
		Msg("billing request")

	if err := classify(resp, rules); err != nil {
		return nil, fmt.Errorf("billing %s: %w", op, err)
	}
	return resp, nil
}

func (c *Client) decode(op string, resp *Response, target any) error {
	if err := c.decoder.Decode(resp.Body, target); err != nil {
		return fmt.Errorf("billing %s: %w", op, err)
	}
	return nil
}

// Authenticate exchanges credentials for a bearer/refresh token pair.
func (c *Client) Authenticate(ctx context.Context, creds domain.Credentials) (*domain.AuthTokens, error) {
	const op = "authenticate"
	resp, err := c.call(ctx, op, Request{Method: http.MethodPost, Path: "/auth", Body: creds}, authRules)
	if err != nil {
		return nil, err
	}
	var out domain.AuthTokens
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first bearer token.
func (c *Client) Register(ctx context.Context, creds domain.Credentials) (*domain.Registration, error) {
	const op = "register"
	resp, err := c.call(ctx, op, Request{Method: http.MethodPost, Path: "/register", Body: creds}, registerRules)
	if err != nil {
		return nil, err
	}
	var out domain.Registration
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser fetches the account behind token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*domain.BillingUser, error) {
	const op = "current_user"
	resp, err := c.call(ctx, op, Request{
		Method:  http.MethodGet,
		Path:    "/users/current",
		Headers: bearer(token),
	}, currentUserRules)
	if err != nil {
		return nil, err
	}
	var out domain.BillingUser
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken trades a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	const op = "refresh_token"
	resp, err := c.call(ctx, op, Request{
		Method: http.MethodPost,
		Path:   "/token/refresh",
		Body:   refreshRequest{RefreshToken: refreshToken},
	}, refreshRules)
	if err != nil {
		return nil, err
	}
	var out domain.AuthTokens
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCourses returns every billing course descriptor.
func (c *Client) ListCourses(ctx context.Context) ([]domain.BillingCourse, error) {
	const op = "list_courses"
	resp, err := c.call(ctx, op, Request{Method: http.MethodGet, Path: "/courses"}, listCoursesRules)
	if err != nil {
		return nil, err
	}
	var out []domain.BillingCourse
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCourse returns the descriptor for code.
func (c *Client) GetCourse(ctx context.Context, code string) (*domain.BillingCourse, error) {
	const op = "get_course"
	resp, err := c.call(ctx, op, Request{Method: http.MethodGet, Path: coursePath(code)}, getCourseRules)
	if err != nil {
		return nil, err
	}
	var out domain.BillingCourse
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveCourse creates a course, or updates previousCode when it is set.
func (c *Client) SaveCourse(ctx context.Context, token string, draft domain.CourseDraft, previousCode string) (bool, error) {
	const op = "save_course"
	path := "/courses"
	if previousCode != "" {
		path = coursePath(previousCode)
	}
	resp, err := c.call(ctx, op, Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    draft,
		Headers: bearer(token),
	}, saveCourseRules)
	if err != nil {
		return false, err
	}
	var out successResponse
	if err := c.decode(op, resp, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

// PayCourse charges the principal behind token for code.
func (c *Client) PayCourse(ctx context.Context, token, code string) (bool, error) {
	const op = "pay_course"
	resp, err := c.call(ctx, op, Request{
		Method:  http.MethodPost,
		Path:    coursePath(code) + "/pay",
		Headers: bearer(token),
	}, payCourseRules)
	if err != nil {
		return false, err
	}
	var out successResponse
	if err := c.decode(op, resp, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

// ListTransactions returns the principal's transactions matching filter.
func (c *Client) ListTransactions(ctx context.Context, token string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	const op = "list_transactions"
	resp, err := c.call(ctx, op, Request{
		Method:  http.MethodGet,
		Path:    "/transactions",
		Query:   transactionQuery(filter),
		Headers: bearer(token),
	}, transactionsRules)
	if err != nil {
		return nil, err
	}
	var out []domain.Transaction
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func transactionQuery(f domain.TransactionFilter) []QueryParam {
	var q []QueryParam
	if f.Type != "" {
		q = append(q, QueryParam{Key: "filter[type]", Value: string(f.Type)})
	}
	if strings.TrimSpace(f.CourseCode) != "" {
		q = append(q, QueryParam{Key: "filter[course_code]", Value: f.CourseCode})
	}
	if f.SkipExpired {
		q = append(q, QueryParam{Key: "filter[skip_expired]", Value: "1"})
	}
	return q
}
