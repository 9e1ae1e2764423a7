package billing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/infrastructure/billing"
	"github.com/studyon/coursehub/internal/infrastructure/billing/billingtest"
)

func newClient(t *testing.T) (*billing.Client, *billingtest.Server) {
	t.Helper()
	srv := billingtest.NewServer()
	t.Cleanup(srv.Close)
	transport := billing.NewHTTPTransport(srv.URL, 2*time.Second)
	return billing.NewClient(transport, billing.NewDecoder(), zerolog.Nop()), srv
}

func login(t *testing.T, c *billing.Client, email string) string {
	t.Helper()
	tokens, err := c.Authenticate(context.Background(), domain.Credentials{Username: email, Password: billingtest.Password})
	require.NoError(t, err)
	return tokens.Token
}

// stubTransport answers every request with a fixed status and body.
type stubTransport struct {
	status int
	body   string
	err    error
	last   billing.Request
}

func (s *stubTransport) Execute(_ context.Context, req billing.Request) (*billing.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &billing.Response{Status: s.status, Body: []byte(s.body)}, nil
}

func stubClient(status int, body string) (*billing.Client, *stubTransport) {
	st := &stubTransport{status: status, body: body}
	return billing.NewClient(st, nil, zerolog.Nop()), st
}

// --- Authenticate ---

func TestAuthenticate_Success(t *testing.T) {
	c, _ := newClient(t)

	tokens, err := c.Authenticate(context.Background(), domain.Credentials{
		Username: billingtest.AdminEmail,
		Password: billingtest.Password,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := domain.DecodeClaims(tokens.Token)
	require.NoError(t, err)
	assert.Equal(t, billingtest.AdminEmail, claims.Subject)
	assert.Contains(t, claims.Roles, domain.RoleSuperAdmin)
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.Authenticate(context.Background(), domain.Credentials{
		Username: billingtest.UserEmail,
		Password: "wrong-password",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials), "got %v", err)

	var be *domain.BillingError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Equal(t, "Invalid credentials.", be.Message)
}

func TestAuthenticate_ServerError(t *testing.T) {
	c, _ := stubClient(http.StatusInternalServerError, `{"error":"boom"}`)

	_, err := c.Authenticate(context.Background(), domain.Credentials{Username: "a@b.io", Password: "secret1"})
	assert.True(t, errors.Is(err, domain.ErrBillingUnavailable), "got %v", err)
	assert.True(t, domain.IsBillingFailure(err))
}

func TestAuthenticate_MissingToken(t *testing.T) {
	c, _ := stubClient(http.StatusOK, `{"refresh_token":"r"}`)

	_, err := c.Authenticate(context.Background(), domain.Credentials{Username: "a@b.io", Password: "secret1"})
	assert.True(t, errors.Is(err, domain.ErrMalformedResponse), "got %v", err)
}

func TestAuthenticate_NotJSON(t *testing.T) {
	c, _ := stubClient(http.StatusOK, `<html>oops</html>`)

	_, err := c.Authenticate(context.Background(), domain.Credentials{Username: "a@b.io", Password: "secret1"})
	assert.True(t, errors.Is(err, domain.ErrMalformedResponse), "got %v", err)
}

func TestTransportUnavailable(t *testing.T) {
	srv := billingtest.NewServer()
	url := srv.URL
	srv.Close()

	c := billing.NewClient(billing.NewHTTPTransport(url, time.Second), nil, zerolog.Nop())
	_, err := c.ListCourses(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransportUnavailable), "got %v", err)
	assert.True(t, domain.IsBillingFailure(err))
}

// --- Register ---

func TestRegister(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()
	creds := domain.Credentials{Username: "new@example.com", Password: "secret1"}

	reg, err := c.Register(ctx, creds)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, []string{domain.RoleUser}, reg.Roles)

	_, err = c.Register(ctx, creds)
	assert.True(t, errors.Is(err, domain.ErrAccountAlreadyExists), "got %v", err)
}

// --- CurrentUser / RefreshToken ---

func TestCurrentUser(t *testing.T) {
	c, _ := newClient(t)
	token := login(t, c, billingtest.UserEmail)

	user, err := c.CurrentUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, billingtest.UserEmail, user.Username)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestCurrentUser_ExpiredToken(t *testing.T) {
	c, _ := newClient(t)
	expired := billingtest.IssueToken(billingtest.UserEmail, []string{domain.RoleUser}, time.Now().Add(-time.Minute))

	_, err := c.CurrentUser(context.Background(), expired)
	assert.True(t, errors.Is(err, domain.ErrSessionExpired), "got %v", err)
}

func TestRefreshToken(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	tokens, err := c.RefreshToken(ctx, "refresh:"+billingtest.UserEmail)
	require.NoError(t, err)
	claims, err := domain.DecodeClaims(tokens.Token)
	require.NoError(t, err)
	assert.Equal(t, billingtest.UserEmail, claims.Subject)

	_, err = c.RefreshToken(ctx, "garbage")
	assert.True(t, errors.Is(err, domain.ErrBillingUnavailable), "got %v", err)
}

// --- Courses ---

func TestListCourses(t *testing.T) {
	c, _ := newClient(t)

	courses, err := c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, "nympydata", courses[0].Code)
	assert.Equal(t, domain.CourseFree, courses[0].Type)
	assert.Equal(t, domain.CourseRent, courses[1].Type)
	assert.True(t, courses[2].Price.Equal(decimal.NewFromInt(20)))
}

func TestListCourses_InvalidItem(t *testing.T) {
	c, _ := stubClient(http.StatusOK, `[{"code":"a","type":"free"},{"type":"buy","price":5}]`)

	_, err := c.ListCourses(context.Background())
	assert.True(t, errors.Is(err, domain.ErrMalformedResponse), "got %v", err)
}

func TestGetCourse(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	course, err := c.GetCourse(ctx, "figmadesign")
	require.NoError(t, err)
	assert.Equal(t, domain.CourseRent, course.Type)
	assert.True(t, course.Price.Equal(decimal.NewFromInt(10)))

	_, err = c.GetCourse(ctx, "nonexistent-code")
	assert.True(t, errors.Is(err, domain.ErrCourseNotFound), "got %v", err)
}

func TestGetCourse_EscapesCode(t *testing.T) {
	c, st := stubClient(http.StatusOK, `{"code":"a b","type":"free"}`)

	_, err := c.GetCourse(context.Background(), "a b/c")
	require.NoError(t, err)
	assert.Equal(t, "/courses/a%20b%2Fc", st.last.Path)
}

func TestSaveCourse(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	admin := login(t, c, billingtest.AdminEmail)
	user := login(t, c, billingtest.UserEmail)

	draft := domain.CourseDraft{Code: "golang", Type: domain.CourseBuy, Price: decimal.NewFromInt(30), Name: "Go"}

	_, err := c.SaveCourse(ctx, user, draft, "")
	assert.True(t, errors.Is(err, domain.ErrForbidden), "got %v", err)

	ok, err := c.SaveCourse(ctx, admin, draft, "")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.SaveCourse(ctx, admin, draft, "")
	assert.True(t, errors.Is(err, domain.ErrCourseCodeConflict), "got %v", err)

	draft.Code = "golang-advanced"
	ok, err = c.SaveCourse(ctx, admin, draft, "golang")
	require.NoError(t, err)
	assert.True(t, ok)
	_, found := srv.Course("golang")
	assert.False(t, found)
	_, found = srv.Course("golang-advanced")
	assert.True(t, found)

	_, err = c.SaveCourse(ctx, admin, draft, "missing")
	assert.True(t, errors.Is(err, domain.ErrCourseNotFound), "got %v", err)
}

// --- Payments ---

func TestPayCourse_Outcomes(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	token := login(t, c, billingtest.UserEmail)

	ok, err := c.PayCourse(ctx, token, "molecularphysics")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, srv.Balance(billingtest.UserEmail).Equal(decimal.NewFromInt(980)))

	_, err = c.PayCourse(ctx, token, "molecularphysics")
	assert.True(t, errors.Is(err, domain.ErrCourseAlreadyPaid), "got %v", err)

	srv.SetBalance(billingtest.UserEmail, decimal.NewFromInt(5))
	_, err = c.PayCourse(ctx, token, "figmadesign")
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds), "got %v", err)

	_, err = c.PayCourse(ctx, token, "nonexistent-code")
	assert.True(t, errors.Is(err, domain.ErrCourseNotFound), "got %v", err)
}

func TestPayCourse_RuleOrder(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrSessionExpired},
		{http.StatusNotFound, domain.ErrCourseNotFound},
		{http.StatusNotAcceptable, domain.ErrInsufficientFunds},
		{http.StatusConflict, domain.ErrCourseAlreadyPaid},
		{http.StatusBadRequest, domain.ErrBillingUnavailable},
		{http.StatusBadGateway, domain.ErrBillingUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := stubClient(tt.status, `{"message":"x"}`)
			_, err := c.PayCourse(context.Background(), "tok", "code")
			assert.True(t, errors.Is(err, tt.want), "status %d: got %v", tt.status, err)
		})
	}
}

func TestPayCourse_SendsBearer(t *testing.T) {
	c, st := stubClient(http.StatusOK, `{"success":true}`)

	ok, err := c.PayCourse(context.Background(), "tok-123", "figmadesign")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, http.MethodPost, st.last.Method)
	assert.Equal(t, "/courses/figmadesign/pay", st.last.Path)
	assert.Equal(t, "Bearer tok-123", st.last.Headers["Authorization"])
}

// --- Transactions ---

func TestListTransactions_Filters(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	token := login(t, c, billingtest.UserEmail)

	past := time.Now().Add(-time.Hour).UTC()
	srv.AddTransaction(billingtest.UserEmail, domain.Transaction{
		CreatedAt: past.Add(-7 * 24 * time.Hour), Type: domain.TransactionPayment,
		CourseCode: "figmadesign", Amount: decimal.NewFromInt(10), ExpiresAt: &past,
	})
	srv.AddTransaction(billingtest.UserEmail, domain.Transaction{
		CreatedAt: past, Type: domain.TransactionDeposit, Amount: decimal.NewFromInt(100),
	})

	all, err := c.ListTransactions(ctx, token, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	payments, err := c.ListTransactions(ctx, token, domain.TransactionFilter{Type: domain.TransactionPayment, CourseCode: "figmadesign"})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.NotNil(t, payments[0].ExpiresAt)

	active, err := c.ListTransactions(ctx, token, domain.TransactionFilter{
		Type: domain.TransactionPayment, CourseCode: "figmadesign", SkipExpired: true,
	})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListTransactions_Query(t *testing.T) {
	c, st := stubClient(http.StatusOK, `[]`)

	_, err := c.ListTransactions(context.Background(), "tok", domain.TransactionFilter{
		Type: domain.TransactionPayment, CourseCode: "a&b", SkipExpired: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []billing.QueryParam{
		{Key: "filter[type]", Value: "payment"},
		{Key: "filter[course_code]", Value: "a&b"},
		{Key: "filter[skip_expired]", Value: "1"},
	}, st.last.Query)
}

func TestListTransactions_Unauthorized(t *testing.T) {
	c, _ := stubClient(http.StatusUnauthorized, `{"code":401,"message":"Expired JWT Token"}`)

	_, err := c.ListTransactions(context.Background(), "tok", domain.TransactionFilter{})
	assert.True(t, errors.Is(err, domain.ErrSessionExpired), "got %v", err)
}
