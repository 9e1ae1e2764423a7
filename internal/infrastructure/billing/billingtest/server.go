// Package billingtest provides an in-process fake of the billing service API
// for tests. It mirrors the status codes of the real service closely enough
// to exercise every classification path of the billing client.
package billingtest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/studyon/coursehub/internal/core/domain"
)

const (
	UserEmail  = "user@example.com"
	AdminEmail = "admin@example.com"
	Password   = "password"
)

type account struct {
	password string
	roles    []string
	balance  decimal.Decimal
}

// Server is a fake billing service. Zero configuration gives the fixture
// data used across the test suite.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	accounts     map[string]*account
	courses      map[string]domain.BillingCourse
	order        []string
	transactions map[string][]domain.Transaction
	nextID       int64

	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL time.Duration
	// Down makes every endpoint answer 503.
	Down bool
	// Calls counts requests per "METHOD path" route pattern.
	Calls map[string]int
}

// NewServer starts a fake billing service with two accounts (user and
// admin, both with balance 1000) and three courses.
func NewServer() *Server {
	s := &Server{
		accounts: map[string]*account{
			UserEmail:  {password: Password, roles: []string{domain.RoleUser}, balance: decimal.NewFromInt(1000)},
			AdminEmail: {password: Password, roles: []string{domain.RoleUser, domain.RoleSuperAdmin}, balance: decimal.NewFromInt(1000)},
		},
		courses:      map[string]domain.BillingCourse{},
		transactions: map[string][]domain.Transaction{},
		nextID:       100,
		TokenTTL:     time.Hour,
		Calls:        map[string]int{},
	}
	s.addCourse(domain.BillingCourse{Code: "nympydata", Type: domain.CourseFree})
	s.addCourse(domain.BillingCourse{Code: "figmadesign", Type: domain.CourseRent, Price: decimal.NewFromInt(10)})
	s.addCourse(domain.BillingCourse{Code: "molecularphysics", Type: domain.CourseBuy, Price: decimal.NewFromInt(20)})

	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) addCourse(c domain.BillingCourse) {
	if _, ok := s.courses[c.Code]; !ok {
		s.order = append(s.order, c.Code)
	}
	s.courses[c.Code] = c
}

// SetBalance overrides an account balance.
func (s *Server) SetBalance(email string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		a.balance = balance
	}
}

// Balance returns an account balance.
func (s *Server) Balance(email string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email].balance
}

// Course returns the stored descriptor for code.
func (s *Server) Course(code string) (domain.BillingCourse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[code]
	return c, ok
}

// AddTransaction records a transaction for email.
func (s *Server) AddTransaction(email string, tx domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == 0 {
		s.nextID++
		tx.ID = s.nextID
	}
	s.transactions[email] = append(s.transactions[email], tx)
}

// CallCount returns how many times a route was hit, e.g. "POST /courses".
func (s *Server) CallCount(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[route]
}

// IssueToken builds a bearer token in the billing service format with the
// given expiry.
func IssueToken(email string, roles []string, exp time.Time) string {
	payload, _ := json.Marshal(map[string]any{
		"exp":      exp.Unix(),
		"username": email,
		"roles":    roles,
	})
	return "header." + base64.StdEncoding.EncodeToString(payload) + ".trailer"
}

// --- Routing ---

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(s.track)

	e.POST("/auth", s.auth)
	e.POST("/register", s.register)
	e.POST("/token/refresh", s.refresh)
	e.GET("/users/current", s.currentUser)
	e.GET("/courses", s.listCourses)
	e.GET("/courses/:code", s.getCourse)
	e.POST("/courses", s.saveCourse)
	e.POST("/courses/:code", s.saveCourse)
	e.POST("/courses/:code/pay", s.pay)
	e.GET("/transactions", s.listTransactions)
	return e
}

func (s *Server) track(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.Calls[c.Request().Method+" "+c.Path()]++
		down := s.Down
		s.mu.Unlock()
		if down {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "maintenance"})
		}
		return next(c)
	}
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"code": status, "message": msg})
}

// principal resolves the bearer token to an account email. It must be
// called with s.mu held.
func (s *Server) principal(c echo.Context) (string, bool) {
	h := c.Request().Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", false
	}
	claims, err := domain.DecodeClaims(token)
	if err != nil || !claims.ExpiresAt.After(time.Now()) {
		return "", false
	}
	if _, ok := s.accounts[claims.Subject]; !ok {
		return "", false
	}
	return claims.Subject, true
}

func (s *Server) tokensFor(email string) domain.AuthTokens {
	a := s.accounts[email]
	return domain.AuthTokens{
		Token:        IssueToken(email, a.roles, time.Now().Add(s.TokenTTL)),
		RefreshToken: "refresh:" + email,
	}
}

func (s *Server) auth(c echo.Context) error {
	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		return fail(c, http.StatusBadRequest, "invalid payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[creds.Username]
	if !ok || a.password != creds.Password {
		return fail(c, http.StatusUnauthorized, "Invalid credentials.")
	}
	return c.JSON(http.StatusOK, s.tokensFor(creds.Username))
}

func (s *Server) register(c echo.Context) error {
	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		return fail(c, http.StatusBadRequest, "invalid payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[creds.Username]; exists {
		return fail(c, http.StatusConflict, "User with this email already exists")
	}
	s.accounts[creds.Username] = &account{password: creds.Password, roles: []string{domain.RoleUser}, balance: decimal.Zero}
	tokens := s.tokensFor(creds.Username)
	return c.JSON(http.StatusOK, map[string]any{
		"token":         tokens.Token,
		"refresh_token": tokens.RefreshToken,
		"roles":         []string{domain.RoleUser},
	})
}

func (s *Server) refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := strings.CutPrefix(req.RefreshToken, "refresh:")
	if _, known := s.accounts[email]; !ok || !known {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token.")
	}
	return c.JSON(http.StatusOK, s.tokensFor(email))
}

func (s *Server) currentUser(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.principal(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Invalid JWT Token")
	}
	a := s.accounts[email]
	return c.JSON(http.StatusOK, domain.BillingUser{Username: email, Balance: a.balance, Roles: a.roles})
}

func (s *Server) listCourses(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BillingCourse, 0, len(s.order))
	for _, code := range s.order {
		if course, ok := s.courses[code]; ok {
			out = append(out, course)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getCourse(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[c.Param("code")]
	if !ok {
		return fail(c, http.StatusNotFound, "Course not found")
	}
	return c.JSON(http.StatusOK, course)
}

func (s *Server) saveCourse(c echo.Context) error {
	var draft domain.CourseDraft
	if err := c.Bind(&draft); err != nil {
		return fail(c, http.StatusBadRequest, "invalid payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.principal(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Invalid JWT Token")
	}
	if !slices.Contains(s.accounts[email].roles, domain.RoleSuperAdmin) {
		return fail(c, http.StatusForbidden, "Access denied")
	}
	if !draft.Type.Valid() {
		return fail(c, http.StatusBadRequest, "Unknown course type")
	}

	previous := c.Param("code")
	if previous != "" {
		if _, exists := s.courses[previous]; !exists {
			return fail(c, http.StatusNotFound, "Course not found")
		}
	}
	if _, exists := s.courses[draft.Code]; exists && draft.Code != previous {
		return fail(c, http.StatusConflict, "Course with this code already exists")
	}

	if previous != "" && previous != draft.Code {
		delete(s.courses, previous)
		for i, code := range s.order {
			if code == previous {
				s.order[i] = draft.Code
			}
		}
	}
	price := draft.Price
	if draft.Type == domain.CourseFree {
		price = decimal.Zero
	}
	s.addCourse(domain.BillingCourse{Code: draft.Code, Type: draft.Type, Price: price})
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) pay(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.principal(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Invalid JWT Token")
	}
	course, ok := s.courses[c.Param("code")]
	if !ok {
		return fail(c, http.StatusNotFound, "Course not found")
	}
	now := time.Now()
	for _, tx := range s.transactions[email] {
		if tx.Type == domain.TransactionPayment && tx.CourseCode == course.Code &&
			(tx.ExpiresAt == nil || tx.ExpiresAt.After(now)) {
			return fail(c, http.StatusConflict, "Course already paid")
		}
	}
	if course.Type == domain.CourseFree {
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}

	a := s.accounts[email]
	if a.balance.LessThan(course.Price) {
		return fail(c, http.StatusNotAcceptable, "Insufficient funds")
	}
	a.balance = a.balance.Sub(course.Price)

	s.nextID++
	tx := domain.Transaction{
		ID:         s.nextID,
		CreatedAt:  now.UTC(),
		Type:       domain.TransactionPayment,
		CourseCode: course.Code,
		Amount:     course.Price,
	}
	if course.Type == domain.CourseRent {
		exp := now.Add(7 * 24 * time.Hour).UTC()
		tx.ExpiresAt = &exp
	}
	s.transactions[email] = append(s.transactions[email], tx)

	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"course_type": course.Type,
		"expires_at":  tx.ExpiresAt,
	})
}

func (s *Server) listTransactions(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.principal(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Invalid JWT Token")
	}

	typ := c.QueryParam("filter[type]")
	code := c.QueryParam("filter[course_code]")
	skipExpired := c.QueryParam("filter[skip_expired]") != ""
	now := time.Now()

	out := make([]domain.Transaction, 0)
	for _, tx := range s.transactions[email] {
		if typ != "" && string(tx.Type) != typ {
			continue
		}
		if code != "" && tx.CourseCode != code {
			continue
		}
		if skipExpired && tx.ExpiresAt != nil && !tx.ExpiresAt.After(now) {
			continue
		}
		out = append(out, tx)
	}
	return c.JSON(http.StatusOK, out)
}
