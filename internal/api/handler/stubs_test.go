package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
)

type stubAuthService struct {
	loginFn        func(ctx context.Context, creds domain.Credentials) (*domain.Principal, error)
	registerFn     func(ctx context.Context, in ports.RegisterInput) (*domain.Principal, error)
	profileFn      func(ctx context.Context, p *domain.Principal) (*domain.BillingUser, error)
	transactionsFn func(ctx context.Context, p *domain.Principal) ([]ports.TransactionView, error)
}

func (s *stubAuthService) Login(ctx context.Context, creds domain.Credentials) (*domain.Principal, error) {
	return s.loginFn(ctx, creds)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Principal, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) EnsureFresh(_ context.Context, p *domain.Principal, _ time.Time) (*domain.Principal, bool, error) {
	return p, false, nil
}

func (s *stubAuthService) Profile(ctx context.Context, p *domain.Principal) (*domain.BillingUser, error) {
	return s.profileFn(ctx, p)
}

func (s *stubAuthService) Transactions(ctx context.Context, p *domain.Principal) ([]ports.TransactionView, error) {
	return s.transactionsFn(ctx, p)
}

type stubSessions struct {
	started *domain.Principal
	ended   bool
}

func (s *stubSessions) Start(_ echo.Context, p *domain.Principal) error {
	s.started = p
	return nil
}

func (s *stubSessions) End(echo.Context) error {
	s.ended = true
	return nil
}

type stubCourseService struct {
	listFn   func(ctx context.Context, viewer *domain.Principal) ([]ports.CourseListing, error)
	showFn   func(ctx context.Context, id string, viewer *domain.Principal, paymentStatus string) (*ports.CourseDetail, error)
	createFn func(ctx context.Context, actor *domain.Principal, in ports.CourseInput) (*domain.Course, error)
	updateFn func(ctx context.Context, actor *domain.Principal, id string, in ports.CourseInput) (*domain.Course, error)
	deleteFn func(ctx context.Context, id string) error
	payFn    func(ctx context.Context, actor *domain.Principal, id string) (*domain.Course, domain.PaymentOutcome)
}

func (s *stubCourseService) List(ctx context.Context, viewer *domain.Principal) ([]ports.CourseListing, error) {
	return s.listFn(ctx, viewer)
}

func (s *stubCourseService) Show(ctx context.Context, id string, viewer *domain.Principal, paymentStatus string) (*ports.CourseDetail, error) {
	return s.showFn(ctx, id, viewer, paymentStatus)
}

func (s *stubCourseService) Create(ctx context.Context, actor *domain.Principal, in ports.CourseInput) (*domain.Course, error) {
	return s.createFn(ctx, actor, in)
}

func (s *stubCourseService) Update(ctx context.Context, actor *domain.Principal, id string, in ports.CourseInput) (*domain.Course, error) {
	return s.updateFn(ctx, actor, id, in)
}

func (s *stubCourseService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubCourseService) IsCoursePaid(context.Context, string, *domain.BillingCourse) (bool, error) {
	return false, nil
}

func (s *stubCourseService) Pay(ctx context.Context, actor *domain.Principal, id string) (*domain.Course, domain.PaymentOutcome) {
	return s.payFn(ctx, actor, id)
}

type stubLessonService struct {
	showFn   func(ctx context.Context, id string, viewer *domain.Principal) (*domain.Lesson, error)
	createFn func(ctx context.Context, courseID string, in ports.LessonInput) (*domain.Lesson, error)
	updateFn func(ctx context.Context, id string, in ports.LessonInput) (*domain.Lesson, error)
	deleteFn func(ctx context.Context, id string) error
}

func (s *stubLessonService) Show(ctx context.Context, id string, viewer *domain.Principal) (*domain.Lesson, error) {
	return s.showFn(ctx, id, viewer)
}

func (s *stubLessonService) Create(ctx context.Context, courseID string, in ports.LessonInput) (*domain.Lesson, error) {
	return s.createFn(ctx, courseID, in)
}

func (s *stubLessonService) Update(ctx context.Context, id string, in ports.LessonInput) (*domain.Lesson, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubLessonService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// newContext builds an echo context for a JSON request. A non-nil principal
// is attached the way the session middleware does it.
func newContext(method, target, body string, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set("principal", p)
	}
	return c, rec
}

func userPrincipal() *domain.Principal {
	return &domain.Principal{Email: "user@example.com", Roles: []string{domain.RoleUser}, Token: "t"}
}

func adminPrincipal() *domain.Principal {
	return &domain.Principal{Email: "admin@example.com", Roles: []string{domain.RoleUser, domain.RoleSuperAdmin}, Token: "t"}
}
