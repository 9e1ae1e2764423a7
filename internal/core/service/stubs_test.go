package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/studyon/coursehub/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

var errUnexpectedCall = errors.New("unexpected call")

type stubBilling struct {
	authenticateFn func(ctx context.Context, creds domain.Credentials) (*domain.AuthTokens, error)
	registerFn     func(ctx context.Context, creds domain.Credentials) (*domain.Registration, error)
	currentUserFn  func(ctx context.Context, token string) (*domain.BillingUser, error)
	refreshFn      func(ctx context.Context, refreshToken string) (*domain.AuthTokens, error)
	listCoursesFn  func(ctx context.Context) ([]domain.BillingCourse, error)
	getCourseFn    func(ctx context.Context, code string) (*domain.BillingCourse, error)
	saveCourseFn   func(ctx context.Context, token string, draft domain.CourseDraft, previousCode string) (bool, error)
	payFn          func(ctx context.Context, token, code string) (bool, error)
	listTxFn       func(ctx context.Context, token string, filter domain.TransactionFilter) ([]domain.Transaction, error)

	calls []string
}

func (s *stubBilling) Authenticate(ctx context.Context, creds domain.Credentials) (*domain.AuthTokens, error) {
	s.calls = append(s.calls, "authenticate")
	if s.authenticateFn == nil {
		return nil, errUnexpectedCall
	}
	return s.authenticateFn(ctx, creds)
}

func (s *stubBilling) Register(ctx context.Context, creds domain.Credentials) (*domain.Registration, error) {
	s.calls = append(s.calls, "register")
	if s.registerFn == nil {
		return nil, errUnexpectedCall
	}
	return s.registerFn(ctx, creds)
}

func (s *stubBilling) CurrentUser(ctx context.Context, token string) (*domain.BillingUser, error) {
	s.calls = append(s.calls, "current_user")
	if s.currentUserFn == nil {
		return nil, errUnexpectedCall
	}
	return s.currentUserFn(ctx, token)
}

func (s *stubBilling) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	s.calls = append(s.calls, "refresh_token")
	if s.refreshFn == nil {
		return nil, errUnexpectedCall
	}
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubBilling) ListCourses(ctx context.Context) ([]domain.BillingCourse, error) {
	s.calls = append(s.calls, "list_courses")
	if s.listCoursesFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listCoursesFn(ctx)
}

func (s *stubBilling) GetCourse(ctx context.Context, code string) (*domain.BillingCourse, error) {
	s.calls = append(s.calls, "get_course")
	if s.getCourseFn == nil {
		return nil, errUnexpectedCall
	}
	return s.getCourseFn(ctx, code)
}

func (s *stubBilling) SaveCourse(ctx context.Context, token string, draft domain.CourseDraft, previousCode string) (bool, error) {
	s.calls = append(s.calls, "save_course")
	if s.saveCourseFn == nil {
		return false, errUnexpectedCall
	}
	return s.saveCourseFn(ctx, token, draft, previousCode)
}

func (s *stubBilling) PayCourse(ctx context.Context, token, code string) (bool, error) {
	s.calls = append(s.calls, "pay_course")
	if s.payFn == nil {
		return false, errUnexpectedCall
	}
	return s.payFn(ctx, token, code)
}

func (s *stubBilling) ListTransactions(ctx context.Context, token string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.calls = append(s.calls, "list_transactions")
	if s.listTxFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listTxFn(ctx, token, filter)
}

func (s *stubBilling) called(op string) bool {
	for _, c := range s.calls {
		if c == op {
			return true
		}
	}
	return false
}

// memCourseRepo is an in-memory ports.CourseRepository.
type memCourseRepo struct {
	byID   map[string]*domain.Course
	nextID int
}

func newMemCourseRepo(courses ...*domain.Course) *memCourseRepo {
	r := &memCourseRepo{byID: make(map[string]*domain.Course)}
	for _, c := range courses {
		if c.ID == "" {
			r.nextID++
			c.ID = "c" + strconv.Itoa(r.nextID)
		}
		clone := *c
		r.byID[c.ID] = &clone
	}
	return r
}

func (r *memCourseRepo) Create(_ context.Context, c *domain.Course) error {
	for _, existing := range r.byID {
		if existing.Code == c.Code {
			return domain.ErrCourseCodeConflict
		}
	}
	r.nextID++
	c.ID = "c" + strconv.Itoa(r.nextID)
	clone := *c
	r.byID[c.ID] = &clone
	return nil
}

func (r *memCourseRepo) Update(_ context.Context, c *domain.Course) error {
	if _, ok := r.byID[c.ID]; !ok {
		return domain.ErrCourseNotFound
	}
	clone := *c
	r.byID[c.ID] = &clone
	return nil
}

func (r *memCourseRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memCourseRepo) FindByID(_ context.Context, id string) (*domain.Course, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *memCourseRepo) FindByCode(_ context.Context, code string) (*domain.Course, error) {
	for _, c := range r.byID {
		if c.Code == code {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrCourseNotFound
}

func (r *memCourseRepo) ExistsByCode(_ context.Context, code, excludeID string) (bool, error) {
	for _, c := range r.byID {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCourseRepo) List(_ context.Context) ([]*domain.Course, error) {
	out := make([]*domain.Course, 0, len(r.byID))
	for _, c := range r.byID {
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// memLessonRepo is an in-memory ports.LessonRepository.
type memLessonRepo struct {
	byID   map[string]*domain.Lesson
	nextID int
}

func newMemLessonRepo(lessons ...*domain.Lesson) *memLessonRepo {
	r := &memLessonRepo{byID: make(map[string]*domain.Lesson)}
	for _, l := range lessons {
		clone := *l
		r.byID[l.ID] = &clone
	}
	return r
}

func (r *memLessonRepo) Create(_ context.Context, l *domain.Lesson) error {
	r.nextID++
	l.ID = "l" + strconv.Itoa(r.nextID)
	clone := *l
	r.byID[l.ID] = &clone
	return nil
}

func (r *memLessonRepo) Update(_ context.Context, l *domain.Lesson) error {
	if _, ok := r.byID[l.ID]; !ok {
		return domain.ErrLessonNotFound
	}
	clone := *l
	r.byID[l.ID] = &clone
	return nil
}

func (r *memLessonRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrLessonNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memLessonRepo) FindByID(_ context.Context, id string) (*domain.Lesson, error) {
	l, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrLessonNotFound
	}
	clone := *l
	return &clone, nil
}

func (r *memLessonRepo) ListByCourse(_ context.Context, courseID string) ([]*domain.Lesson, error) {
	var out []*domain.Lesson
	for _, l := range r.byID {
		if l.CourseID == courseID {
			clone := *l
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return out, nil
}

func (r *memLessonRepo) DeleteByCourse(_ context.Context, courseID string) error {
	for id, l := range r.byID {
		if l.CourseID == courseID {
			delete(r.byID, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func token(email string, exp time.Time, roles ...string) string {
	payload, _ := json.Marshal(map[string]any{
		"exp":      exp.Unix(),
		"username": email,
		"roles":    roles,
	})
	return "header." + base64.StdEncoding.EncodeToString(payload) + ".trailer"
}

func principal(email string, exp time.Time, refresh string, roles ...string) *domain.Principal {
	p, err := domain.NewPrincipal(token(email, exp, roles...), refresh)
	if err != nil {
		panic(err)
	}
	return p
}
