package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/studyon/coursehub/internal/core/domain"
)

// EntitlementState describes how the viewer relates to a course commercially.
type EntitlementState string

const (
	EntitlementNone      EntitlementState = "none"
	EntitlementFree      EntitlementState = "free"
	EntitlementRented    EntitlementState = "rented"
	EntitlementPurchased EntitlementState = "purchased"
)

// PriceTag is the read-side annotation shown next to a course in the listing.
type PriceTag struct {
	Type      domain.CourseType
	Price     decimal.Decimal
	State     EntitlementState
	ExpiresAt *time.Time
	Label     string
}

// CourseListing is one row of the catalog page.
type CourseListing struct {
	Course *domain.Course
	Tag    *PriceTag // nil when billing does not know the code
}

// CourseDetail is the course page. Billing fields are set for authenticated
// viewers only.
type CourseDetail struct {
	Course         *domain.Course
	Lessons        []*domain.Lesson
	BillingCourse  *domain.BillingCourse
	BillingUser    *domain.BillingUser
	IsPaid         bool
	PaymentMessage string
}

// CourseInput is the create/edit form for a course.
type CourseInput struct {
	Code        string            `validate:"required,max=255"`
	Name        string            `validate:"required,max=255"`
	Description string            `validate:"max=1000"`
	Type        domain.CourseType `validate:"required,oneof=free rent buy"`
	Price       decimal.Decimal
}

// CourseService covers the catalog, entitlement and payment workflows.
type CourseService interface {
	List(ctx context.Context, viewer *domain.Principal) ([]CourseListing, error)
	Show(ctx context.Context, id string, viewer *domain.Principal, paymentStatus string) (*CourseDetail, error)
	Create(ctx context.Context, actor *domain.Principal, in CourseInput) (*domain.Course, error)
	Update(ctx context.Context, actor *domain.Principal, id string, in CourseInput) (*domain.Course, error)
	Delete(ctx context.Context, id string) error
	IsCoursePaid(ctx context.Context, token string, bc *domain.BillingCourse) (bool, error)
	// Pay never fails: every error is folded into an outcome.
	Pay(ctx context.Context, actor *domain.Principal, id string) (*domain.Course, domain.PaymentOutcome)
}

// LessonInput is the create/edit form for a lesson.
type LessonInput struct {
	Name    string `validate:"required,max=255"`
	Content string `validate:"required"`
	Serial  int    `validate:"min=1,max=10000"`
}

// LessonService covers lesson CRUD and the entitlement gate on reads.
type LessonService interface {
	Show(ctx context.Context, id string, viewer *domain.Principal) (*domain.Lesson, error)
	Create(ctx context.Context, courseID string, in LessonInput) (*domain.Lesson, error)
	Update(ctx context.Context, id string, in LessonInput) (*domain.Lesson, error)
	Delete(ctx context.Context, id string) error
}
