package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CourseType is the commercial model of a course in the billing service.
type CourseType string

const (
	CourseFree CourseType = "free"
	CourseRent CourseType = "rent"
	CourseBuy  CourseType = "buy"
)

// Valid reports whether t is one of the known course types.
func (t CourseType) Valid() bool {
	switch t {
	case CourseFree, CourseRent, CourseBuy:
		return true
	}
	return false
}

// Paid reports whether the type carries a price.
func (t CourseType) Paid() bool {
	return t == CourseRent || t == CourseBuy
}

// Course is a local catalog entry. Code is unique across entries and joins
// the entry to its billing descriptor.
type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lesson belongs to exactly one course.
type Lesson struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Serial   int    `json:"serial"`
}

// BillingCourse is the commercial descriptor the billing service keeps for a
// course code. Price is zero for free courses.
type BillingCourse struct {
	Code  string          `json:"code"  validate:"required"`
	Type  CourseType      `json:"type"  validate:"required"`
	Price decimal.Decimal `json:"price"`
}

// CourseDraft is the payload sent to the billing service when a course is
// created or updated.
type CourseDraft struct {
	Code        string          `json:"code"`
	Type        CourseType      `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
}
