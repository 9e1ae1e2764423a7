package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
	"github.com/studyon/coursehub/internal/pkg/metrics"
	"github.com/studyon/coursehub/internal/pkg/validation"
)

// rentLabelLayout renders "HH:MM:SS DD.MM.YYYY".
const rentLabelLayout = "15:04:05 02.01.2006"

type CourseService struct {
	courses  ports.CourseRepository
	lessons  ports.LessonRepository
	billing  ports.BillingClient
	validate *validation.Validator
	logger   zerolog.Logger
	now      func() time.Time
}

var _ ports.CourseService = (*CourseService)(nil)

func NewCourseService(courses ports.CourseRepository, lessons ports.LessonRepository, billing ports.BillingClient, logger zerolog.Logger) *CourseService {
	return &CourseService{
		courses:  courses,
		lessons:  lessons,
		billing:  billing,
		validate: validation.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// --- Read side ---

// List returns the catalog with a pricing annotation per entry. When billing
// cannot be reached the entries are still listed, without annotations.
func (s *CourseService) List(ctx context.Context, viewer *domain.Principal) ([]ports.CourseListing, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	listings := make([]ports.CourseListing, len(courses))
	for i, c := range courses {
		listings[i] = ports.CourseListing{Course: c}
	}

	descriptors, err := s.billing.ListCourses(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("course listing without billing descriptors")
		return listings, nil
	}

	var paid map[string]domain.Transaction
	if viewer != nil {
		paid, err = s.activePayments(ctx, viewer.Token)
		if err != nil {
			if errors.Is(err, domain.ErrSessionExpired) {
				return nil, err
			}
			s.logger.Warn().Err(err).Msg("course listing without entitlements")
		}
	}

	byCode := make(map[string]domain.BillingCourse, len(descriptors))
	for _, d := range descriptors {
		byCode[d.Code] = d
	}
	for i := range listings {
		d, ok := byCode[listings[i].Course.Code]
		if !ok {
			continue
		}
		tx, hasPayment := paid[d.Code]
		listings[i].Tag = priceTag(d, tx, hasPayment)
	}
	return listings, nil
}

// activePayments indexes the viewer's non-expired payments by course code.
func (s *CourseService) activePayments(ctx context.Context, token string) (map[string]domain.Transaction, error) {
	txs, err := s.billing.ListTransactions(ctx, token, domain.TransactionFilter{
		Type:        domain.TransactionPayment,
		SkipExpired: true,
	})
	if err != nil {
		return nil, surface(err)
	}
	out := make(map[string]domain.Transaction, len(txs))
	for _, tx := range txs {
		if tx.CourseCode == "" {
			continue
		}
		prev, seen := out[tx.CourseCode]
		if !seen || laterExpiry(tx.ExpiresAt, prev.ExpiresAt) {
			out[tx.CourseCode] = tx
		}
	}
	return out, nil
}

// laterExpiry treats nil as "never expires".
func laterExpiry(a, b *time.Time) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return a.After(*b)
	}
}

func priceTag(d domain.BillingCourse, tx domain.Transaction, paid bool) *ports.PriceTag {
	tag := &ports.PriceTag{Type: d.Type, Price: d.Price, State: ports.EntitlementNone}
	switch {
	case d.Type == domain.CourseFree:
		tag.State = ports.EntitlementFree
		tag.Label = "Free"
	case paid && d.Type == domain.CourseRent && tx.ExpiresAt != nil:
		tag.State = ports.EntitlementRented
		tag.ExpiresAt = tx.ExpiresAt
		tag.Label = "Rented until " + tx.ExpiresAt.Format(rentLabelLayout)
	case paid:
		tag.State = ports.EntitlementPurchased
		tag.Label = "Purchased"
	case d.Type == domain.CourseRent:
		tag.Label = d.Price.StringFixed(2) + " per week"
	default:
		tag.Label = d.Price.StringFixed(2)
	}
	return tag
}

// Show returns a course with its lessons. Authenticated viewers also get the
// billing descriptor, their account and entitlement, and the message for a
// payment outcome carried back from the pay redirect.
func (s *CourseService) Show(ctx context.Context, id string, viewer *domain.Principal, paymentStatus string) (*ports.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("show course: %w", err)
	}

	detail := &ports.CourseDetail{Course: course, Lessons: lessons}
	if outcome, ok := domain.ParsePaymentOutcome(paymentStatus); ok {
		detail.PaymentMessage = outcome.Message()
	}
	if viewer == nil {
		return detail, nil
	}

	bc, err := s.billing.GetCourse(ctx, course.Code)
	switch {
	case errors.Is(err, domain.ErrCourseNotFound):
		s.logger.Warn().Str("code", course.Code).Msg("course unknown to billing")
		bc = nil
	case err != nil:
		return nil, fmt.Errorf("show course: %w", surface(err))
	}
	detail.BillingCourse = bc

	user, err := s.billing.CurrentUser(ctx, viewer.Token)
	if err != nil {
		return nil, fmt.Errorf("show course: %w", surface(err))
	}
	detail.BillingUser = user

	if bc != nil {
		paid, err := s.IsCoursePaid(ctx, viewer.Token, bc)
		if err != nil {
			return nil, fmt.Errorf("show course: %w", err)
		}
		detail.IsPaid = paid
	}
	return detail, nil
}

// IsCoursePaid reports whether the principal behind token may access bc.
func (s *CourseService) IsCoursePaid(ctx context.Context, token string, bc *domain.BillingCourse) (bool, error) {
	return isCoursePaid(ctx, s.billing, token, bc)
}

// isCoursePaid is true for free courses and otherwise true iff billing holds
// at least one non-expired payment for the code. Expiry is judged by billing.
func isCoursePaid(ctx context.Context, billing ports.BillingClient, token string, bc *domain.BillingCourse) (bool, error) {
	if bc == nil {
		return false, nil
	}
	if bc.Type == domain.CourseFree {
		return true, nil
	}
	txs, err := billing.ListTransactions(ctx, token, domain.TransactionFilter{
		Type:        domain.TransactionPayment,
		CourseCode:  bc.Code,
		SkipExpired: true,
	})
	if err != nil {
		return false, surface(err)
	}
	return len(txs) > 0, nil
}

// --- Payment ---

// Pay charges actor for the course and folds every failure into an outcome.
// A nil course means the id is unknown locally.
func (s *CourseService) Pay(ctx context.Context, actor *domain.Principal, id string) (*domain.Course, domain.PaymentOutcome) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("course_id", id).Msg("pay for unknown course")
		return nil, domain.PaymentFailed
	}

	outcome := s.pay(ctx, actor, course.Code)
	metrics.PaymentOutcomesTotal.WithLabelValues(string(outcome)).Inc()

	ev := s.logger.Info()
	if outcome == domain.PaymentFailed {
		ev = s.logger.Warn()
	}
	ev.Str("code", course.Code).Str("outcome", string(outcome)).Msg("course payment")
	return course, outcome
}

func (s *CourseService) pay(ctx context.Context, actor *domain.Principal, code string) domain.PaymentOutcome {
	if actor == nil {
		return domain.PaymentFailed
	}
	ok, err := s.billing.PayCourse(ctx, actor.Token, code)
	switch {
	case errors.Is(err, domain.ErrCourseAlreadyPaid):
		return domain.PaymentAlreadyPaid
	case errors.Is(err, domain.ErrInsufficientFunds):
		return domain.PaymentInsufficientFunds
	case err != nil:
		s.logger.Warn().Err(err).Str("code", code).Msg("payment failed")
		return domain.PaymentFailed
	case !ok:
		return domain.PaymentFailed
	}
	return domain.PaymentSucceeded
}

// --- Write side ---

// Create validates in, rejects a duplicate code before any remote call,
// registers the course with billing and then stores it locally.
func (s *CourseService) Create(ctx context.Context, actor *domain.Principal, in ports.CourseInput) (*domain.Course, error) {
	in = normalizeCourseInput(in)
	if err := s.validateCourse(in); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, in.Code, ""); err != nil {
		return nil, err
	}
	if err := s.saveRemote(ctx, actor, in, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	course := &domain.Course{
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.logger.Info().Str("code", course.Code).Str("course_id", course.ID).Msg("course created")
	return course, nil
}

// Update edits a course. Billing is addressed by the previous code so a code
// change renames the descriptor there too.
func (s *CourseService) Update(ctx context.Context, actor *domain.Principal, id string, in ports.CourseInput) (*domain.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in = normalizeCourseInput(in)
	if err := s.validateCourse(in); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, in.Code, course.ID); err != nil {
		return nil, err
	}
	if err := s.saveRemote(ctx, actor, in, course.Code); err != nil {
		return nil, err
	}

	course.Code = in.Code
	course.Name = in.Name
	course.Description = in.Description
	course.UpdatedAt = s.now().UTC()
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	s.logger.Info().Str("code", course.Code).Str("course_id", course.ID).Msg("course updated")
	return course, nil
}

// Delete removes a course and its lessons from the local catalog. The
// billing descriptor is left in place.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.lessons.DeleteByCourse(ctx, course.ID); err != nil {
		return fmt.Errorf("delete course lessons: %w", err)
	}
	if err := s.courses.Delete(ctx, course.ID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.logger.Info().Str("code", course.Code).Str("course_id", course.ID).Msg("course deleted")
	return nil
}

func normalizeCourseInput(in ports.CourseInput) ports.CourseInput {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Type == domain.CourseFree {
		in.Price = decimal.Zero
	}
	return in
}

func (s *CourseService) validateCourse(in ports.CourseInput) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	switch {
	case in.Price.IsNegative():
		return domain.NewValidationError("price", "price must not be negative")
	case in.Type.Paid() && !in.Price.IsPositive():
		return domain.NewValidationError("price", "price is required for paid courses")
	}
	return nil
}

func (s *CourseService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	taken, err := s.courses.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return fmt.Errorf("check course code: %w", err)
	}
	if taken {
		return domain.ErrCourseCodeConflict
	}
	return nil
}

func (s *CourseService) saveRemote(ctx context.Context, actor *domain.Principal, in ports.CourseInput, previousCode string) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	ok, err := s.billing.SaveCourse(ctx, actor.Token, domain.CourseDraft{
		Code:        in.Code,
		Type:        in.Type,
		Price:       in.Price,
		Name:        in.Name,
		Description: in.Description,
	}, previousCode)
	if err != nil {
		return fmt.Errorf("save course: %w", surface(err))
	}
	if !ok {
		return fmt.Errorf("save course: %w: billing refused the course", domain.ErrBillingUnavailable)
	}
	return nil
}
