package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
	"github.com/studyon/coursehub/internal/pkg/validation"
)

// LessonService guards lesson reads behind course entitlement. Super admins
// read every lesson; everybody else needs a free course or an active payment.
type LessonService struct {
	lessons  ports.LessonRepository
	courses  ports.CourseRepository
	billing  ports.BillingClient
	validate *validation.Validator
	logger   zerolog.Logger
}

var _ ports.LessonService = (*LessonService)(nil)

func NewLessonService(lessons ports.LessonRepository, courses ports.CourseRepository, billing ports.BillingClient, logger zerolog.Logger) *LessonService {
	return &LessonService{
		lessons:  lessons,
		courses:  courses,
		billing:  billing,
		validate: validation.New(),
		logger:   logger,
	}
}

func (s *LessonService) Show(ctx context.Context, id string, viewer *domain.Principal) (*domain.Lesson, error) {
	if viewer == nil {
		return nil, domain.ErrUnauthenticated
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.IsSuperAdmin() {
		return lesson, nil
	}

	course, err := s.courses.FindByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("lesson course: %w", err)
	}
	bc, err := s.billing.GetCourse(ctx, course.Code)
	if errors.Is(err, domain.ErrCourseNotFound) {
		return nil, domain.ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("lesson access: %w", surface(err))
	}

	paid, err := isCoursePaid(ctx, s.billing, viewer.Token, bc)
	if err != nil {
		return nil, fmt.Errorf("lesson access: %w", err)
	}
	if !paid {
		s.logger.Debug().Str("email", viewer.Email).Str("lesson_id", id).Msg("lesson access denied")
		return nil, domain.ErrForbidden
	}
	return lesson, nil
}

func (s *LessonService) Create(ctx context.Context, courseID string, in ports.LessonInput) (*domain.Lesson, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	in = normalizeLessonInput(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	lesson := &domain.Lesson{
		CourseID: course.ID,
		Name:     in.Name,
		Content:  in.Content,
		Serial:   in.Serial,
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return lesson, nil
}

func (s *LessonService) Update(ctx context.Context, id string, in ports.LessonInput) (*domain.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in = normalizeLessonInput(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	lesson.Name = in.Name
	lesson.Content = in.Content
	lesson.Serial = in.Serial
	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	return lesson, nil
}

func (s *LessonService) Delete(ctx context.Context, id string) error {
	if _, err := s.lessons.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.lessons.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

func normalizeLessonInput(in ports.LessonInput) ports.LessonInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Content = strings.TrimSpace(in.Content)
	return in
}
