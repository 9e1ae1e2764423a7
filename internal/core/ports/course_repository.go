package ports

import (
	"context"

	"github.com/studyon/coursehub/internal/core/domain"
)

// CourseRepository persists the local course catalog.
type CourseRepository interface {
	// Create assigns c.ID. A duplicate code yields domain.ErrCourseCodeConflict.
	Create(ctx context.Context, c *domain.Course) error
	Update(ctx context.Context, c *domain.Course) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Course, error)
	FindByCode(ctx context.Context, code string) (*domain.Course, error)
	// ExistsByCode reports whether another entry (id != excludeID) uses code.
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	List(ctx context.Context) ([]*domain.Course, error)
}

// LessonRepository persists lessons. ListByCourse orders by serial.
type LessonRepository interface {
	Create(ctx context.Context, l *domain.Lesson) error
	Update(ctx context.Context, l *domain.Lesson) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]*domain.Lesson, error)
	DeleteByCourse(ctx context.Context, courseID string) error
}
