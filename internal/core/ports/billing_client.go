package ports

import (
	"context"

	"github.com/studyon/coursehub/internal/core/domain"
)

// BillingClient is the typed view of the remote billing service. Every
// method performs exactly one HTTP call and classifies the status code into
// the domain error taxonomy.
type BillingClient interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (*domain.AuthTokens, error)
	Register(ctx context.Context, creds domain.Credentials) (*domain.Registration, error)
	CurrentUser(ctx context.Context, token string) (*domain.BillingUser, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthTokens, error)

	ListCourses(ctx context.Context) ([]domain.BillingCourse, error)
	GetCourse(ctx context.Context, code string) (*domain.BillingCourse, error)
	// SaveCourse creates a course, or updates the one known as previousCode
	// when previousCode is non-empty.
	SaveCourse(ctx context.Context, token string, draft domain.CourseDraft, previousCode string) (bool, error)

	PayCourse(ctx context.Context, token, code string) (bool, error)
	ListTransactions(ctx context.Context, token string, filter domain.TransactionFilter) ([]domain.Transaction, error)
}
