package ports

import (
	"context"
	"time"

	"github.com/studyon/coursehub/internal/core/domain"
)

// RegisterInput is the registration form. Validation happens before any
// remote call.
type RegisterInput struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

// TransactionView is a transaction history row joined to the local catalog.
type TransactionView struct {
	ID         int64
	CreatedAt  time.Time
	Type       string
	CourseCode string
	Course     *domain.Course
	Amount     string
	ExpiresAt  *time.Time
}

// AuthService drives the session lifecycle against the billing service.
type AuthService interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.Principal, error)
	Register(ctx context.Context, in RegisterInput) (*domain.Principal, error)
	// EnsureFresh refreshes p when its bearer token has expired. It returns
	// domain.ErrSessionExpired when the session cannot continue.
	EnsureFresh(ctx context.Context, p *domain.Principal, now time.Time) (*domain.Principal, bool, error)
	Profile(ctx context.Context, p *domain.Principal) (*domain.BillingUser, error)
	Transactions(ctx context.Context, p *domain.Principal) ([]TransactionView, error)
}
