package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
	"github.com/studyon/coursehub/internal/pkg/metrics"
	"github.com/studyon/coursehub/internal/pkg/validation"
)

// AuthService implements login, registration and refresh-on-demand against
// the billing service. It keeps no state of its own: the principal lives in
// the caller's session.
type AuthService struct {
	billing  ports.BillingClient
	courses  ports.CourseRepository
	validate *validation.Validator
	logger   zerolog.Logger
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(billing ports.BillingClient, courses ports.CourseRepository, logger zerolog.Logger) *AuthService {
	return &AuthService{
		billing:  billing,
		courses:  courses,
		validate: validation.New(),
		logger:   logger,
	}
}

// Login exchanges credentials for a principal. Failures are terminal for the
// attempt and never retried.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*domain.Principal, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	tokens, err := s.billing.Authenticate(ctx, creds)
	if err != nil {
		err = surface(err)
		metrics.AuthAttemptsTotal.WithLabelValues("login", attemptResult(err)).Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	p, err := domain.NewPrincipal(tokens.Token, tokens.RefreshToken)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "unavailable").Inc()
		return nil, fmt.Errorf("login: %w: %v", domain.ErrBillingUnavailable, err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	s.logger.Info().Str("email", p.Email).Msg("user logged in")
	return p, nil
}

// Register validates the form locally, creates the account and logs the new
// user in with the token returned by registration.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Principal, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, err
	}

	reg, err := s.billing.Register(ctx, domain.Credentials{Username: in.Email, Password: in.Password})
	if err != nil {
		err = surface(err)
		metrics.AuthAttemptsTotal.WithLabelValues("register", attemptResult(err)).Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	p, err := domain.NewPrincipal(reg.Token, reg.RefreshToken, reg.Roles...)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "unavailable").Inc()
		return nil, fmt.Errorf("register: %w: %v", domain.ErrBillingUnavailable, err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.logger.Info().Str("email", p.Email).Msg("user registered")
	return p, nil
}

// EnsureFresh returns p unchanged while its bearer token is valid. An expired
// token is refreshed when a refresh token is held; otherwise, or when the
// refresh fails, the session is over and domain.ErrSessionExpired is
// returned. The boolean reports whether a new principal was issued.
func (s *AuthService) EnsureFresh(ctx context.Context, p *domain.Principal, now time.Time) (*domain.Principal, bool, error) {
	if p == nil {
		return nil, false, domain.ErrUnauthenticated
	}

	expired, err := p.Expired(now)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
	}
	if !expired {
		return p, false, nil
	}

	refresh, err := domain.NeedsRefresh(p, now)
	if err != nil || !refresh {
		s.logger.Debug().Str("email", p.Email).Msg("token expired without refresh token")
		return nil, false, fmt.Errorf("%w: token expired", domain.ErrSessionExpired)
	}

	tokens, err := s.billing.RefreshToken(ctx, p.RefreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failed").Inc()
		s.logger.Warn().Err(err).Str("email", p.Email).Msg("token refresh failed")
		return nil, false, fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
	}

	refreshToken := tokens.RefreshToken
	if refreshToken == "" {
		refreshToken = p.RefreshToken
	}
	// Roles come from the new token only so a role revoked in billing is
	// dropped on the next refresh.
	fresh, err := domain.NewPrincipal(tokens.Token, refreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
	}

	metrics.TokenRefreshTotal.WithLabelValues("refreshed").Inc()
	return fresh, true, nil
}

// Profile fetches the billing account of p, balance included.
func (s *AuthService) Profile(ctx context.Context, p *domain.Principal) (*domain.BillingUser, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.billing.CurrentUser(ctx, p.Token)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", surface(err))
	}
	user.Roles = domain.NormalizeRoles(user.Roles)
	return user, nil
}

// Transactions returns the history of p oldest first. Payment rows are
// joined to the local catalog by course code.
func (s *AuthService) Transactions(ctx context.Context, p *domain.Principal) ([]ports.TransactionView, error) {
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	txs, err := s.billing.ListTransactions(ctx, p.Token, domain.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", surface(err))
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})

	joined := make(map[string]*domain.Course)
	views := make([]ports.TransactionView, 0, len(txs))
	for _, tx := range txs {
		view := ports.TransactionView{
			ID:         tx.ID,
			CreatedAt:  tx.CreatedAt,
			Type:       tx.Type.Label(),
			CourseCode: tx.CourseCode,
			Amount:     tx.Amount.StringFixed(2),
			ExpiresAt:  tx.ExpiresAt,
		}
		if tx.CourseCode != "" {
			course, ok := joined[tx.CourseCode]
			if !ok {
				course, err = s.courses.FindByCode(ctx, tx.CourseCode)
				if err != nil && !errors.Is(err, domain.ErrCourseNotFound) {
					return nil, fmt.Errorf("transactions: %w", err)
				}
				joined[tx.CourseCode] = course
			}
			view.Course = course
		}
		views = append(views, view)
	}
	return views, nil
}

// surface folds lower-layer failures into ErrBillingUnavailable so workflows
// only ever expose the classified taxonomy.
func surface(err error) error {
	if domain.IsBillingFailure(err) && !errors.Is(err, domain.ErrBillingUnavailable) {
		return fmt.Errorf("%w: %v", domain.ErrBillingUnavailable, err)
	}
	return err
}

func attemptResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid"
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		return "conflict"
	default:
		return "unavailable"
	}
}
