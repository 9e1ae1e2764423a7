package domain

import "github.com/shopspring/decimal"

const (
	// RoleUser is held by every authenticated principal.
	RoleUser = "ROLE_USER"
	// RoleSuperAdmin may manage the course catalog and read any lesson.
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
)

// Credentials are the username/password pair sent to the billing service.
// They are never persisted.
type Credentials struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// BillingUser is the account record owned by the billing service.
// It is fetched per request and never cached.
type BillingUser struct {
	Username string          `json:"username" validate:"required,email"`
	Balance  decimal.Decimal `json:"balance"`
	Roles    []string        `json:"roles"`
}

// AuthTokens is the billing response to /auth and /token/refresh.
type AuthTokens struct {
	Token        string `json:"token"         validate:"required"`
	RefreshToken string `json:"refresh_token"`
}

// Registration is the billing response to /register.
type Registration struct {
	Token        string   `json:"token" validate:"required"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	Roles        []string `json:"roles"`
}
