package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the identity held by a session. Roles always contain RoleUser.
type Principal struct {
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

// NewPrincipal builds a principal from a bearer token issued by the billing
// service. Email and roles come from the token claims; extraRoles are merged
// in (the /register response carries its own role list).
func NewPrincipal(token, refreshToken string, extraRoles ...string) (*Principal, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(claims.Roles)+len(extraRoles))
	roles = append(roles, claims.Roles...)
	roles = append(roles, extraRoles...)

	return &Principal{
		Email:        claims.Subject,
		Roles:        NormalizeRoles(roles),
		Token:        token,
		RefreshToken: refreshToken,
	}, nil
}

// HasRole reports whether the principal holds role. RoleUser is always held.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range NormalizeRoles(p.Roles) {
		if r == role {
			return true
		}
	}
	return false
}

// IsSuperAdmin is a shorthand for HasRole(RoleSuperAdmin).
func (p *Principal) IsSuperAdmin() bool {
	return p.HasRole(RoleSuperAdmin)
}

// NormalizeRoles drops blanks and duplicates, keeps first-seen order and
// appends RoleUser when it is missing.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles)+1)
	out := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if _, ok := seen[RoleUser]; !ok {
		out = append(out, RoleUser)
	}
	return out
}

// --- Token claims ---

// TokenClaims is the decoded payload of a bearer token. It is derived on
// demand and never stored.
type TokenClaims struct {
	ExpiresAt time.Time
	Subject   string
	Roles     []string
}

type tokenPayload struct {
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Username  string           `json:"username"`
	Subject   string           `json:"sub"`
	Roles     []string         `json:"roles"`
}

// segmentParser only decodes segments; signatures are the billing service's
// business, the token is read as opaque claims.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// standard base64 alphabet → url alphabet
var base64URLReplacer = strings.NewReplacer("+", "-", "/", "_")

// DecodeClaims reads the payload segment of token without contacting the
// billing service. Any structural problem yields ErrInvalidToken.
func DecodeClaims(token string) (TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return TokenClaims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidToken, len(parts))
	}

	raw, err := segmentParser.DecodeSegment(base64URLReplacer.Replace(parts[1]))
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: payload is not base64: %v", ErrInvalidToken, err)
	}

	var payload tokenPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return TokenClaims{}, fmt.Errorf("%w: payload is not json: %v", ErrInvalidToken, err)
	}
	if payload.ExpiresAt == nil {
		return TokenClaims{}, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}

	subject := payload.Username
	if subject == "" {
		subject = payload.Subject
	}

	return TokenClaims{
		ExpiresAt: payload.ExpiresAt.Time,
		Subject:   subject,
		Roles:     payload.Roles,
	}, nil
}

// Expired reports whether the principal's bearer token expiry is at or
// before now.
func (p *Principal) Expired(now time.Time) (bool, error) {
	claims, err := DecodeClaims(p.Token)
	if err != nil {
		return false, err
	}
	return !claims.ExpiresAt.After(now), nil
}

// NeedsRefresh is true iff the bearer token has expired and a refresh token
// is available. An expired token without a refresh token is not refreshable;
// callers must check Expired and force re-authentication.
func NeedsRefresh(p *Principal, now time.Time) (bool, error) {
	expired, err := p.Expired(now)
	if err != nil {
		return false, err
	}
	return expired && p.RefreshToken != "", nil
}
