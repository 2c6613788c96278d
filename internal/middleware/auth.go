package middleware

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the profile claims from Auth0 JWT and keeps every
// other claim, since role and customer claims are namespaced per tenant.
type CustomClaims struct {
	Email string                 `json:"email"`
	Name  string                 `json:"name"`
	Extra map[string]interface{} `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler
func (c *CustomClaims) UnmarshalJSON(data []byte) error {
	type plain CustomClaims
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var extra map[string]interface{}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	*c = CustomClaims(p)
	c.Extra = extra
	return nil
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// Strings returns a claim as a list of strings. A scalar string claim is a
// one-element list.
func (c *CustomClaims) Strings(name string) []string {
	if c == nil || c.Extra == nil {
		return nil
	}
	switch v := c.Extra[name].(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// ClaimNames names the token claims carrying role and customer id
type ClaimNames struct {
	Role       string
	CustomerID string
}

// ResolveCaller builds the caller identity from validated claims.
// With several roles the most privileged one wins.
func ResolveCaller(subject string, claims *CustomClaims, names ClaimNames) domain.Caller {
	caller := domain.Caller{Subject: subject}

	for _, r := range claims.Strings(names.Role) {
		role := domain.Role(strings.ToLower(strings.TrimSpace(r)))
		switch {
		case role == domain.RoleAdmin:
			caller.Role = domain.RoleAdmin
		case role == domain.RoleManager && caller.Role != domain.RoleAdmin:
			caller.Role = domain.RoleManager
		case role == domain.RoleCustomer && caller.Role == "":
			caller.Role = domain.RoleCustomer
		}
	}

	if ids := claims.Strings(names.CustomerID); len(ids) > 0 {
		caller.CustomerID = ids[0]
	}
	return caller
}

// NewAuth0Validator builds the RS256 validator for an Auth0 tenant
func NewAuth0Validator(domain, audience string) (*validator.Validator, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	return validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// Auth0IDKey is the context key for the Auth0 user ID (subject)
	Auth0IDKey contextKey = "auth0_id"
	// CallerKey is the context key for the resolved domain.Caller
	CallerKey contextKey = "caller"
)

// TokenValidator validates a raw JWT
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator TokenValidator
	claims    ClaimNames
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domain, audience string, claims ClaimNames) (*AuthMiddleware, error) {
	jwtValidator, err := NewAuth0Validator(domain, audience)
	if err != nil {
		return nil, err
	}
	return NewAuthMiddlewareWithValidator(jwtValidator, claims), nil
}

// NewAuthMiddlewareWithValidator creates an AuthMiddleware around any validator
func NewAuthMiddlewareWithValidator(v TokenValidator, claims ClaimNames) *AuthMiddleware {
	return &AuthMiddleware{validator: v, claims: claims}
}

// Authenticate returns an Echo middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "invalid authorization header format")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "invalid claims")
			}

			auth0ID := validatedClaims.RegisteredClaims.Subject
			custom, _ := validatedClaims.CustomClaims.(*CustomClaims)
			caller := ResolveCaller(auth0ID, custom, m.claims)

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, Auth0IDKey, auth0ID)
			ctx = context.WithValue(ctx, CallerKey, caller)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireStaff rejects callers that are not admin or manager
func RequireStaff() echo.MiddlewareFunc {
	return requireRole(func(caller domain.Caller) bool { return caller.IsStaff() })
}

// RequireAdmin rejects callers that are not admin
func RequireAdmin() echo.MiddlewareFunc {
	return requireRole(func(caller domain.Caller) bool { return caller.IsAdmin() })
}

func requireRole(allowed func(domain.Caller) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := GetCaller(c)
			if !ok {
				return unauthorizedError(c, "authentication required")
			}
			if !allowed(caller) {
				log.Debug().Str("auth0_id", caller.Subject).Str("role", string(caller.Role)).Msg("Role check failed")
				return forbiddenError(c, "insufficient role")
			}
			return next(c)
		}
	}
}

// GetAuth0ID extracts the Auth0 user ID from the context
func GetAuth0ID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(Auth0IDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetCustomClaims extracts the custom claims from the context
func GetCustomClaims(c echo.Context) *CustomClaims {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		return custom
	}
	return nil
}

// GetCaller extracts the resolved caller from the context
func GetCaller(c echo.Context) (domain.Caller, bool) {
	caller, ok := c.Request().Context().Value(CallerKey).(domain.Caller)
	return caller, ok
}

// WithCaller stores a caller on the request, for tests and internal routes
func WithCaller(c echo.Context, caller domain.Caller) {
	ctx := context.WithValue(c.Request().Context(), CallerKey, caller)
	ctx = context.WithValue(ctx, Auth0IDKey, caller.Subject)
	c.SetRequest(c.Request().WithContext(ctx))
}
