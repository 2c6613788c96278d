package websocket

import (
	"context"
	"errors"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/middleware"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrNoChannel is returned when the caller's role has no event channel
var ErrNoChannel = errors.New("caller has no event channel")

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections
type Auth0JWTValidator struct {
	validator middleware.TokenValidator
	claims    middleware.ClaimNames
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domain, audience string, claims middleware.ClaimNames) (*Auth0JWTValidator, error) {
	v, err := middleware.NewAuth0Validator(domain, audience)
	if err != nil {
		return nil, err
	}
	return &Auth0JWTValidator{validator: v, claims: claims}, nil
}

// ValidateToken validates a JWT token and returns the caller it identifies
func (v *Auth0JWTValidator) ValidateToken(token string) (domain.Caller, error) {
	claims, err := v.validator.ValidateToken(context.Background(), token)
	if err != nil {
		return domain.Caller{}, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return domain.Caller{}, ErrInvalidToken
	}

	custom, _ := validatedClaims.CustomClaims.(*middleware.CustomClaims)
	return middleware.ResolveCaller(validatedClaims.RegisteredClaims.Subject, custom, v.claims), nil
}

// ChannelFor returns the channel a caller may subscribe to
func ChannelFor(caller domain.Caller) (string, error) {
	if caller.IsStaff() {
		return StaffChannel, nil
	}
	if caller.Role == domain.RoleCustomer && caller.CustomerID != "" {
		return CustomerChannel(caller.CustomerID), nil
	}
	return "", ErrNoChannel
}
