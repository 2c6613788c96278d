package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/labstack/echo/v4"
)

var testClaimNames = ClaimNames{
	Role:       "https://qist.app/roles",
	CustomerID: "https://qist.app/customer_id",
}

// fakeValidator returns fixed claims for the token "good"
type fakeValidator struct {
	claims *validator.ValidatedClaims
}

func (f *fakeValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return f.claims, nil
}

func decodeClaims(t *testing.T, raw string) *CustomClaims {
	t.Helper()
	var claims CustomClaims
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		t.Fatalf("Failed to decode claims: %v", err)
	}
	return &claims
}

func TestCustomClaims_UnmarshalKeepsNamespacedClaims(t *testing.T) {
	claims := decodeClaims(t, `{
		"email": "ops@example.com",
		"name": "Ops",
		"https://qist.app/roles": ["manager"],
		"https://qist.app/customer_id": "cust-9"
	}`)

	if claims.Email != "ops@example.com" {
		t.Errorf("Expected email 'ops@example.com', got %q", claims.Email)
	}
	if got := claims.Strings("https://qist.app/roles"); len(got) != 1 || got[0] != "manager" {
		t.Errorf("Expected roles [manager], got %v", got)
	}
	if got := claims.Strings("https://qist.app/customer_id"); len(got) != 1 || got[0] != "cust-9" {
		t.Errorf("Expected customer id [cust-9], got %v", got)
	}
	if got := claims.Strings("missing"); got != nil {
		t.Errorf("Expected nil for missing claim, got %v", got)
	}
}

func TestResolveCaller(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		expectedRole domain.Role
		expectedCust string
	}{
		{
			name:         "single admin role",
			raw:          `{"https://qist.app/roles": "admin"}`,
			expectedRole: domain.RoleAdmin,
		},
		{
			name:         "most privileged role wins",
			raw:          `{"https://qist.app/roles": ["customer", "manager"]}`,
			expectedRole: domain.RoleManager,
		},
		{
			name:         "admin beats manager regardless of order",
			raw:          `{"https://qist.app/roles": ["admin", "manager"]}`,
			expectedRole: domain.RoleAdmin,
		},
		{
			name:         "customer with id",
			raw:          `{"https://qist.app/roles": ["Customer"], "https://qist.app/customer_id": "cust-1"}`,
			expectedRole: domain.RoleCustomer,
			expectedCust: "cust-1",
		},
		{
			name:         "unknown role yields no role",
			raw:          `{"https://qist.app/roles": ["investor"]}`,
			expectedRole: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := ResolveCaller("auth0|x", decodeClaims(t, tt.raw), testClaimNames)
			if caller.Role != tt.expectedRole {
				t.Errorf("Expected role %q, got %q", tt.expectedRole, caller.Role)
			}
			if caller.CustomerID != tt.expectedCust {
				t.Errorf("Expected customer %q, got %q", tt.expectedCust, caller.CustomerID)
			}
			if caller.Subject != "auth0|x" {
				t.Errorf("Expected subject 'auth0|x', got %q", caller.Subject)
			}
		})
	}
}

func TestResolveCaller_NilClaims(t *testing.T) {
	caller := ResolveCaller("auth0|x", nil, testClaimNames)
	if caller.Role != "" || caller.IsStaff() {
		t.Errorf("Expected no role, got %q", caller.Role)
	}
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	e := echo.New()
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|staff"},
		CustomClaims:     decodeClaims(t, `{"https://qist.app/roles": ["manager"]}`),
	}
	m := NewAuthMiddlewareWithValidator(&fakeValidator{claims: claims}, testClaimNames)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", "invalid-token", http.StatusUnauthorized},
		{"wrong prefix", "Basic good", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen domain.Caller
			handler := m.Authenticate()(func(c echo.Context) error {
				seen, _ = GetCaller(c)
				return c.String(http.StatusOK, "ok")
			})

			if err := handler(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedStatus == http.StatusOK {
				if seen.Role != domain.RoleManager || seen.Subject != "auth0|staff" {
					t.Errorf("Unexpected caller %+v", seen)
				}
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name           string
		guard          echo.MiddlewareFunc
		caller         *domain.Caller
		expectedStatus int
	}{
		{"staff guard admits manager", RequireStaff(), &domain.Caller{Role: domain.RoleManager}, http.StatusOK},
		{"staff guard rejects customer", RequireStaff(), &domain.Caller{Role: domain.RoleCustomer, CustomerID: "c"}, http.StatusForbidden},
		{"admin guard rejects manager", RequireAdmin(), &domain.Caller{Role: domain.RoleManager}, http.StatusForbidden},
		{"admin guard admits admin", RequireAdmin(), &domain.Caller{Role: domain.RoleAdmin}, http.StatusOK},
		{"missing caller", RequireStaff(), nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.caller != nil {
				WithCaller(c, *tt.caller)
			}

			handler := tt.guard(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})
			if err := handler(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
		})
	}
}

func TestGetAuth0ID(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if GetAuth0ID(c) != "" {
		t.Error("Expected empty auth0 id")
	}

	WithCaller(c, domain.Caller{Subject: "auth0|12345", Role: domain.RoleAdmin})
	if got := GetAuth0ID(c); got != "auth0|12345" {
		t.Errorf("Expected %q, got %q", "auth0|12345", got)
	}
}

func TestGetCustomClaims(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if GetCustomClaims(c) != nil {
		t.Error("Expected nil, got custom claims")
	}

	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|test"},
		CustomClaims:     &CustomClaims{Email: "test@example.com"},
	}
	ctx := context.WithValue(c.Request().Context(), ClaimsKey, claims)
	c.SetRequest(c.Request().WithContext(ctx))

	result := GetCustomClaims(c)
	if result == nil || result.Email != "test@example.com" {
		t.Errorf("Expected custom claims with email, got %+v", result)
	}
}
