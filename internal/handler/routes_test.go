package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/metrics"
	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/dafibh/qist/qist-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

var routeClaimNames = middleware.ClaimNames{
	Role:       "https://qist.app/roles",
	CustomerID: "https://qist.app/customer_id",
}

// tokenValidator maps fixed bearer tokens to roles
type tokenValidator struct{}

func (tokenValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	roles := map[string]string{"admin-token": "admin", "manager-token": "manager", "customer-token": "customer"}
	role, ok := roles[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|" + role},
		CustomClaims: &middleware.CustomClaims{Extra: map[string]interface{}{
			routeClaimNames.Role:       []interface{}{role},
			routeClaimNames.CustomerID: "cust-1",
		}},
	}, nil
}

func newTestServer(t *testing.T) (*echo.Echo, *testutil.MockPlanRepository) {
	t.Helper()
	repo := testutil.NewMockPlanRepository()
	locker := lock.NewMemoryLocker()

	limiter := middleware.NewRateLimiterWithConfig(600, 100)
	t.Cleanup(limiter.Stop)

	e := echo.New()
	RegisterRoutes(e,
		middleware.NewAuthMiddlewareWithValidator(tokenValidator{}, routeClaimNames),
		limiter,
		NewPlanHandler(service.NewPlanService(repo, locker)),
		NewPaymentHandler(service.NewReconciliationService(repo, locker)),
		NewReceiptHandler(service.NewReceiptService(testutil.NewMockReceiptStorage(), repo, locker)),
	)
	RegisterOperationalRoutes(e, metrics.New().Handler())
	return e, repo
}

func TestRoutes_Authorization(t *testing.T) {
	e, repo := newTestServer(t)
	plan := testutil.NewTestPlan("cust-1", 0, 1000, 3)
	repo.AddPlan(plan)
	planPath := "/api/v1/installments/" + plan.ID.String()

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{"public summary needs no token", http.MethodGet, "/api/v1/installments/customer/cust-1", "", "", http.StatusOK},
		{"list without token", http.MethodGet, "/api/v1/installments", "", "", http.StatusUnauthorized},
		{"list with bad token", http.MethodGet, "/api/v1/installments", "forged", "", http.StatusUnauthorized},
		{"customer lists own plans", http.MethodGet, "/api/v1/installments", "customer-token", "", http.StatusOK},
		{"customer reads own plan", http.MethodGet, "/api/v1/installments/details/" + plan.ID.String(), "customer-token", "", http.StatusOK},
		{"customer cannot pay", http.MethodPut, planPath + "/pay", "customer-token", `{"installmentNumber":1,"paymentMethod":"cash"}`, http.StatusForbidden},
		{"customer cannot preview", http.MethodPost, "/api/v1/installments/preview", "customer-token", `{}`, http.StatusForbidden},
		{"manager cannot delete", http.MethodDelete, planPath, "manager-token", "", http.StatusForbidden},
		{"manager pays", http.MethodPut, planPath + "/pay", "manager-token", `{"installmentNumber":1,"paymentMethod":"cash"}`, http.StatusOK},
		{"admin deletes", http.MethodDelete, planPath, "admin-token", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_Operational(t *testing.T) {
	e, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "qist_")
}
