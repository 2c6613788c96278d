package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/dafibh/qist/qist-backend/internal/testutil"
	"github.com/labstack/echo/v4"
)

var (
	staffCaller    = domain.Caller{Subject: "auth0|staff", Role: domain.RoleManager}
	adminCaller    = domain.Caller{Subject: "auth0|admin", Role: domain.RoleAdmin}
	customerCaller = domain.Caller{Subject: "auth0|cust", Role: domain.RoleCustomer, CustomerID: "cust-1"}
)

// newRequestContext builds an echo context, attaching caller unless it is nil
func newRequestContext(method, target, body string, caller *domain.Caller) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		middleware.WithCaller(c, *caller)
	}
	return c, rec
}

func newTestPlanHandler() (*PlanHandler, *testutil.MockPlanRepository) {
	repo := testutil.NewMockPlanRepository()
	return NewPlanHandler(service.NewPlanService(repo, lock.NewMemoryLocker())), repo
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem: %v", err)
	}
	return problem
}

func TestCreatePlan_Success(t *testing.T) {
	handler, repo := newTestPlanHandler()

	reqBody := `{
		"customerId": "cust-1",
		"name": "Aisha",
		"productName": "Washing Machine",
		"totalAmount": 100000,
		"advanceAmount": 10000,
		"installmentCount": 3,
		"installmentUnit": "months",
		"startDate": "2025-01-15",
		"dueDate": 5
	}`
	c, rec := newRequestContext(http.MethodPost, "/api/v1/installments", reqBody, &staffCaller)

	if err := handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var response service.PlanDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.DueDay != 5 {
		t.Errorf("Expected legacy dueDate to set dueDay 5, got %d", response.DueDay)
	}
	if len(response.Installments) != 3 {
		t.Fatalf("Expected 3 installments, got %d", len(response.Installments))
	}
	if response.Installments[0].Amount != 30000 {
		t.Errorf("Expected first installment 30000, got %d", response.Installments[0].Amount)
	}
	if response.CreatedBy != "auth0|staff" {
		t.Errorf("Expected createdBy auth0|staff, got %s", response.CreatedBy)
	}
	if repo.Stored(response.ID) == nil {
		t.Error("Expected plan to be stored")
	}
}

func TestCreatePlan_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"totalAmount": "lots"`},
		{"bad start date", `{"customerId":"c","name":"n","productName":"p","totalAmount":100,"installmentCount":1,"installmentUnit":"months","startDate":"15/01/2025"}`},
		{"advance too large", `{"customerId":"c","name":"n","productName":"p","totalAmount":100,"advanceAmount":100,"installmentCount":1,"installmentUnit":"months","startDate":"2025-01-15"}`},
		{"bad unit", `{"customerId":"c","name":"n","productName":"p","totalAmount":100,"installmentCount":1,"installmentUnit":"years","startDate":"2025-01-15"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestPlanHandler()
			c, rec := newRequestContext(http.MethodPost, "/api/v1/installments", tt.body, &staffCaller)

			if err := handler.CreatePlan(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}
			if problem := decodeProblem(t, rec); problem.Type != ErrorTypeValidation {
				t.Errorf("Expected validation problem type, got %s", problem.Type)
			}
		})
	}
}

func TestCreatePlan_Unauthorized(t *testing.T) {
	handler, _ := newTestPlanHandler()
	c, rec := newRequestContext(http.MethodPost, "/api/v1/installments", `{}`, nil)

	if err := handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCreatePlan_CustomerForbidden(t *testing.T) {
	handler, _ := newTestPlanHandler()
	reqBody := `{"customerId":"cust-1","name":"n","productName":"p","totalAmount":100,"installmentCount":1,"installmentUnit":"months","startDate":"2025-01-15"}`
	c, rec := newRequestContext(http.MethodPost, "/api/v1/installments", reqBody, &customerCaller)

	if err := handler.CreatePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rec.Code)
	}
}

func TestPreviewPlan_Success(t *testing.T) {
	handler, repo := newTestPlanHandler()
	reqBody := `{"totalAmount":1000,"installmentCount":3,"installmentUnit":"months","startDate":"2025-01-31"}`
	c, rec := newRequestContext(http.MethodPost, "/api/v1/installments/preview", reqBody, &staffCaller)

	if err := handler.PreviewPlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result service.ScheduleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if result.PerInstallment != 334 || result.LastAmount != 332 {
		t.Errorf("Expected 334/332, got %d/%d", result.PerInstallment, result.LastAmount)
	}

	plans, _ := repo.List(c.Request().Context(), domain.PlanFilter{})
	if len(plans) != 0 {
		t.Errorf("Expected preview to store nothing, found %d plans", len(plans))
	}
}

func TestListPlans_Success(t *testing.T) {
	handler, repo := newTestPlanHandler()
	repo.AddPlan(testutil.NewTestPlan("cust-1", 0, 1000, 3))
	repo.AddPlan(testutil.NewTestPlan("cust-2", 0, 1000, 3))

	c, rec := newRequestContext(http.MethodGet, "/api/v1/installments?limit=500", "", &staffCaller)

	if err := handler.ListPlans(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response PlanListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Plans) != 2 {
		t.Errorf("Expected 2 plans, got %d", len(response.Plans))
	}
	if response.Limit != service.MaxPageSize {
		t.Errorf("Expected limit clamped to %d, got %d", service.MaxPageSize, response.Limit)
	}
}

func TestListPlans_CustomerSeesOwnPlans(t *testing.T) {
	handler, repo := newTestPlanHandler()
	repo.AddPlan(testutil.NewTestPlan("cust-1", 0, 1000, 3))
	repo.AddPlan(testutil.NewTestPlan("cust-2", 0, 1000, 3))

	c, rec := newRequestContext(http.MethodGet, "/api/v1/installments?customerId=cust-2", "", &customerCaller)

	if err := handler.ListPlans(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response PlanListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Plans) != 1 || response.Plans[0].CustomerID != "cust-1" {
		t.Errorf("Expected only cust-1's plan, got %+v", response.Plans)
	}
}

func TestListPlans_InvalidQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"negative limit", "/api/v1/installments?limit=-1"},
		{"non-numeric offset", "/api/v1/installments?offset=abc"},
		{"unknown status", "/api/v1/installments?status=late"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestPlanHandler()
			c, rec := newRequestContext(http.MethodGet, tt.target, "", &staffCaller)

			if err := handler.ListPlans(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestGetPlanDetails(t *testing.T) {
	handler, repo := newTestPlanHandler()
	plan := testutil.NewTestPlan("cust-2", 500, 1000, 3)
	repo.AddPlan(plan)

	tests := []struct {
		name       string
		planID     string
		caller     domain.Caller
		wantStatus int
	}{
		{"staff", plan.ID.String(), staffCaller, http.StatusOK},
		{"other customer", plan.ID.String(), customerCaller, http.StatusForbidden},
		{"invalid id", "not-a-uuid", staffCaller, http.StatusBadRequest},
		{"unknown plan", "6f1c2a8e-3b7d-4e59-9a0f-1d2c3b4a5e6f", staffCaller, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newRequestContext(http.MethodGet, "/api/v1/installments/details/"+tt.planID, "", &tt.caller)
			c.SetParamNames("planId")
			c.SetParamValues(tt.planID)

			if err := handler.GetPlanDetails(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestDeletePlan(t *testing.T) {
	handler, repo := newTestPlanHandler()
	plan := testutil.NewTestPlan("cust-1", 0, 1000, 3)
	repo.AddPlan(plan)
	planID := plan.ID.String()

	c, rec := newRequestContext(http.MethodDelete, "/api/v1/installments/"+planID, "", &staffCaller)
	c.SetParamNames("planId")
	c.SetParamValues(planID)
	if err := handler.DeletePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected manager delete to be forbidden, got %d", rec.Code)
	}

	c, rec = newRequestContext(http.MethodDelete, "/api/v1/installments/"+planID, "", &adminCaller)
	c.SetParamNames("planId")
	c.SetParamValues(planID)
	if err := handler.DeletePlan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
	if repo.Stored(plan.ID) != nil {
		t.Error("Expected plan to be removed")
	}
}

func TestCustomerSummary_HidesPaymentDetails(t *testing.T) {
	handler, repo := newTestPlanHandler()
	plan := testutil.NewTestPlan("cust-1", 0, 1000, 3)
	paid := int64(1000)
	method := domain.PaymentMethodCash
	notes := "paid at counter"
	plan.Installments[0].State = domain.InstallmentStatePaid
	plan.Installments[0].ActualPaidAmount = &paid
	plan.Installments[0].PaymentMethod = &method
	plan.Installments[0].Notes = &notes
	repo.AddPlan(plan)

	c, rec := newRequestContext(http.MethodGet, "/api/v1/installments/customer/cust-1", "", nil)
	c.SetParamNames("customerId")
	c.SetParamValues("cust-1")

	if err := handler.CustomerSummary(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "paid at counter") || strings.Contains(body, "paymentMethod") {
		t.Errorf("Expected payment details to be hidden, got %s", body)
	}

	var summaries []service.PublicPlanSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(summaries) != 1 || summaries[0].PaidAmount != 1000 {
		t.Errorf("Expected one summary with 1000 paid, got %+v", summaries)
	}
}
