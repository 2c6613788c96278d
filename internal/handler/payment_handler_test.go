package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/dafibh/qist/qist-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaymentHandler() (*PaymentHandler, *testutil.MockPlanRepository) {
	repo := testutil.NewMockPlanRepository()
	return NewPaymentHandler(service.NewReconciliationService(repo, lock.NewMemoryLocker())), repo
}

func TestPayInstallment_RedistributesOverpayment(t *testing.T) {
	handler, repo := newTestPaymentHandler()
	plan := testutil.NewTestPlan("cust-1", 0, 1000, 5)
	repo.AddPlan(plan)

	reqBody := `{"installmentNumber": 1, "paymentMethod": "cash", "customAmount": 1300, "notes": "early"}`
	c, rec := newRequestContext(http.MethodPut, "/api/v1/installments/"+plan.ID.String()+"/pay", reqBody, &staffCaller)
	c.SetParamNames("planId")
	c.SetParamValues(plan.ID.String())

	require.NoError(t, handler.PayInstallment(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "record", result.Operation)
	require.NotNil(t, result.Distribution)
	assert.Equal(t, int64(300), result.Distribution.Difference)
	assert.Equal(t, 4, result.Distribution.RemainingCount)
	assert.True(t, result.Distribution.IsExcess)

	stored := repo.Stored(plan.ID)
	require.NotNil(t, stored)
	assert.Equal(t, int64(1300), stored.Installments[0].Amount)
	for _, inst := range stored.Installments[1:] {
		assert.Equal(t, int64(925), inst.Amount)
	}
	assert.Equal(t, int64(5000), stored.LedgerTotal())
}

func TestPayInstallment_EditsPaidInstallment(t *testing.T) {
	handler, repo := newTestPaymentHandler()
	plan := testutil.NewTestPlan("cust-1", 0, 1000, 3)
	paid := int64(1000)
	method := domain.PaymentMethodCash
	plan.Installments[0].State = domain.InstallmentStatePaid
	plan.Installments[0].ActualPaidAmount = &paid
	plan.Installments[0].PaymentMethod = &method
	repo.AddPlan(plan)

	reqBody := `{"installmentNumber": 1, "paymentMethod": "bank_transfer", "notes": "ref 4411"}`
	c, rec := newRequestContext(http.MethodPut, "/api/v1/installments/"+plan.ID.String()+"/pay", reqBody, &staffCaller)
	c.SetParamNames("planId")
	c.SetParamValues(plan.ID.String())

	require.NoError(t, handler.PayInstallment(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "edit", result.Operation)
	assert.Nil(t, result.Distribution)

	stored := repo.Stored(plan.ID)
	require.NotNil(t, stored.Installments[0].PaymentMethod)
	assert.Equal(t, domain.PaymentMethodBankTransfer, *stored.Installments[0].PaymentMethod)
	assert.Equal(t, int64(1000), stored.Installments[1].Amount)
}

func TestPayInstallment_Errors(t *testing.T) {
	tests := []struct {
		name       string
		planID     string
		body       string
		caller     domain.Caller
		wantStatus int
		wantType   string
	}{
		{"invalid plan id", "nope", `{"installmentNumber":1,"paymentMethod":"cash"}`, staffCaller, http.StatusBadRequest, ErrorTypeValidation},
		{"missing installment number", "", `{"paymentMethod":"cash"}`, staffCaller, http.StatusBadRequest, ErrorTypeValidation},
		{"bad due date", "", `{"installmentNumber":1,"paymentMethod":"cash","dueDate":"soon"}`, staffCaller, http.StatusBadRequest, ErrorTypeValidation},
		{"non-positive amount", "", `{"installmentNumber":1,"paymentMethod":"cash","customAmount":0}`, staffCaller, http.StatusBadRequest, ErrorTypeValidation},
		{"unknown method", "", `{"installmentNumber":1,"paymentMethod":"barter"}`, staffCaller, http.StatusBadRequest, ErrorTypeValidation},
		{"installment out of range", "", `{"installmentNumber":9,"paymentMethod":"cash"}`, staffCaller, http.StatusNotFound, ErrorTypeNotFound},
		{"unknown plan", uuid.NewString(), `{"installmentNumber":1,"paymentMethod":"cash"}`, staffCaller, http.StatusNotFound, ErrorTypeNotFound},
		{"customer caller", "", `{"installmentNumber":1,"paymentMethod":"cash"}`, customerCaller, http.StatusForbidden, ErrorTypeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, repo := newTestPaymentHandler()
			plan := testutil.NewTestPlan("cust-1", 0, 1000, 3)
			repo.AddPlan(plan)

			planID := tt.planID
			if planID == "" {
				planID = plan.ID.String()
			}
			c, rec := newRequestContext(http.MethodPut, "/api/v1/installments/"+planID+"/pay", tt.body, &tt.caller)
			c.SetParamNames("planId")
			c.SetParamValues(planID)

			require.NoError(t, handler.PayInstallment(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, decodeProblem(t, rec).Type)

			assert.Equal(t, int64(1), repo.Stored(plan.ID).Version, "failed payment must not save")
		})
	}
}

func TestMarkUnpaid(t *testing.T) {
	handler, repo := newTestPaymentHandler()
	plan := testutil.NewTestPlan("cust-1", 0, 1000, 3)
	paid := int64(1200)
	plan.Installments[0].State = domain.InstallmentStatePaid
	plan.Installments[0].Amount = 1200
	plan.Installments[0].ActualPaidAmount = &paid
	plan.Installments[1].Amount = 900
	plan.Installments[2].Amount = 900
	repo.AddPlan(plan)

	c, rec := newRequestContext(http.MethodPut, "/api/v1/installments/"+plan.ID.String()+"/unpay", `{"installmentNumber": 1}`, &staffCaller)
	c.SetParamNames("planId")
	c.SetParamValues(plan.ID.String())

	require.NoError(t, handler.MarkUnpaid(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored := repo.Stored(plan.ID)
	assert.Equal(t, domain.InstallmentStatePending, stored.Installments[0].State)
	assert.Nil(t, stored.Installments[0].ActualPaidAmount)
	assert.Equal(t, int64(900), stored.Installments[1].Amount)

	c, rec = newRequestContext(http.MethodPut, "/api/v1/installments/"+plan.ID.String()+"/unpay", `{"installmentNumber": 1}`, &staffCaller)
	c.SetParamNames("planId")
	c.SetParamValues(plan.ID.String())

	require.NoError(t, handler.MarkUnpaid(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
