package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/dafibh/qist/qist-backend/internal/testutil"
	"github.com/labstack/echo/v4"
)

func receiptPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newReceiptUploadContext(t *testing.T, planID, number, filename string, data []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if data != nil {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/installments/"+planID+"/installments/"+number+"/receipt", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("planId", "number")
	c.SetParamValues(planID, number)
	middleware.WithCaller(c, staffCaller)
	return c, rec
}

func newTestReceiptHandler(enabled bool) (*ReceiptHandler, *testutil.MockPlanRepository, *testutil.MockReceiptStorage) {
	repo := testutil.NewMockPlanRepository()
	store := testutil.NewMockReceiptStorage()
	var svc *service.ReceiptService
	if enabled {
		svc = service.NewReceiptService(store, repo, lock.NewMemoryLocker())
	} else {
		svc = service.NewReceiptService(nil, repo, lock.NewMemoryLocker())
	}
	return NewReceiptHandler(svc), repo, store
}

func paidTestPlan() *domain.Plan {
	plan := testutil.NewTestPlan("cust-1", 0, 1000, 3)
	paid := int64(1000)
	method := domain.PaymentMethodCash
	plan.Installments[0].State = domain.InstallmentStatePaid
	plan.Installments[0].ActualPaidAmount = &paid
	plan.Installments[0].PaymentMethod = &method
	return plan
}

func TestUploadReceipt_Success(t *testing.T) {
	handler, repo, store := newTestReceiptHandler(true)
	plan := paidTestPlan()
	repo.AddPlan(plan)

	c, rec := newReceiptUploadContext(t, plan.ID.String(), "1", "receipt.png", receiptPNG(t, 120, 80))
	if err := handler.UploadReceipt(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var info service.ReceiptInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if info.InstallmentNumber != 1 || info.Path == "" {
		t.Errorf("Unexpected receipt info %+v", info)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 stored object, got %d", store.Count())
	}
	stored := repo.Stored(plan.ID)
	if stored.Installments[0].ReceiptPath == nil || *stored.Installments[0].ReceiptPath != info.Path {
		t.Errorf("Expected receipt path %s on installment", info.Path)
	}
}

func TestUploadReceipt_Errors(t *testing.T) {
	tests := []struct {
		name       string
		number     string
		filename   string
		data       func(t *testing.T) []byte
		wantStatus int
	}{
		{"no file", "1", "", func(t *testing.T) []byte { return nil }, http.StatusBadRequest},
		{"bad number", "zero", "r.png", func(t *testing.T) []byte { return receiptPNG(t, 100, 100) }, http.StatusBadRequest},
		{"wrong extension", "1", "r.gif", func(t *testing.T) []byte { return receiptPNG(t, 100, 100) }, http.StatusBadRequest},
		{"too small", "1", "r.png", func(t *testing.T) []byte { return receiptPNG(t, 20, 20) }, http.StatusBadRequest},
		{"not an image", "1", "r.png", func(t *testing.T) []byte { return []byte("definitely not a png") }, http.StatusBadRequest},
		{"pending installment", "2", "r.png", func(t *testing.T) []byte { return receiptPNG(t, 100, 100) }, http.StatusConflict},
		{"missing installment", "9", "r.png", func(t *testing.T) []byte { return receiptPNG(t, 100, 100) }, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, repo, store := newTestReceiptHandler(true)
			plan := paidTestPlan()
			repo.AddPlan(plan)

			c, rec := newReceiptUploadContext(t, plan.ID.String(), tt.number, tt.filename, tt.data(t))
			if err := handler.UploadReceipt(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if store.Count() != 0 {
				t.Errorf("Expected no stored objects, got %d", store.Count())
			}
		})
	}
}

func TestUploadReceipt_StorageDisabled(t *testing.T) {
	handler, repo, _ := newTestReceiptHandler(false)
	plan := paidTestPlan()
	repo.AddPlan(plan)

	c, rec := newReceiptUploadContext(t, plan.ID.String(), "1", "r.png", receiptPNG(t, 100, 100))
	if err := handler.UploadReceipt(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
	if problem := decodeProblem(t, rec); problem.Type != ErrorTypeUnavailable {
		t.Errorf("Expected unavailable problem type, got %s", problem.Type)
	}
}

func TestGetReceipt(t *testing.T) {
	handler, repo, _ := newTestReceiptHandler(true)
	plan := paidTestPlan()
	path := "receipts/" + plan.ID.String() + "/1.jpg"
	plan.Installments[0].ReceiptPath = &path
	repo.AddPlan(plan)

	tests := []struct {
		name       string
		number     string
		caller     domain.Caller
		wantStatus int
	}{
		{"staff", "1", staffCaller, http.StatusOK},
		{"plan owner", "1", customerCaller, http.StatusOK},
		{"other customer", "1", domain.Caller{Subject: "auth0|x", Role: domain.RoleCustomer, CustomerID: "cust-9"}, http.StatusForbidden},
		{"no receipt", "2", staffCaller, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/installments/" + plan.ID.String() + "/installments/" + tt.number + "/receipt"
			c, rec := newRequestContext(http.MethodGet, target, "", &tt.caller)
			c.SetParamNames("planId", "number")
			c.SetParamValues(plan.ID.String(), tt.number)

			if err := handler.GetReceipt(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var info service.ReceiptInfo
			if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if info.URL != "https://receipts.test/"+path+"?expires=900" {
				t.Errorf("Unexpected URL %s", info.URL)
			}
		})
	}
}
