package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/websocket"
	"github.com/google/uuid"
)

// MockPlanRepository is a map-backed PlanRepository with the same version
// semantics as the Postgres implementation.
type MockPlanRepository struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*domain.Plan

	// SaveErr, when set, is returned by the next Save and then cleared
	SaveErr error
	// ListErr is returned by List when set
	ListErr error
	// AfterGet runs after GetByID has copied the plan, outside the lock
	AfterGet func(id uuid.UUID)

	SaveCalls int
}

// NewMockPlanRepository creates a new MockPlanRepository
func NewMockPlanRepository() *MockPlanRepository {
	return &MockPlanRepository{plans: make(map[uuid.UUID]*domain.Plan)}
}

// Create stores a new plan with version 1
func (m *MockPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plans[plan.ID]; exists {
		return fmt.Errorf("plan %s already exists", plan.ID)
	}
	plan.Version = 1
	m.plans[plan.ID] = plan.Clone()
	return nil
}

// GetByID returns a copy of the stored plan
func (m *MockPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	m.mu.Lock()
	plan, ok := m.plans[id]
	var out *domain.Plan
	if ok {
		out = plan.Clone()
	}
	hook := m.AfterGet
	m.mu.Unlock()

	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	if hook != nil {
		hook(id)
	}
	return out, nil
}

// List filters, orders newest first and paginates like the SQL query
func (m *MockPlanRepository) List(ctx context.Context, filter domain.PlanFilter) ([]*domain.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	search := strings.ToLower(filter.Search)

	var out []*domain.Plan
	for _, plan := range m.plans {
		if filter.CustomerID != "" && plan.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && domain.DerivePlanStatus(plan, asOf) != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(plan.ProductName), search) &&
			!strings.Contains(strings.ToLower(plan.CustomerName), search) {
			continue
		}
		out = append(out, plan.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domain.Plan{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Save replaces the stored plan when plan.Version matches, then bumps it
func (m *MockPlanRepository) Save(ctx context.Context, plan *domain.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++

	if m.SaveErr != nil {
		err := m.SaveErr
		m.SaveErr = nil
		return err
	}

	stored, ok := m.plans[plan.ID]
	if !ok {
		return domain.ErrPlanNotFound
	}
	if stored.Version != plan.Version {
		return domain.ErrConcurrentModification
	}
	plan.Version++
	m.plans[plan.ID] = plan.Clone()
	return nil
}

// Delete removes a plan and its installments
func (m *MockPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return domain.ErrPlanNotFound
	}
	delete(m.plans, id)
	return nil
}

// AddPlan stores a copy of plan directly (for test setup)
func (m *MockPlanRepository) AddPlan(plan *domain.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plan.Version == 0 {
		plan.Version = 1
	}
	m.plans[plan.ID] = plan.Clone()
}

// Stored returns a copy of the stored plan, or nil
func (m *MockPlanRepository) Stored(id uuid.UUID) *domain.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plan, ok := m.plans[id]; ok {
		return plan.Clone()
	}
	return nil
}

// BumpVersion simulates a write by another instance
func (m *MockPlanRepository) BumpVersion(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plan, ok := m.plans[id]; ok {
		plan.Version++
	}
}

// NewTestPlan builds a stored-shape plan with equal monthly installments of
// amount each, due on the 10th of consecutive months starting February 2025.
func NewTestPlan(customerID string, advance int64, amount int64, count int) *domain.Plan {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	plan := &domain.Plan{
		ID:               uuid.New(),
		CustomerID:       customerID,
		CustomerName:     "Test Customer",
		ProductName:      "Test Product",
		TotalAmount:      advance + amount*int64(count),
		AdvanceAmount:    advance,
		InstallmentCount: int32(count),
		InstallmentUnit:  domain.InstallmentUnitMonths,
		DueDay:           10,
		StartDate:        now,
		CreatedBy:        "auth0|staff",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := 1; i <= count; i++ {
		plan.Installments = append(plan.Installments, &domain.Installment{
			InstallmentNumber: int32(i),
			Amount:            amount,
			DueDate:           time.Date(2025, time.Month(1+i), 10, 0, 0, 0, 0, time.UTC),
			State:             domain.InstallmentStatePending,
			UpdatedAt:         now,
		})
	}
	return plan
}

// RecordingPublisher captures published events
type RecordingPublisher struct {
	mu          sync.Mutex
	Events      []websocket.Event
	CustomerIDs []string
}

// Publish implements websocket.EventPublisher
func (r *RecordingPublisher) Publish(customerID string, event websocket.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CustomerIDs = append(r.CustomerIDs, customerID)
	r.Events = append(r.Events, event)
}

// Types returns the published event types in order
func (r *RecordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}

// MockReceiptStorage keeps receipt objects in memory
type MockReceiptStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte

	UploadErr  error
	PresignErr error
}

// NewMockReceiptStorage creates a new MockReceiptStorage
func NewMockReceiptStorage() *MockReceiptStorage {
	return &MockReceiptStorage{Objects: make(map[string][]byte)}
}

// Upload implements storage.ReceiptStorage
func (m *MockReceiptStorage) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = buf.Bytes()
	return objectPath, nil
}

// Delete implements storage.ReceiptStorage
func (m *MockReceiptStorage) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Objects[objectPath]; !ok {
		return errors.New("object not found")
	}
	delete(m.Objects, objectPath)
	return nil
}

// GeneratePresignedURL implements storage.ReceiptStorage
func (m *MockReceiptStorage) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	return fmt.Sprintf("https://receipts.test/%s?expires=%d", objectPath, int(expiry.Seconds())), nil
}

// Count returns the number of stored objects
func (m *MockReceiptStorage) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}
