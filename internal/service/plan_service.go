package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/metrics"
	"github.com/dafibh/qist/qist-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPageSize applies when a listing does not ask for a limit
	DefaultPageSize = 50
	// MaxPageSize caps listing limits
	MaxPageSize = 200
)

// PlanService creates, reads and deletes installment plans
type PlanService struct {
	planRepo       domain.PlanRepository
	locker         lock.Locker
	eventPublisher websocket.EventPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo domain.PlanRepository, locker lock.Locker) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		locker:   locker,
		now:      time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PlanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (s *PlanService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *PlanService) publishEvent(customerID string, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(customerID, event)
	}
}

// CreatePlanInput contains input for creating a plan
type CreatePlanInput struct {
	CustomerID         string
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	CustomerAddress    string
	ProductName        string
	ProductDescription string
	Schedule           ScheduleInput
}

// CreatePlan validates the input, generates the schedule and stores the plan
func (s *PlanService) CreatePlan(ctx context.Context, caller domain.Caller, input CreatePlanInput) (*PlanDetails, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}

	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customerId is required", domain.ErrInvalidPlan)
	}
	productName := strings.TrimSpace(input.ProductName)
	if productName == "" {
		return nil, fmt.Errorf("%w: productName is required", domain.ErrInvalidPlan)
	}
	if len(productName) > domain.MaxProductNameLength {
		return nil, fmt.Errorf("%w: productName must be %d characters or less", domain.ErrInvalidPlan, domain.MaxProductNameLength)
	}

	now := s.now().UTC()
	schedule, err := GenerateSchedule(input.Schedule, now)
	if err != nil {
		return nil, err
	}

	plan := &domain.Plan{
		ID:                 uuid.New(),
		CustomerID:         customerID,
		CustomerName:       strings.TrimSpace(input.CustomerName),
		CustomerEmail:      strings.TrimSpace(input.CustomerEmail),
		CustomerPhone:      strings.TrimSpace(input.CustomerPhone),
		CustomerAddress:    strings.TrimSpace(input.CustomerAddress),
		ProductName:        productName,
		ProductDescription: strings.TrimSpace(input.ProductDescription),
		TotalAmount:        input.Schedule.TotalAmount,
		AdvanceAmount:      input.Schedule.AdvanceAmount,
		InstallmentCount:   input.Schedule.InstallmentCount,
		InstallmentUnit:    input.Schedule.InstallmentUnit,
		DueDay:             schedule.DueDay,
		StartDate:          domain.StartOfDay(input.Schedule.StartDate),
		Installments:       schedule.Installments,
		CreatedBy:          caller.Subject,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.metrics.PlanCreated()

	log.Info().
		Str("plan_id", plan.ID.String()).
		Str("customer_id", plan.CustomerID).
		Int64("total_amount", plan.TotalAmount).
		Int32("installment_count", plan.InstallmentCount).
		Str("by", caller.Subject).
		Msg("Plan created")

	details := NewPlanDetails(plan, now)
	s.publishEvent(plan.CustomerID, websocket.PlanCreated(plan.ID.String(), details))
	return details, nil
}

// PreviewPlan returns the schedule a plan would get without storing it
func (s *PlanService) PreviewPlan(input ScheduleInput) (*ScheduleResult, error) {
	return GenerateSchedule(input, s.now().UTC())
}

// GetPlan returns the plan with derived statuses. Customers may only read
// their own plans.
func (s *PlanService) GetPlan(ctx context.Context, caller domain.Caller, id uuid.UUID) (*PlanDetails, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanView(plan) {
		return nil, domain.ErrForbidden
	}
	return NewPlanDetails(plan, s.now()), nil
}

// ListPlans returns plans matching filter. Customers only ever see their own
// plans whatever the filter says.
func (s *PlanService) ListPlans(ctx context.Context, caller domain.Caller, filter domain.PlanFilter) ([]*PlanListItem, error) {
	switch {
	case caller.IsStaff():
	case caller.Role == domain.RoleCustomer && caller.CustomerID != "":
		filter.CustomerID = caller.CustomerID
	default:
		return nil, domain.ErrForbidden
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidPlan, filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)

	now := s.now()
	filter.AsOf = now

	plans, err := s.planRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*PlanListItem, len(plans))
	for i, plan := range plans {
		items[i] = NewPlanListItem(plan, now)
	}
	return items, nil
}

// CustomerSummary returns the public summary of a customer's plans. It
// requires no caller and exposes no payment or contact details.
func (s *PlanService) CustomerSummary(ctx context.Context, customerID string) ([]*PublicPlanSummary, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customerId is required", domain.ErrInvalidPlan)
	}

	now := s.now()
	plans, err := s.planRepo.List(ctx, domain.PlanFilter{CustomerID: customerID, AsOf: now, Limit: MaxPageSize})
	if err != nil {
		return nil, err
	}

	out := make([]*PublicPlanSummary, len(plans))
	for i, plan := range plans {
		out[i] = NewPublicPlanSummary(plan, now)
	}
	return out, nil
}

// DeletePlan removes a plan and its installments. Admin only.
func (s *PlanService) DeletePlan(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}

	lockCtx, cancel := context.WithTimeout(ctx, DefaultLockTimeout)
	defer cancel()
	release, err := s.locker.Lock(lockCtx, id.String())
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("%w: %v", domain.ErrConcurrentModification, err)
		}
		return err
	}
	defer release()

	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.planRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.PlanDeleted()

	log.Info().Str("plan_id", id.String()).Str("by", caller.Subject).Msg("Plan deleted")
	s.publishEvent(plan.CustomerID, websocket.PlanDeleted(id.String(), map[string]string{"id": id.String()}))
	return nil
}
