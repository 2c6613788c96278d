package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/metrics"
	"github.com/dafibh/qist/qist-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultLockTimeout bounds how long a mutation waits for the plan lock
const DefaultLockTimeout = 5 * time.Second

// Payment operation names used in metrics and logs
const (
	OperationRecord = "record"
	OperationEdit   = "edit"
	OperationUnpay  = "unpay"
)

// PaymentResult is the outcome of a payment mutation
type PaymentResult struct {
	Success      bool                        `json:"success"`
	Operation    string                      `json:"operation"`
	Installment  InstallmentView             `json:"installment"`
	Distribution *domain.Distribution        `json:"distribution,omitempty"`
	Warning      *domain.UnabsorbedShortfall `json:"warning,omitempty"`
	Plan         *domain.Plan                `json:"-"`
}

// ReconciliationService records, edits and reverts installment payments.
// Each call holds the plan's lock while it loads, mutates a private copy and
// saves it, so a failed call leaves the stored plan untouched.
type ReconciliationService struct {
	planRepo       domain.PlanRepository
	locker         lock.Locker
	lockTimeout    time.Duration
	eventPublisher websocket.EventPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(planRepo domain.PlanRepository, locker lock.Locker) *ReconciliationService {
	return &ReconciliationService{
		planRepo:    planRepo,
		locker:      locker,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ReconciliationService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (s *ReconciliationService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetLockTimeout overrides DefaultLockTimeout
func (s *ReconciliationService) SetLockTimeout(d time.Duration) {
	if d > 0 {
		s.lockTimeout = d
	}
}

func (s *ReconciliationService) publishEvent(plan *domain.Plan, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(plan.CustomerID, event)
	}
}

// RecordPayment marks a pending installment paid and redistributes any
// difference from the scheduled amount over the pending installments after it.
func (s *ReconciliationService) RecordPayment(ctx context.Context, caller domain.Caller, planID uuid.UUID, input PaymentInput) (*PaymentResult, error) {
	return s.pay(ctx, caller, planID, input, OperationRecord)
}

// EditPayment replaces the payment details of an already paid installment
func (s *ReconciliationService) EditPayment(ctx context.Context, caller domain.Caller, planID uuid.UUID, input PaymentInput) (*PaymentResult, error) {
	return s.pay(ctx, caller, planID, input, OperationEdit)
}

// Pay records the payment when the installment is pending and edits it when
// it is already paid. The choice is made under the plan lock.
func (s *ReconciliationService) Pay(ctx context.Context, caller domain.Caller, planID uuid.UUID, input PaymentInput) (*PaymentResult, error) {
	return s.pay(ctx, caller, planID, input, "")
}

func (s *ReconciliationService) pay(ctx context.Context, caller domain.Caller, planID uuid.UUID, input PaymentInput, operation string) (*PaymentResult, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if err := validatePaymentInput(input, operation == OperationRecord); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &PaymentResult{Success: true, Operation: operation}

	plan, err := s.mutate(ctx, planID, func(plan *domain.Plan, now time.Time) error {
		op := operation
		if op == "" {
			op = OperationRecord
			if target, err := plan.Installment(input.InstallmentNumber); err == nil && target.IsPaid() {
				op = OperationEdit
			}
		}
		result.Operation = op

		var target *domain.Installment
		var err error
		if op == OperationEdit {
			target, err = applyEditPayment(plan, input, now)
		} else {
			target, result.Distribution, err = applyRecordPayment(plan, input, now)
		}
		if err != nil {
			return err
		}
		result.Installment = NewInstallmentView(target, now)
		result.Warning = shortfallWarning(result.Distribution)
		return nil
	})
	s.observe(result.Operation, start, err)
	if err != nil {
		return nil, err
	}
	result.Plan = plan

	logEvent := log.Info().
		Str("plan_id", planID.String()).
		Str("operation", result.Operation).
		Int32("installment_number", input.InstallmentNumber).
		Str("by", caller.Subject)
	if d := result.Distribution; d != nil {
		logEvent = logEvent.Int64("difference", d.Difference).Int("remaining_count", d.RemainingCount)
		s.metrics.Redistributed(d.RemainingCount)
	}
	logEvent.Msg("Payment applied")

	if result.Warning != nil {
		s.metrics.UnabsorbedShortfall()
		log.Warn().
			Str("plan_id", planID.String()).
			Int64("unabsorbed", result.Warning.Amount).
			Msg("Payment difference not fully redistributed")
	}

	if result.Operation == OperationEdit {
		s.publishEvent(plan, websocket.PaymentEdited(planID.String(), result))
	} else {
		s.publishEvent(plan, websocket.PaymentRecorded(planID.String(), result))
	}
	return result, nil
}

// MarkUnpaid reverts a paid installment to pending with its scheduled amount.
// Amounts redistributed onto other installments when it was paid stay as they are.
func (s *ReconciliationService) MarkUnpaid(ctx context.Context, caller domain.Caller, planID uuid.UUID, installmentNumber int32) (*PaymentResult, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}

	start := time.Now()
	result := &PaymentResult{Success: true, Operation: OperationUnpay}

	plan, err := s.mutate(ctx, planID, func(plan *domain.Plan, now time.Time) error {
		target, err := applyMarkUnpaid(plan, installmentNumber, now)
		if err != nil {
			return err
		}
		result.Installment = NewInstallmentView(target, now)
		return nil
	})
	s.observe(OperationUnpay, start, err)
	if err != nil {
		return nil, err
	}
	result.Plan = plan

	log.Info().
		Str("plan_id", planID.String()).
		Int32("installment_number", installmentNumber).
		Str("by", caller.Subject).
		Msg("Payment reverted")

	s.publishEvent(plan, websocket.PaymentReverted(planID.String(), result))
	return result, nil
}

// mutate serialises fn against other mutations of the same plan. fn works on
// a private copy; nothing is stored unless it returns nil and Save succeeds.
func (s *ReconciliationService) mutate(ctx context.Context, planID uuid.UUID, fn func(plan *domain.Plan, now time.Time) error) (*domain.Plan, error) {
	return mutatePlan(ctx, s.planRepo, s.locker, s.lockTimeout, s.now, planID, fn)
}

func mutatePlan(ctx context.Context, repo domain.PlanRepository, locker lock.Locker, timeout time.Duration, clock func() time.Time, planID uuid.UUID, fn func(plan *domain.Plan, now time.Time) error) (*domain.Plan, error) {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	release, err := locker.Lock(lockCtx, planID.String())
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: %v", domain.ErrConcurrentModification, err)
		}
		return nil, err
	}
	defer release()

	current, err := repo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := clock().UTC()
	next := current.Clone()
	if err := fn(next, now); err != nil {
		return nil, err
	}
	next.UpdatedAt = now

	if err := repo.Save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *ReconciliationService) observe(operation string, start time.Time, err error) {
	if operation == "" {
		operation = "pay"
	}
	s.metrics.ObserveDuration(operation, start)
	s.metrics.PaymentOperation(operation, outcome(err))
	if errors.Is(err, domain.ErrConcurrentModification) {
		s.metrics.ConcurrentModification()
	}
}

// outcome classifies an error for metric labels
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, domain.ErrPlanNotFound), errors.Is(err, domain.ErrInstallmentNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInstallmentAlreadyPaid):
		return "already_paid"
	case errors.Is(err, domain.ErrInstallmentNotPaid):
		return "not_paid"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidPaymentMethod), errors.Is(err, domain.ErrNotesTooLong):
		return "invalid"
	default:
		return "error"
	}
}
