package service

import (
	"fmt"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/money"
	"github.com/dafibh/qist/qist-backend/internal/util"
)

// ScheduleInput contains the amortization inputs of a plan
type ScheduleInput struct {
	TotalAmount      int64
	AdvanceAmount    int64
	InstallmentCount int32
	InstallmentUnit  domain.InstallmentUnit
	StartDate        time.Time
	DueDay           int32 // 0 means the start date's day
}

// ScheduleResult is a generated schedule before it is attached to a plan
type ScheduleResult struct {
	PerInstallment int64                 `json:"perInstallment"`
	LastAmount     int64                 `json:"lastAmount"`
	DueDay         int32                 `json:"dueDay"`
	Installments   []*domain.Installment `json:"installments"`
}

// ValidateScheduleInput checks the amortization inputs.
// Errors wrap domain.ErrInvalidPlan or domain.ErrInvalidInstallmentUnit.
func ValidateScheduleInput(input ScheduleInput) error {
	if input.TotalAmount <= 0 {
		return fmt.Errorf("%w: totalAmount must be positive", domain.ErrInvalidPlan)
	}
	if input.AdvanceAmount < 0 {
		return fmt.Errorf("%w: advanceAmount cannot be negative", domain.ErrInvalidPlan)
	}
	if input.TotalAmount-input.AdvanceAmount <= 0 {
		return fmt.Errorf("%w: advanceAmount must be less than totalAmount", domain.ErrInvalidPlan)
	}
	if input.InstallmentCount <= 0 {
		return fmt.Errorf("%w: installmentCount must be positive", domain.ErrInvalidPlan)
	}
	if input.InstallmentCount > domain.MaxInstallmentCount {
		return fmt.Errorf("%w: installmentCount cannot exceed %d", domain.ErrInvalidPlan, domain.MaxInstallmentCount)
	}
	if input.TotalAmount-input.AdvanceAmount < int64(input.InstallmentCount) {
		return fmt.Errorf("%w: amount to finance must be at least one per installment", domain.ErrInvalidPlan)
	}
	if !input.InstallmentUnit.IsValid() {
		return domain.ErrInvalidInstallmentUnit
	}
	if input.StartDate.IsZero() {
		return fmt.Errorf("%w: startDate is required", domain.ErrInvalidPlan)
	}
	if input.DueDay < 0 || input.DueDay > 31 {
		return fmt.Errorf("%w: dueDay must be between 1 and 31", domain.ErrInvalidPlan)
	}
	return nil
}

// GenerateSchedule builds the initial pending installments of a plan.
// Every row gets ceil(remaining/count) except the last, which takes the
// residual so the rows sum to totalAmount - advanceAmount exactly.
func GenerateSchedule(input ScheduleInput, now time.Time) (*ScheduleResult, error) {
	if err := ValidateScheduleInput(input); err != nil {
		return nil, err
	}

	start := util.DateOnly(input.StartDate)
	dueDay := input.DueDay
	if dueDay == 0 {
		dueDay = int32(start.Day())
	}

	amounts := money.Allocate(input.TotalAmount-input.AdvanceAmount, int(input.InstallmentCount))

	installments := make([]*domain.Installment, len(amounts))
	for i, amount := range amounts {
		number := int32(i + 1)
		installments[i] = &domain.Installment{
			InstallmentNumber: number,
			Amount:            amount,
			DueDate:           DueDate(start, input.InstallmentUnit, int(dueDay), int(number)),
			State:             domain.InstallmentStatePending,
			UpdatedAt:         now,
		}
	}

	return &ScheduleResult{
		PerInstallment: amounts[0],
		LastAmount:     amounts[len(amounts)-1],
		DueDay:         dueDay,
		Installments:   installments,
	}, nil
}

// DueDate returns the due date of installment k: start advanced by k
// periods. Month periods pin the day to dueDay, clamped to the month's
// last day.
func DueDate(start time.Time, unit domain.InstallmentUnit, dueDay int, k int) time.Time {
	switch unit {
	case domain.InstallmentUnitDays:
		return start.AddDate(0, 0, k)
	case domain.InstallmentUnitWeeks:
		return start.AddDate(0, 0, 7*k)
	default:
		year, month := util.AddMonths(start.Year(), start.Month(), k)
		return util.CalculateActualDate(year, month, dueDay)
	}
}
