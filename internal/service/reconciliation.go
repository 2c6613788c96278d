package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/money"
)

// PaymentInput carries the fields of a record or edit payment request
type PaymentInput struct {
	InstallmentNumber int32
	Amount            *int64 // nil pays the scheduled amount (record) or keeps it (edit)
	PaymentMethod     domain.PaymentMethod
	Notes             *string
	DueDate           *time.Time
}

func validatePaymentInput(input PaymentInput, requireMethod bool) error {
	if input.Amount != nil && *input.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if input.PaymentMethod != "" || requireMethod {
		if !input.PaymentMethod.IsValid() {
			return domain.ErrInvalidPaymentMethod
		}
	}
	if input.Notes != nil && len(*input.Notes) > domain.MaxNotesLength {
		return domain.ErrNotesTooLong
	}
	return nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Redistribute spreads delta (paid minus scheduled) over the pending rows
// that follow the paid installment, so that the plan keeps summing to its
// total: an overpayment lowers the remaining rows, an underpayment raises
// them.
//
// |delta| is split with money.Allocate. Lowering never takes a row below
// zero; what a row cannot give is carried to the next one, and whatever is
// left after the last row is reported as Unabsorbed. With no rows the whole
// delta is unabsorbed. Rows lowered to zero are settled.
func Redistribute(rows []*domain.Installment, delta int64, now time.Time) domain.Distribution {
	dist := domain.Distribution{
		Difference:     delta,
		RemainingCount: len(rows),
		IsExcess:       delta > 0,
	}
	if delta == 0 {
		return dist
	}
	if len(rows) == 0 {
		dist.Unabsorbed = money.Abs(delta)
		return dist
	}

	magnitude := money.Abs(delta)
	dist.AmountPerInstallment = money.CeilDiv(magnitude, int64(len(rows)))
	shares := money.Allocate(magnitude, len(rows))

	var carried int64
	for i, row := range rows {
		if delta < 0 {
			row.Amount += shares[i]
		} else {
			row.Amount, carried = money.ClampSubtract(row.Amount, shares[i]+carried)
			if row.Amount == 0 {
				row.SettleAbsorbed(now)
				continue
			}
		}
		row.UpdatedAt = now
	}
	dist.Unabsorbed = carried
	return dist
}

// applyRecordPayment marks the target paid on plan and redistributes the
// delta. plan must be a private copy.
func applyRecordPayment(plan *domain.Plan, input PaymentInput, now time.Time) (*domain.Installment, *domain.Distribution, error) {
	target, err := plan.Installment(input.InstallmentNumber)
	if err != nil {
		return nil, nil, err
	}
	if target.IsPaid() {
		return nil, nil, domain.ErrInstallmentAlreadyPaid
	}

	scheduled := target.Amount
	paid := scheduled
	if input.Amount != nil {
		paid = *input.Amount
	}
	if paid < 0 || (paid == 0 && input.Amount != nil) {
		return nil, nil, domain.ErrInvalidAmount
	}
	if !input.PaymentMethod.IsValid() {
		return nil, nil, domain.ErrInvalidPaymentMethod
	}

	method := input.PaymentMethod
	paidDate := now
	target.State = domain.InstallmentStatePaid
	target.ActualPaidAmount = &paid
	target.PaymentMethod = &method
	target.Notes = normalizeNotes(input.Notes)
	target.PaidDate = &paidDate
	if input.DueDate != nil {
		target.DueDate = domain.StartOfDay(*input.DueDate)
	}
	target.UpdatedAt = now

	delta := paid - scheduled
	if delta == 0 {
		return target, nil, nil
	}
	dist := Redistribute(plan.PendingAfter(target.InstallmentNumber), delta, now)
	return target, &dist, nil
}

// applyEditPayment replaces the payment fields of an already paid target.
// Other rows are left alone.
func applyEditPayment(plan *domain.Plan, input PaymentInput, now time.Time) (*domain.Installment, error) {
	target, err := plan.Installment(input.InstallmentNumber)
	if err != nil {
		return nil, err
	}
	if !target.IsPaid() {
		return nil, domain.ErrInstallmentNotPaid
	}

	if input.Amount != nil {
		amount := *input.Amount
		target.ActualPaidAmount = &amount
	}
	if input.PaymentMethod != "" {
		method := input.PaymentMethod
		target.PaymentMethod = &method
	}
	if input.Notes != nil {
		target.Notes = normalizeNotes(input.Notes)
	}
	if input.DueDate != nil {
		target.DueDate = domain.StartOfDay(*input.DueDate)
	}
	target.UpdatedAt = now
	return target, nil
}

// applyMarkUnpaid reverts a paid target to pending. Amount was never
// overwritten by the payment, so this restores the pre-payment row.
func applyMarkUnpaid(plan *domain.Plan, number int32, now time.Time) (*domain.Installment, error) {
	target, err := plan.Installment(number)
	if err != nil {
		return nil, err
	}
	if !target.IsPaid() {
		return nil, domain.ErrInstallmentNotPaid
	}
	target.ClearPayment()
	target.UpdatedAt = now
	return target, nil
}

func shortfallWarning(dist *domain.Distribution) *domain.UnabsorbedShortfall {
	if dist == nil || dist.Unabsorbed == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d of the payment difference could not be applied to remaining installments", dist.Unabsorbed)
	if dist.RemainingCount == 0 {
		msg = fmt.Sprintf("no pending installments follow; difference of %d was not redistributed", dist.Unabsorbed)
	}
	return &domain.UnabsorbedShortfall{Amount: dist.Unabsorbed, Message: msg}
}
