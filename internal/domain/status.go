package domain

import "time"

// InstallmentStatus is the status shown to users, derived at read time.
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "Pending"
	InstallmentStatusOverdue InstallmentStatus = "Overdue"
	InstallmentStatusPaid    InstallmentStatus = "Paid"
)

// PlanStatus is a plan's derived status.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusOverdue   PlanStatus = "overdue"
	PlanStatusCompleted PlanStatus = "completed"
)

// IsValid reports whether s is a known plan status.
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusActive, PlanStatusOverdue, PlanStatusCompleted:
		return true
	}
	return false
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DeriveInstallmentStatus returns Paid for settled rows regardless of due
// date, Overdue for pending rows whose due date is before today, Pending
// otherwise. A pending row scheduled at zero is settled.
func DeriveInstallmentStatus(inst *Installment, now time.Time) InstallmentStatus {
	if inst.IsSettled() {
		return InstallmentStatusPaid
	}
	if StartOfDay(inst.DueDate).Before(StartOfDay(now)) {
		return InstallmentStatusOverdue
	}
	return InstallmentStatusPending
}

// DerivePlanStatus returns completed when every installment is paid, overdue
// when any installment is overdue, active otherwise.
func DerivePlanStatus(p *Plan, now time.Time) PlanStatus {
	completed := true
	for _, inst := range p.Installments {
		switch DeriveInstallmentStatus(inst, now) {
		case InstallmentStatusOverdue:
			return PlanStatusOverdue
		case InstallmentStatusPending:
			completed = false
		case InstallmentStatusPaid:
		}
	}
	if completed {
		return PlanStatusCompleted
	}
	return PlanStatusActive
}
