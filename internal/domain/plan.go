package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Plan is one customer's installment agreement: a total, an advance paid up
// front, and the ordered installment schedule covering the rest.
type Plan struct {
	ID                 uuid.UUID       `json:"id"`
	CustomerID         string          `json:"customerId"`
	CustomerName       string          `json:"customerName"`
	CustomerEmail      string          `json:"customerEmail"`
	CustomerPhone      string          `json:"customerPhone"`
	CustomerAddress    string          `json:"customerAddress"`
	ProductName        string          `json:"productName"`
	ProductDescription string          `json:"productDescription"`
	TotalAmount        int64           `json:"totalAmount"`
	AdvanceAmount      int64           `json:"advanceAmount"`
	InstallmentCount   int32           `json:"installmentCount"`
	InstallmentUnit    InstallmentUnit `json:"installmentUnit"`
	DueDay             int32           `json:"dueDay"`
	StartDate          time.Time       `json:"startDate"`
	Installments       []*Installment  `json:"installments"`
	Version            int64           `json:"version"`
	CreatedBy          string          `json:"createdBy"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Installment returns the installment with the given number.
func (p *Plan) Installment(number int32) (*Installment, error) {
	for _, inst := range p.Installments {
		if inst.InstallmentNumber == number {
			return inst, nil
		}
	}
	return nil, ErrInstallmentNotFound
}

// PendingAfter returns the still-pending installments numbered after the
// given one, in ascending order.
func (p *Plan) PendingAfter(number int32) []*Installment {
	var pending []*Installment
	for _, inst := range p.Installments {
		if inst.InstallmentNumber > number && inst.IsPending() {
			pending = append(pending, inst)
		}
	}
	return pending
}

// LedgerTotal returns advance + collected amounts + still-scheduled amounts.
// It equals TotalAmount whenever every delta could be redistributed.
func (p *Plan) LedgerTotal() int64 {
	total := p.AdvanceAmount
	for _, inst := range p.Installments {
		if inst.IsPaid() {
			total += inst.PaidAmount()
		} else {
			total += inst.Amount
		}
	}
	return total
}

// Clone returns a deep copy so a mutation can be computed without touching
// the caller's value.
func (p *Plan) Clone() *Plan {
	c := *p
	c.Installments = make([]*Installment, len(p.Installments))
	for i, inst := range p.Installments {
		c.Installments[i] = inst.Clone()
	}
	return &c
}

// PlanSummary aggregates a plan's figures for list and public views.
type PlanSummary struct {
	PaidAmount      int64             `json:"paidAmount"`
	RemainingAmount int64             `json:"remainingAmount"`
	PaidCount       int32             `json:"paidCount"`
	PendingCount    int32             `json:"pendingCount"`
	OverdueCount    int32             `json:"overdueCount"`
	OverdueAmount   int64             `json:"overdueAmount"`
	Status          PlanStatus        `json:"status"`
	NextInstallment *Installment      `json:"nextInstallment,omitempty"`
	NextDueStatus   InstallmentStatus `json:"nextDueStatus,omitempty"`
}

// Summarize computes the plan's aggregates as of now.
// PaidAmount includes the advance.
func (p *Plan) Summarize(now time.Time) PlanSummary {
	s := PlanSummary{PaidAmount: p.AdvanceAmount}
	for _, inst := range p.Installments {
		status := DeriveInstallmentStatus(inst, now)
		switch status {
		case InstallmentStatusPaid:
			s.PaidCount++
			s.PaidAmount += inst.PaidAmount()
		case InstallmentStatusOverdue:
			s.OverdueCount++
			s.OverdueAmount += inst.Amount
			s.PendingCount++
			s.RemainingAmount += inst.Amount
		case InstallmentStatusPending:
			s.PendingCount++
			s.RemainingAmount += inst.Amount
		}
		if status != InstallmentStatusPaid && s.NextInstallment == nil {
			s.NextInstallment = inst
			s.NextDueStatus = status
		}
	}
	s.Status = DerivePlanStatus(p, now)
	return s
}

// PlanFilter narrows plan listings. Status is a derived status and is
// evaluated as of AsOf.
type PlanFilter struct {
	CustomerID string
	Status     PlanStatus
	Search     string
	AsOf       time.Time
	Limit      int
	Offset     int
}

// PlanRepository is the authoritative store for plans and their
// installments. Save is all-or-nothing and fails with
// ErrConcurrentModification when plan.Version is stale.
type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	List(ctx context.Context, filter PlanFilter) ([]*Plan, error)
	Save(ctx context.Context, plan *Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
}
