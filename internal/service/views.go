package service

import (
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/google/uuid"
)

// InstallmentView is an installment with its derived status
type InstallmentView struct {
	*domain.Installment
	Status domain.InstallmentStatus `json:"status"`
}

// NewInstallmentView derives the status of inst as of now
func NewInstallmentView(inst *domain.Installment, now time.Time) InstallmentView {
	return InstallmentView{Installment: inst, Status: domain.DeriveInstallmentStatus(inst, now)}
}

// PlanDetails is a full plan with derived statuses applied
type PlanDetails struct {
	*domain.Plan
	Installments []InstallmentView  `json:"installments"`
	Summary      domain.PlanSummary `json:"summary"`
}

// NewPlanDetails builds the detail view of plan as of now
func NewPlanDetails(plan *domain.Plan, now time.Time) *PlanDetails {
	views := make([]InstallmentView, len(plan.Installments))
	for i, inst := range plan.Installments {
		views[i] = NewInstallmentView(inst, now)
	}
	return &PlanDetails{
		Plan:         plan,
		Installments: views,
		Summary:      plan.Summarize(now),
	}
}

// PlanListItem is the row shown in plan listings
type PlanListItem struct {
	ID               uuid.UUID              `json:"id"`
	CustomerID       string                 `json:"customerId"`
	CustomerName     string                 `json:"customerName"`
	ProductName      string                 `json:"productName"`
	TotalAmount      int64                  `json:"totalAmount"`
	AdvanceAmount    int64                  `json:"advanceAmount"`
	InstallmentCount int32                  `json:"installmentCount"`
	InstallmentUnit  domain.InstallmentUnit `json:"installmentUnit"`
	StartDate        time.Time              `json:"startDate"`
	CreatedAt        time.Time              `json:"createdAt"`
	Summary          domain.PlanSummary     `json:"summary"`
}

// NewPlanListItem builds the list row of plan as of now
func NewPlanListItem(plan *domain.Plan, now time.Time) *PlanListItem {
	return &PlanListItem{
		ID:               plan.ID,
		CustomerID:       plan.CustomerID,
		CustomerName:     plan.CustomerName,
		ProductName:      plan.ProductName,
		TotalAmount:      plan.TotalAmount,
		AdvanceAmount:    plan.AdvanceAmount,
		InstallmentCount: plan.InstallmentCount,
		InstallmentUnit:  plan.InstallmentUnit,
		StartDate:        plan.StartDate,
		CreatedAt:        plan.CreatedAt,
		Summary:          plan.Summarize(now),
	}
}

// PublicNextInstallment is the next due row without payment details
type PublicNextInstallment struct {
	InstallmentNumber int32                    `json:"installmentNumber"`
	Amount            int64                    `json:"amount"`
	DueDate           time.Time                `json:"dueDate"`
	Status            domain.InstallmentStatus `json:"status"`
}

// PublicPlanSummary is what an unauthenticated caller may see about a plan
type PublicPlanSummary struct {
	PlanID           uuid.UUID              `json:"planId"`
	ProductName      string                 `json:"productName"`
	TotalAmount      int64                  `json:"totalAmount"`
	AdvanceAmount    int64                  `json:"advanceAmount"`
	PaidAmount       int64                  `json:"paidAmount"`
	RemainingAmount  int64                  `json:"remainingAmount"`
	InstallmentCount int32                  `json:"installmentCount"`
	PaidCount        int32                  `json:"paidCount"`
	OverdueCount     int32                  `json:"overdueCount"`
	Status           domain.PlanStatus      `json:"status"`
	NextInstallment  *PublicNextInstallment `json:"nextInstallment,omitempty"`
}

// NewPublicPlanSummary strips a plan down to its public figures
func NewPublicPlanSummary(plan *domain.Plan, now time.Time) *PublicPlanSummary {
	s := plan.Summarize(now)
	out := &PublicPlanSummary{
		PlanID:           plan.ID,
		ProductName:      plan.ProductName,
		TotalAmount:      plan.TotalAmount,
		AdvanceAmount:    plan.AdvanceAmount,
		PaidAmount:       s.PaidAmount,
		RemainingAmount:  s.RemainingAmount,
		InstallmentCount: plan.InstallmentCount,
		PaidCount:        s.PaidCount,
		OverdueCount:     s.OverdueCount,
		Status:           s.Status,
	}
	if s.NextInstallment != nil {
		out.NextInstallment = &PublicNextInstallment{
			InstallmentNumber: s.NextInstallment.InstallmentNumber,
			Amount:            s.NextInstallment.Amount,
			DueDate:           s.NextInstallment.DueDate,
			Status:            s.NextDueStatus,
		}
	}
	return out
}
