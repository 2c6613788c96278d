package domain

import (
	"time"
)

// InstallmentUnit is the period between two consecutive due dates.
type InstallmentUnit string

const (
	InstallmentUnitDays   InstallmentUnit = "days"
	InstallmentUnitWeeks  InstallmentUnit = "weeks"
	InstallmentUnitMonths InstallmentUnit = "months"
)

// IsValid reports whether u is a supported unit.
func (u InstallmentUnit) IsValid() bool {
	switch u {
	case InstallmentUnitDays, InstallmentUnitWeeks, InstallmentUnitMonths:
		return true
	}
	return false
}

// PaymentMethod is how an installment was collected.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid reports whether m is a supported method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodWallet, PaymentMethodCheque, PaymentMethodOther:
		return true
	}
	return false
}

// InstallmentState is the persisted state of an installment. Overdue is
// never stored; see DeriveInstallmentStatus.
type InstallmentState string

const (
	InstallmentStatePending InstallmentState = "pending"
	InstallmentStatePaid    InstallmentState = "paid"
)

// Installment is one scheduled due date within a plan.
//
// Amount is the scheduled (pending) amount. Paying an installment never
// overwrites it; what was collected goes to ActualPaidAmount, which is what
// makes a payment reversal a pure field reset.
type Installment struct {
	InstallmentNumber int32            `json:"installmentNumber"`
	Amount            int64            `json:"amount"`
	DueDate           time.Time        `json:"dueDate"`
	State             InstallmentState `json:"state"`
	ActualPaidAmount  *int64           `json:"actualPaidAmount,omitempty"`
	PaidDate          *time.Time       `json:"paidDate,omitempty"`
	PaymentMethod     *PaymentMethod   `json:"paymentMethod,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	ReceiptPath       *string          `json:"receiptPath,omitempty"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// IsPaid returns true once a payment has been recorded.
func (i *Installment) IsPaid() bool {
	return i.State == InstallmentStatePaid
}

// IsPending returns true while the installment awaits payment.
func (i *Installment) IsPending() bool {
	return i.State == InstallmentStatePending
}

// IsSettled reports whether nothing is left to collect: the row is paid, or
// it is pending with a zero scheduled amount.
func (i *Installment) IsSettled() bool {
	return i.IsPaid() || i.Amount == 0
}

// SettleAbsorbed marks a row whose amount was fully absorbed by an earlier
// overpayment as paid with nothing collected.
func (i *Installment) SettleAbsorbed(now time.Time) {
	var zero int64
	paidDate := now
	i.State = InstallmentStatePaid
	i.ActualPaidAmount = &zero
	i.PaidDate = &paidDate
	i.UpdatedAt = now
}

// PaidAmount returns the collected amount or zero when unpaid.
func (i *Installment) PaidAmount() int64 {
	if i.ActualPaidAmount == nil {
		return 0
	}
	return *i.ActualPaidAmount
}

// ClearPayment resets every payment field, leaving Amount and DueDate alone.
func (i *Installment) ClearPayment() {
	i.State = InstallmentStatePending
	i.ActualPaidAmount = nil
	i.PaidDate = nil
	i.PaymentMethod = nil
	i.Notes = nil
	i.ReceiptPath = nil
}

// Clone returns a deep copy.
func (i *Installment) Clone() *Installment {
	c := *i
	if i.ActualPaidAmount != nil {
		v := *i.ActualPaidAmount
		c.ActualPaidAmount = &v
	}
	if i.PaidDate != nil {
		v := *i.PaidDate
		c.PaidDate = &v
	}
	if i.PaymentMethod != nil {
		v := *i.PaymentMethod
		c.PaymentMethod = &v
	}
	if i.Notes != nil {
		v := *i.Notes
		c.Notes = &v
	}
	if i.ReceiptPath != nil {
		v := *i.ReceiptPath
		c.ReceiptPath = &v
	}
	return &c
}
