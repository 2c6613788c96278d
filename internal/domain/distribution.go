package domain

// Distribution reports how a payment delta was spread over the pending
// installments that follow the paid one.
//
// Difference is paid minus scheduled. Unabsorbed is the part of the delta
// that could not be pushed onto any pending installment.
type Distribution struct {
	Difference           int64 `json:"difference"`
	RemainingCount       int   `json:"remainingCount"`
	AmountPerInstallment int64 `json:"amountPerInstallment"`
	IsExcess             bool  `json:"isExcess"`
	Unabsorbed           int64 `json:"unabsorbed,omitempty"`
}

// UnabsorbedShortfall is a non-fatal warning: the payment was recorded but
// part of its delta had nowhere to go, so the plan's ledger no longer sums to
// its total.
type UnabsorbedShortfall struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}
