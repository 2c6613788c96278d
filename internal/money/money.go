// Package money holds the rounding policy shared by schedule generation and
// payment redistribution. Amounts are whole currency units.
package money

import (
	"github.com/shopspring/decimal"
)

// CeilDiv returns ceil(a / n) for a >= 0 and n > 0.
// It panics when n is not positive; callers validate counts first.
func CeilDiv(a int64, n int64) int64 {
	if n <= 0 {
		panic("money: CeilDiv by non-positive divisor")
	}
	return decimal.NewFromInt(a).Div(decimal.NewFromInt(n)).Ceil().IntPart()
}

// Allocate splits total into parts rows using the round-up policy: each row
// takes ceil(total/parts) until the amount runs out and the last row takes
// whatever is left. The result always sums to total and never goes negative.
func Allocate(total int64, parts int) []int64 {
	if parts <= 0 {
		return nil
	}
	rows := make([]int64, parts)
	if total <= 0 {
		return rows
	}

	share := CeilDiv(total, int64(parts))
	left := total
	for i := 0; i < parts-1; i++ {
		take := share
		if take > left {
			take = left
		}
		rows[i] = take
		left -= take
	}
	rows[parts-1] = left
	return rows
}

// ClampSubtract removes take from amount without going below zero and
// reports how much could not be removed.
func ClampSubtract(amount, take int64) (result int64, carried int64) {
	if take <= amount {
		return amount - take, 0
	}
	return 0, take - amount
}

// Sum adds up amounts.
func Sum(amounts []int64) int64 {
	var total int64
	for _, a := range amounts {
		total += a
	}
	return total
}

// Abs returns the absolute value of a.
func Abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
