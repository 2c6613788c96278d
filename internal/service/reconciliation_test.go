package service

import (
	"testing"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func pendingRows(amounts ...int64) []*domain.Installment {
	rows := make([]*domain.Installment, len(amounts))
	for i, a := range amounts {
		rows[i] = &domain.Installment{InstallmentNumber: int32(i + 1), Amount: a, State: domain.InstallmentStatePending}
	}
	return rows
}

func TestRedistribute(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		rows       []int64
		delta      int64
		expected   []int64
		share      int64
		unabsorbed int64
	}{
		{
			name:     "overpayment lowers remaining rows",
			rows:     []int64{1000, 1000, 1000},
			delta:    300,
			expected: []int64{900, 900, 900},
			share:    100,
		},
		{
			name:     "underpayment raises remaining rows",
			rows:     []int64{1000, 1000, 1000},
			delta:    -300,
			expected: []int64{1100, 1100, 1100},
			share:    100,
		},
		{
			name:     "last row takes the rounding residual",
			rows:     []int64{1000, 1000, 1000},
			delta:    -100,
			expected: []int64{1034, 1034, 1032},
			share:    34,
		},
		{
			name:     "rounding never overshoots small deltas",
			rows:     []int64{1000, 1000, 1000, 1000, 1000},
			delta:    -3,
			expected: []int64{1001, 1001, 1001, 1000, 1000},
			share:    1,
		},
		{
			name:     "clamped row carries to the next",
			rows:     []int64{50, 1000, 1000},
			delta:    600,
			expected: []int64{0, 650, 800},
			share:    200,
		},
		{
			name:       "carry past the last row is unabsorbed",
			rows:       []int64{100, 100},
			delta:      500,
			expected:   []int64{0, 0},
			share:      250,
			unabsorbed: 300,
		},
		{
			name:       "no rows leaves the whole delta unabsorbed",
			rows:       nil,
			delta:      -200,
			expected:   []int64{},
			unabsorbed: 200,
		},
		{
			name:     "zero delta changes nothing",
			rows:     []int64{1000, 1000},
			delta:    0,
			expected: []int64{1000, 1000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := pendingRows(tt.rows...)
			dist := Redistribute(rows, tt.delta, now)

			got := make([]int64, len(rows))
			for i, r := range rows {
				got[i] = r.Amount
				assert.GreaterOrEqual(t, r.Amount, int64(0))
			}
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.delta, dist.Difference)
			assert.Equal(t, len(tt.rows), dist.RemainingCount)
			assert.Equal(t, tt.share, dist.AmountPerInstallment)
			assert.Equal(t, tt.delta > 0, dist.IsExcess)
			assert.Equal(t, tt.unabsorbed, dist.Unabsorbed)
		})
	}
}

func TestRedistribute_SettlesRowsLoweredToZero(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := pendingRows(1000, 1000, 1000, 1000)

	Redistribute(rows, 3500, now)

	assert.Equal(t, int64(500), rows[3].Amount)
	assert.True(t, rows[3].IsPending())
	for _, row := range rows[:3] {
		assert.Zero(t, row.Amount)
		assert.True(t, row.IsPaid(), "installment %d", row.InstallmentNumber)
		assert.Equal(t, int64(0), *row.ActualPaidAmount)
		assert.Equal(t, now, *row.PaidDate)
		assert.Nil(t, row.PaymentMethod)
	}
}

func TestRedistribute_ConservesDelta(t *testing.T) {
	now := time.Now()
	for n := 1; n <= 9; n++ {
		for delta := int64(-250); delta <= 250; delta += 7 {
			base := make([]int64, n)
			for i := range base {
				base[i] = int64(100 + i*40)
			}
			rows := pendingRows(base...)
			before := int64(0)
			for _, r := range rows {
				before += r.Amount
			}

			dist := Redistribute(rows, delta, now)

			after := int64(0)
			for _, r := range rows {
				after += r.Amount
			}
			// rows moved by -delta, except for what could not be absorbed
			moved := before - after
			if delta > 0 {
				assert.Equal(t, delta-dist.Unabsorbed, moved, "n=%d delta=%d", n, delta)
			} else {
				assert.Equal(t, delta, moved, "n=%d delta=%d", n, delta)
				assert.Zero(t, dist.Unabsorbed)
			}
		}
	}
}

func TestNormalizeNotes(t *testing.T) {
	blank := "   "
	padded := "  paid at counter  "

	assert.Nil(t, normalizeNotes(nil))
	assert.Nil(t, normalizeNotes(&blank))
	assert.Equal(t, "paid at counter", *normalizeNotes(&padded))
}
