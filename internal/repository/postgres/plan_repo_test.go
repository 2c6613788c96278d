package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	asOf := time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)
	// 03:00 on 2 March in UTC+7 is still 1 March in UTC
	jakarta := time.FixedZone("WIB", 7*60*60)

	tests := []struct {
		name     string
		filter   domain.PlanFilter
		contains []string
		args     []interface{}
	}{
		{
			name:     "no filter",
			filter:   domain.PlanFilter{},
			contains: []string{"FROM plans p ORDER BY p.created_at DESC, p.id"},
			args:     nil,
		},
		{
			name:     "customer and pagination",
			filter:   domain.PlanFilter{CustomerID: "cust-1", Limit: 20, Offset: 40},
			contains: []string{"WHERE p.customer_id = $1", "LIMIT $2", "OFFSET $3"},
			args:     []interface{}{"cust-1", 20, 40},
		},
		{
			name:     "search escapes wildcards",
			filter:   domain.PlanFilter{Search: "50%_off"},
			contains: []string{"p.product_name ILIKE $1 OR p.customer_name ILIKE $1"},
			args:     []interface{}{`%50\%\_off%`},
		},
		{
			name:     "overdue",
			filter:   domain.PlanFilter{Status: domain.PlanStatusOverdue, AsOf: asOf},
			contains: []string{"i.amount > 0 AND i.due_date < $1::date"},
			args:     []interface{}{"2025-03-01"},
		},
		{
			name:     "active",
			filter:   domain.PlanFilter{Status: domain.PlanStatusActive, AsOf: asOf},
			contains: []string{"i.state = 'pending' AND i.amount > 0)", "AND NOT EXISTS", "i.due_date < $1::date"},
			args:     []interface{}{"2025-03-01"},
		},
		{
			name:     "as-of in another zone is bound as the UTC date",
			filter:   domain.PlanFilter{Status: domain.PlanStatusOverdue, AsOf: time.Date(2025, 3, 2, 3, 0, 0, 0, jakarta)},
			contains: []string{"i.due_date < $1::date"},
			args:     []interface{}{"2025-03-01"},
		},
		{
			name:     "completed",
			filter:   domain.PlanFilter{Status: domain.PlanStatusCompleted},
			contains: []string{"WHERE NOT EXISTS"},
			args:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListQuery(tt.filter)
			for _, fragment := range tt.contains {
				assert.Contains(t, query, fragment)
			}
			assert.Equal(t, tt.args, args)
			assert.True(t, strings.HasPrefix(query, "SELECT p.id, p.customer_id"))
		})
	}
}

func TestPrefixColumns(t *testing.T) {
	assert.Equal(t, "p.a, p.b, p.c", prefixColumns("a,\n\tb, c", "p."))
}
