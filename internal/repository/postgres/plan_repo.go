package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const planColumns = `id, customer_id, customer_name, customer_email, customer_phone, customer_address,
	product_name, product_description, total_amount, advance_amount, installment_count,
	installment_unit, due_day, start_date, version, created_by, created_at, updated_at`

const installmentColumns = `plan_id, installment_number, amount, due_date, state, actual_paid_amount,
	paid_date, payment_method, notes, receipt_path, updated_at`

// PlanRepository implements domain.PlanRepository
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// Create inserts the plan and its installments in one transaction
func (r *PlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, $15, $16, $17)`,
		plan.ID, plan.CustomerID, plan.CustomerName, plan.CustomerEmail, plan.CustomerPhone, plan.CustomerAddress,
		plan.ProductName, plan.ProductDescription, plan.TotalAmount, plan.AdvanceAmount, plan.InstallmentCount,
		string(plan.InstallmentUnit), plan.DueDay, plan.StartDate, plan.CreatedBy, plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: plan %s already exists", domain.ErrInvalidPlan, plan.ID)
		}
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	rows := make([][]interface{}, len(plan.Installments))
	for i, inst := range plan.Installments {
		rows[i] = installmentRow(plan.ID, inst)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"installments"},
		[]string{"plan_id", "installment_number", "amount", "due_date", "state", "actual_paid_amount",
			"paid_date", "payment_method", "notes", "receipt_path", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert installments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}
	plan.Version = 1
	return nil
}

// GetByID loads a plan with its installments ordered by number
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}

	byPlan, err := r.loadInstallments(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	plan.Installments = byPlan[id]
	return plan, nil
}

// List returns plans matching filter, newest first. The derived status is
// evaluated in SQL as of filter.AsOf so pagination stays correct.
func (r *PlanRepository) List(ctx context.Context, filter domain.PlanFilter) ([]*domain.Plan, error) {
	query, args := buildListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*domain.Plan
	var ids []uuid.UUID
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
		ids = append(ids, plan.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return []*domain.Plan{}, nil
	}

	byPlan, err := r.loadInstallments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, plan := range plans {
		plan.Installments = byPlan[plan.ID]
	}
	return plans, nil
}

// Save writes the plan row and every installment row atomically. The plan
// update only matches the version that was loaded.
func (r *PlanRepository) Save(ctx context.Context, plan *domain.Plan) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE plans SET
			customer_name = $3, customer_email = $4, customer_phone = $5, customer_address = $6,
			product_name = $7, product_description = $8, version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $2`,
		plan.ID, plan.Version, plan.CustomerName, plan.CustomerEmail, plan.CustomerPhone, plan.CustomerAddress,
		plan.ProductName, plan.ProductDescription, plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM plans WHERE id = $1)`, plan.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrPlanNotFound
		}
		return domain.ErrConcurrentModification
	}

	batch := &pgx.Batch{}
	for _, inst := range plan.Installments {
		var method *string
		if inst.PaymentMethod != nil {
			m := string(*inst.PaymentMethod)
			method = &m
		}
		batch.Queue(`UPDATE installments SET
				amount = $3, due_date = $4, state = $5, actual_paid_amount = $6, paid_date = $7,
				payment_method = $8, notes = $9, receipt_path = $10, updated_at = $11
			WHERE plan_id = $1 AND installment_number = $2`,
			plan.ID, inst.InstallmentNumber, inst.Amount, inst.DueDate, string(inst.State), inst.ActualPaidAmount,
			inst.PaidDate, method, inst.Notes, inst.ReceiptPath, inst.UpdatedAt,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for _, inst := range plan.Installments {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return fmt.Errorf("failed to update installment %d: %w", inst.InstallmentNumber, err)
		}
		if tag.RowsAffected() != 1 {
			results.Close()
			return fmt.Errorf("installment %d: %w", inst.InstallmentNumber, domain.ErrInstallmentNotFound)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}
	plan.Version++
	return nil
}

// Delete removes a plan; installments go with it through the foreign key
func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepository) loadInstallments(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]*domain.Installment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+installmentColumns+` FROM installments
		WHERE plan_id = ANY($1) ORDER BY plan_id, installment_number`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]*domain.Installment, len(ids))
	for rows.Next() {
		var (
			planID uuid.UUID
			inst   domain.Installment
			state  string
			method *string
		)
		if err := rows.Scan(&planID, &inst.InstallmentNumber, &inst.Amount, &inst.DueDate, &state,
			&inst.ActualPaidAmount, &inst.PaidDate, &method, &inst.Notes, &inst.ReceiptPath, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		inst.State = domain.InstallmentState(state)
		inst.DueDate = inst.DueDate.UTC()
		if method != nil {
			m := domain.PaymentMethod(*method)
			inst.PaymentMethod = &m
		}
		out[planID] = append(out[planID], &inst)
	}
	return out, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var (
		plan domain.Plan
		unit string
	)
	err := row.Scan(&plan.ID, &plan.CustomerID, &plan.CustomerName, &plan.CustomerEmail, &plan.CustomerPhone,
		&plan.CustomerAddress, &plan.ProductName, &plan.ProductDescription, &plan.TotalAmount, &plan.AdvanceAmount,
		&plan.InstallmentCount, &unit, &plan.DueDay, &plan.StartDate, &plan.Version, &plan.CreatedBy,
		&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	plan.InstallmentUnit = domain.InstallmentUnit(unit)
	plan.StartDate = plan.StartDate.UTC()
	return &plan, nil
}

func installmentRow(planID uuid.UUID, inst *domain.Installment) []interface{} {
	var method *string
	if inst.PaymentMethod != nil {
		m := string(*inst.PaymentMethod)
		method = &m
	}
	return []interface{}{
		planID, inst.InstallmentNumber, inst.Amount, inst.DueDate, string(inst.State), inst.ActualPaidAmount,
		inst.PaidDate, method, inst.Notes, inst.ReceiptPath, inst.UpdatedAt,
	}
}

// Derived plan status conditions. Pending rows scheduled at zero count as
// settled. $asOf is bound as a UTC calendar date string so the session
// TimeZone cannot shift it.
const (
	hasPending = `EXISTS (SELECT 1 FROM installments i WHERE i.plan_id = p.id AND i.state = 'pending' AND i.amount > 0)`
	hasOverdue = `EXISTS (SELECT 1 FROM installments i WHERE i.plan_id = p.id AND i.state = 'pending' AND i.amount > 0 AND i.due_date < %s::date)`
)

func calendarDate(t time.Time) string {
	return domain.StartOfDay(t).Format("2006-01-02")
}

// buildListQuery renders the listing query and its positional arguments
func buildListQuery(filter domain.PlanFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CustomerID != "" {
		where = append(where, "p.customer_id = "+arg(filter.CustomerID))
	}
	if filter.Search != "" {
		pattern := arg("%" + escapeLike(filter.Search) + "%")
		where = append(where, fmt.Sprintf("(p.product_name ILIKE %s OR p.customer_name ILIKE %s)", pattern, pattern))
	}
	if filter.Status != "" {
		asOf := filter.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}
		switch filter.Status {
		case domain.PlanStatusCompleted:
			where = append(where, "NOT "+hasPending)
		case domain.PlanStatusOverdue:
			where = append(where, fmt.Sprintf(hasOverdue, arg(calendarDate(asOf))))
		case domain.PlanStatusActive:
			where = append(where, hasPending, "NOT "+fmt.Sprintf(hasOverdue, arg(calendarDate(asOf))))
		}
	}

	var b strings.Builder
	b.WriteString("SELECT " + prefixColumns(planColumns, "p.") + " FROM plans p")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY p.created_at DESC, p.id")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET " + arg(filter.Offset))
	}
	return b.String(), args
}

func prefixColumns(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ domain.PlanRepository = (*PlanRepository)(nil)

// isUniqueViolation reports whether err is a duplicate key error
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
