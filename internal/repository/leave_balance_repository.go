package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

const leaveBalanceColumns = `user_id, leave_type_id, year, opening_balance, used, adjustments, updated_at`

// LeaveBalanceRepository is the single accessor for the leave ledger. Every mutation of used or
// adjustments is a relative update on a row the caller has locked with GetForUpdate.
type LeaveBalanceRepository struct {
	db *sqlx.DB
}

// NewLeaveBalanceRepository constructs a LeaveBalanceRepository.
func NewLeaveBalanceRepository(db *sqlx.DB) *LeaveBalanceRepository {
	return &LeaveBalanceRepository{db: db}
}

func (r *LeaveBalanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetForUpdate loads and row-locks a ledger row. Missing rows return sql.ErrNoRows.
func (r *LeaveBalanceRepository) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, key models.LeaveBalanceKey) (*models.LeaveBalance, error) {
	query := `SELECT ` + leaveBalanceColumns + ` FROM leave_balances WHERE user_id = $1 AND leave_type_id = $2 AND year = $3 FOR UPDATE`
	var balance models.LeaveBalance
	if err := sqlx.GetContext(ctx, r.exec(exec), &balance, query, key.UserID, key.LeaveTypeID, key.Year); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock leave balance: %w", err)
	}
	return &balance, nil
}

// IncrementUsed adds delta (which may be negative) to used.
func (r *LeaveBalanceRepository) IncrementUsed(ctx context.Context, exec sqlx.ExtContext, key models.LeaveBalanceKey, delta decimal.Decimal) error {
	const query = `UPDATE leave_balances SET used = used + $4, updated_at = $5 WHERE user_id = $1 AND leave_type_id = $2 AND year = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, key.UserID, key.LeaveTypeID, key.Year, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update leave balance used: %w", err)
	}
	return requireAffected(result, "update leave balance used")
}

// AddAdjustment adds the amount to adjustments and records the history row.
func (r *LeaveBalanceRepository) AddAdjustment(ctx context.Context, exec sqlx.ExtContext, adj *models.LeaveBalanceAdjustment) error {
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}
	target := r.exec(exec)

	const update = `UPDATE leave_balances SET adjustments = adjustments + $4, updated_at = $5 WHERE user_id = $1 AND leave_type_id = $2 AND year = $3`
	result, err := target.ExecContext(ctx, update, adj.UserID, adj.LeaveTypeID, adj.Year, adj.Amount, adj.CreatedAt)
	if err != nil {
		return fmt.Errorf("update leave balance adjustments: %w", err)
	}
	if err := requireAffected(result, "update leave balance adjustments"); err != nil {
		return err
	}

	const insert = `INSERT INTO leave_balance_adjustments (id, user_id, leave_type_id, year, amount, reason, created_by, created_at)
VALUES (:id, :user_id, :leave_type_id, :year, :amount, :reason, :created_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insert, adj); err != nil {
		return fmt.Errorf("insert leave balance adjustment: %w", err)
	}
	return nil
}

// UpsertOpening creates the ledger row or replaces its opening figure. used and adjustments are kept.
func (r *LeaveBalanceRepository) UpsertOpening(ctx context.Context, key models.LeaveBalanceKey, opening decimal.Decimal) (*models.LeaveBalance, error) {
	query := `INSERT INTO leave_balances (user_id, leave_type_id, year, opening_balance, used, adjustments, updated_at)
VALUES ($1, $2, $3, $4, 0, 0, $5)
ON CONFLICT (user_id, leave_type_id, year) DO UPDATE SET opening_balance = EXCLUDED.opening_balance, updated_at = EXCLUDED.updated_at
RETURNING ` + leaveBalanceColumns
	var balance models.LeaveBalance
	if err := r.db.GetContext(ctx, &balance, query, key.UserID, key.LeaveTypeID, key.Year, opening, time.Now().UTC()); err != nil {
		return nil, writeError("upsert leave balance", err)
	}
	return &balance, nil
}

// ListByUserYear returns every ledger row of a teacher for a year with the type name.
func (r *LeaveBalanceRepository) ListByUserYear(ctx context.Context, userID string, year int) ([]models.LeaveBalanceView, error) {
	const query = `SELECT b.user_id, b.leave_type_id, b.year, b.opening_balance, b.used, b.adjustments, b.updated_at, lt.name AS leave_type_name
FROM leave_balances b
JOIN leave_types lt ON lt.id = b.leave_type_id
WHERE b.user_id = $1 AND b.year = $2
ORDER BY lt.name ASC`
	balances := []models.LeaveBalanceView{}
	if err := r.db.SelectContext(ctx, &balances, query, userID, year); err != nil {
		return nil, fmt.Errorf("list leave balances: %w", err)
	}
	return balances, nil
}

// History lists manual adjustments of a ledger row, newest first.
func (r *LeaveBalanceRepository) History(ctx context.Context, key models.LeaveBalanceKey) ([]models.LeaveBalanceAdjustment, error) {
	const query = `SELECT id, user_id, leave_type_id, year, amount, reason, created_by, created_at
FROM leave_balance_adjustments WHERE user_id = $1 AND leave_type_id = $2 AND year = $3 ORDER BY created_at DESC`
	history := []models.LeaveBalanceAdjustment{}
	if err := r.db.SelectContext(ctx, &history, query, key.UserID, key.LeaveTypeID, key.Year); err != nil {
		return nil, fmt.Errorf("list leave balance adjustments: %w", err)
	}
	return history, nil
}
