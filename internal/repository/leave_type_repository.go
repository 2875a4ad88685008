package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

const leaveTypeColumns = `id, name, max_per_year, carry_forward, affects_balance, description, created_at, updated_at`

// LeaveTypeRepository persists the leave type catalog.
type LeaveTypeRepository struct {
	db *sqlx.DB
}

// NewLeaveTypeRepository constructs a LeaveTypeRepository.
func NewLeaveTypeRepository(db *sqlx.DB) *LeaveTypeRepository {
	return &LeaveTypeRepository{db: db}
}

func (r *LeaveTypeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns the catalog ordered by name.
func (r *LeaveTypeRepository) List(ctx context.Context) ([]models.LeaveType, error) {
	types := []models.LeaveType{}
	if err := r.db.SelectContext(ctx, &types, `SELECT `+leaveTypeColumns+` FROM leave_types ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}
	return types, nil
}

// FindByID fetches a leave type, optionally inside a transaction.
func (r *LeaveTypeRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveType, error) {
	var lt models.LeaveType
	if err := sqlx.GetContext(ctx, r.exec(exec), &lt, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get leave type: %w", err)
	}
	return &lt, nil
}

// ExistsByName reports whether another type already uses the name.
func (r *LeaveTypeRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM leave_types WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check leave type name: %w", err)
	}
	return exists, nil
}

// Create inserts a leave type.
func (r *LeaveTypeRepository) Create(ctx context.Context, lt *models.LeaveType) error {
	if lt.ID == "" {
		lt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lt.CreatedAt = now
	lt.UpdatedAt = now
	query := `INSERT INTO leave_types (` + leaveTypeColumns + `)
VALUES (:id, :name, :max_per_year, :carry_forward, :affects_balance, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lt); err != nil {
		return writeError("create leave type", err)
	}
	return nil
}

// Update modifies a leave type.
func (r *LeaveTypeRepository) Update(ctx context.Context, lt *models.LeaveType) error {
	lt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE leave_types SET name = :name, max_per_year = :max_per_year, carry_forward = :carry_forward,
	affects_balance = :affects_balance, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, lt)
	if err != nil {
		return writeError("update leave type", err)
	}
	return requireAffected(result, "update leave type")
}
