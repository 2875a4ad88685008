package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

const leaveColumns = `id, user_id, start_date, end_date, date, reason, days, status, leave_type_id, course_id, remarks, created_at, updated_at`

const leaveViewSelect = `SELECT l.id, l.user_id, l.start_date, l.end_date, l.date, l.reason, l.days, l.status, l.leave_type_id,
	l.course_id, l.remarks, l.created_at, l.updated_at, u.full_name AS user_name, lt.name AS leave_type_name
FROM leaves l
JOIN users u ON u.id = l.user_id
JOIN leave_types lt ON lt.id = l.leave_type_id`

// LeaveRepository persists leave applications.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

func (r *LeaveRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a leave application.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRecord) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	leave.CreatedAt = now
	leave.UpdatedAt = now
	query := `INSERT INTO leaves (` + leaveColumns + `)
VALUES (:id, :user_id, :start_date, :end_date, :date, :reason, :days, :status, :leave_type_id, :course_id, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return writeError("create leave", err)
	}
	return nil
}

// FindByID fetches a leave application with its owner and type names.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRecordView, error) {
	var leave models.LeaveRecordView
	if err := r.db.GetContext(ctx, &leave, leaveViewSelect+" WHERE l.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get leave: %w", err)
	}
	return &leave, nil
}

// GetForUpdate loads and row-locks a leave application inside the caller's transaction.
func (r *LeaveRepository) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveRecord, error) {
	query := `SELECT ` + leaveColumns + ` FROM leaves WHERE id = $1 FOR UPDATE`
	var leave models.LeaveRecord
	if err := sqlx.GetContext(ctx, r.exec(exec), &leave, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock leave: %w", err)
	}
	return &leave, nil
}

// UpdateStatus sets the status and touches updated_at. Remarks are replaced only when provided.
func (r *LeaveRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LeaveStatus, remarks *string, at time.Time) error {
	const query = `UPDATE leaves SET status = $2, remarks = COALESCE($3::text, remarks), updated_at = $4 WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id, status, remarks, at)
	if err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	return requireAffected(result, "update leave status")
}

func buildLeaveConditions(filter models.LeaveFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("l.user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if filter.LeaveTypeID != "" {
		args = append(args, filter.LeaveTypeID)
		conditions = append(conditions, fmt.Sprintf("l.leave_type_id = $%d", len(args)))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM COALESCE(l.start_date, l.date, l.created_at)) = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of leave applications and the total count.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRecordView, int, error) {
	where, args := buildLeaveConditions(filter)
	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY l.created_at DESC LIMIT %d OFFSET %d", leaveViewSelect, where, size, (page-1)*size)

	leaves := []models.LeaveRecordView{}
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leaves: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leaves l"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count leaves: %w", err)
	}
	return leaves, total, nil
}

// ListAll returns every application matching the filter for the leave register export.
func (r *LeaveRepository) ListAll(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRecordView, error) {
	where, args := buildLeaveConditions(filter)
	leaves := []models.LeaveRecordView{}
	if err := r.db.SelectContext(ctx, &leaves, leaveViewSelect+where+" ORDER BY u.full_name ASC, l.start_date ASC", args...); err != nil {
		return nil, fmt.Errorf("export leaves: %w", err)
	}
	return leaves, nil
}
