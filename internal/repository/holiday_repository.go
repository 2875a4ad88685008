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

// HolidayRepository persists public holidays.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a HolidayRepository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// List returns holidays, optionally limited to one calendar year.
func (r *HolidayRepository) List(ctx context.Context, year int) ([]models.Holiday, error) {
	query := `SELECT id, holiday_date, name, description, created_at, updated_at FROM holidays`
	var args []interface{}
	if year > 0 {
		query += ` WHERE EXTRACT(YEAR FROM holiday_date) = $1`
		args = append(args, year)
	}
	query += ` ORDER BY holiday_date ASC`
	holidays := []models.Holiday{}
	if err := r.db.SelectContext(ctx, &holidays, query, args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// DatesBetween returns the holiday dates inside [from, to].
func (r *HolidayRepository) DatesBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	const query = `SELECT holiday_date FROM holidays WHERE holiday_date BETWEEN $1 AND $2 ORDER BY holiday_date`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, from, to); err != nil {
		return nil, fmt.Errorf("list holiday dates: %w", err)
	}
	return dates, nil
}

// IsHoliday reports whether the date is a public holiday.
func (r *HolidayRepository) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM holidays WHERE holiday_date = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, date); err != nil {
		return false, fmt.Errorf("check holiday: %w", err)
	}
	return exists, nil
}

// FindByID fetches a holiday.
func (r *HolidayRepository) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	const query = `SELECT id, holiday_date, name, description, created_at, updated_at FROM holidays WHERE id = $1`
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get holiday: %w", err)
	}
	return &holiday, nil
}

// Create inserts a holiday. Dates are unique.
func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	holiday.CreatedAt = now
	holiday.UpdatedAt = now
	const query = `INSERT INTO holidays (id, holiday_date, name, description, created_at, updated_at)
VALUES (:id, :holiday_date, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return writeError("create holiday", err)
	}
	return nil
}

// Update modifies a holiday.
func (r *HolidayRepository) Update(ctx context.Context, holiday *models.Holiday) error {
	holiday.UpdatedAt = time.Now().UTC()
	const query = `UPDATE holidays SET holiday_date = :holiday_date, name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, holiday)
	if err != nil {
		return writeError("update holiday", err)
	}
	return requireAffected(result, "update holiday")
}

// Delete removes a holiday.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return requireAffected(result, "delete holiday")
}
