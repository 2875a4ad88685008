package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

// CourseRepository persists courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns every course ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, code, name, description, created_at, updated_at FROM courses ORDER BY code ASC`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, description, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &course, nil
}

// ExistsByCode reports whether another course already uses the code.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check course code: %w", err)
	}
	return exists, nil
}

// CountExisting returns how many of the given ids exist.
func (r *CourseRepository) CountExisting(ctx context.Context, ids []string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE id = ANY($1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, description, created_at, updated_at) VALUES (:id, :code, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return writeError("create course", err)
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return writeError("update course", err)
	}
	return requireAffected(result, "update course")
}

// Delete removes a course. Subjects cascade; lecture entries block deletion through their foreign key.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return writeError("delete course", err)
	}
	return requireAffected(result, "delete course")
}
