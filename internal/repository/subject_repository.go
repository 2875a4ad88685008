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

// SubjectRepository persists subjects of a course.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByCourse returns the subjects of a course ordered by semester and code.
func (r *SubjectRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Subject, error) {
	const query = `SELECT id, course_id, code, name, semester, created_at, updated_at FROM subjects WHERE course_id = $1 ORDER BY semester ASC, code ASC`
	subjects := []models.Subject{}
	if err := r.db.SelectContext(ctx, &subjects, query, courseID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, course_id, code, name, semester, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &subject, nil
}

// ExistsByCode checks code uniqueness within a course.
func (r *SubjectRepository) ExistsByCode(ctx context.Context, courseID, code, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subjects WHERE course_id = $1 AND LOWER(code) = LOWER($2) AND id <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, courseID, code, excludeID); err != nil {
		return false, fmt.Errorf("check subject code: %w", err)
	}
	return exists, nil
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, course_id, code, name, semester, created_at, updated_at)
VALUES (:id, :course_id, :code, :name, :semester, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return writeError("create subject", err)
	}
	return nil
}

// Update modifies a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET code = :code, name = :name, semester = :semester, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return writeError("update subject", err)
	}
	return requireAffected(result, "update subject")
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return writeError("delete subject", err)
	}
	return requireAffected(result, "delete subject")
}
