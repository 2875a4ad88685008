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

const lectureViewSelect = `SELECT le.id, le.teacher_id, le.course_id, le.subject_id, le.topic_id, le.lecture_date,
	le.start_time, le.end_time, le.hours, le.summary, le.remarks, le.created_at, le.updated_at,
	u.full_name AS teacher_name, c.name AS course_name, s.name AS subject_name, t.title AS topic_title
FROM lecture_entries le
JOIN users u ON u.id = le.teacher_id
JOIN courses c ON c.id = le.course_id
JOIN subjects s ON s.id = le.subject_id
LEFT JOIN topics t ON t.id = le.topic_id`

// LectureRepository persists lecture diary entries.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository constructs a LectureRepository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

func buildLectureConditions(filter models.LectureFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("le.teacher_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("le.course_id = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("le.subject_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("le.lecture_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("le.lecture_date <= $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of diary entries with catalog names and the total count.
func (r *LectureRepository) List(ctx context.Context, filter models.LectureFilter) ([]models.LectureEntryView, int, error) {
	where, args := buildLectureConditions(filter)
	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY le.lecture_date DESC, le.start_time DESC LIMIT %d OFFSET %d", lectureViewSelect, where, size, (page-1)*size)

	entries := []models.LectureEntryView{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lecture entries: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM lecture_entries le"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count lecture entries: %w", err)
	}
	return entries, total, nil
}

// ListAll returns every entry matching the filter for exports.
func (r *LectureRepository) ListAll(ctx context.Context, filter models.LectureFilter) ([]models.LectureEntryView, error) {
	where, args := buildLectureConditions(filter)
	query := lectureViewSelect + where + " ORDER BY le.lecture_date ASC, le.start_time ASC"
	entries := []models.LectureEntryView{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("export lecture entries: %w", err)
	}
	return entries, nil
}

// FindByID fetches a diary entry.
func (r *LectureRepository) FindByID(ctx context.Context, id string) (*models.LectureEntryView, error) {
	var entry models.LectureEntryView
	if err := r.db.GetContext(ctx, &entry, lectureViewSelect+" WHERE le.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get lecture entry: %w", err)
	}
	return &entry, nil
}

// Create inserts a diary entry.
func (r *LectureRepository) Create(ctx context.Context, entry *models.LectureEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	const query = `INSERT INTO lecture_entries (id, teacher_id, course_id, subject_id, topic_id, lecture_date, start_time, end_time, hours, summary, remarks, created_at, updated_at)
VALUES (:id, :teacher_id, :course_id, :subject_id, :topic_id, :lecture_date, :start_time, :end_time, :hours, :summary, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return writeError("create lecture entry", err)
	}
	return nil
}

// Update modifies a diary entry.
func (r *LectureRepository) Update(ctx context.Context, entry *models.LectureEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lecture_entries SET course_id = :course_id, subject_id = :subject_id, topic_id = :topic_id, lecture_date = :lecture_date,
	start_time = :start_time, end_time = :end_time, hours = :hours, summary = :summary, remarks = :remarks, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return writeError("update lecture entry", err)
	}
	return requireAffected(result, "update lecture entry")
}

// Delete removes a diary entry.
func (r *LectureRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM lecture_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lecture entry: %w", err)
	}
	return requireAffected(result, "delete lecture entry")
}
