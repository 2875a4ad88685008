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

// TopicRepository persists syllabus topics.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository constructs a TopicRepository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// ListBySubject returns the topics of a subject in syllabus order.
func (r *TopicRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.Topic, error) {
	const query = `SELECT id, subject_id, title, sequence, planned_hours, created_at, updated_at FROM topics WHERE subject_id = $1 ORDER BY sequence ASC, title ASC`
	topics := []models.Topic{}
	if err := r.db.SelectContext(ctx, &topics, query, subjectID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// FindByID fetches a topic.
func (r *TopicRepository) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	const query = `SELECT id, subject_id, title, sequence, planned_hours, created_at, updated_at FROM topics WHERE id = $1`
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &topic, nil
}

// Create inserts a topic.
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	topic.CreatedAt = now
	topic.UpdatedAt = now
	const query = `INSERT INTO topics (id, subject_id, title, sequence, planned_hours, created_at, updated_at)
VALUES (:id, :subject_id, :title, :sequence, :planned_hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return writeError("create topic", err)
	}
	return nil
}

// Update modifies a topic.
func (r *TopicRepository) Update(ctx context.Context, topic *models.Topic) error {
	topic.UpdatedAt = time.Now().UTC()
	const query = `UPDATE topics SET title = :title, sequence = :sequence, planned_hours = :planned_hours, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, topic)
	if err != nil {
		return writeError("update topic", err)
	}
	return requireAffected(result, "update topic")
}

// Delete removes a topic.
func (r *TopicRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return writeError("delete topic", err)
	}
	return requireAffected(result, "delete topic")
}
