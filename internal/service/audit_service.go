package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditLogRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

type auditQueue interface {
	Submit(job jobs.Job) error
}

// AuditService writes audit trail entries off the request path. When no queue is attached
// entries are written inline.
type AuditService struct {
	repo    auditLogRepository
	queue   auditQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs an AuditService. Attach a queue with UseQueue.
func NewAuditService(repo auditLogRepository, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger}
}

// UseQueue routes subsequent entries through the background queue.
func (s *AuditService) UseQueue(queue auditQueue) {
	s.queue = queue
}

// Record stores an entry. Failures are logged and never surface to the caller.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if s == nil || s.repo == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if s.queue != nil {
		err := s.queue.Submit(jobs.Job{ID: entry.ID, Kind: auditJobType, Payload: entry})
		if err == nil {
			return
		}
		s.metrics.RecordAuditFallback()
		s.logger.Warn("audit enqueue failed, writing inline", zap.String("action", entry.Action), zap.Error(err))
	}
	if err := s.repo.CreateAuditLog(ctx, &entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

// Handle is the queue handler persisting queued entries.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("job_id", job.ID), zap.String("kind", job.Kind))
		return nil
	}
	if err := s.repo.CreateAuditLog(ctx, &entry); err != nil {
		return fmt.Errorf("persist audit log %s: %w", entry.ID, err)
	}
	return nil
}

// Trail lists the recorded actions on one resource, newest first.
func (s *AuditService) Trail(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	if resource == "" || resourceID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resource and resource_id are required")
	}
	logs, err := s.repo.ListByResource(ctx, resource, resourceID, limit)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load audit trail")
	}
	return logs, nil
}

func auditValues(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
