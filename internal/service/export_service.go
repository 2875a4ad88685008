package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/export"
	"github.com/noah-isme/lecture-diary-api/pkg/storage"
)

const (
	reportLeaveRegister = "leave_register"
	reportDiary         = "lecture_diary"
)

type leaveRegisterSource interface {
	ListAll(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRecordView, error)
}

type diarySource interface {
	ListAll(ctx context.Context, filter models.LectureFilter) ([]models.LectureEntryView, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	Prune(maxAge time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders report datasets and persists the files behind signed download links.
type ExportService struct {
	leaves    leaveRegisterSource
	lectures  diarySource
	storage   fileStorage
	csv       datasetRenderer
	pdf       datasetRenderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the default exporters.
func NewExportService(leaves leaveRegisterSource, lectures diarySource, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithByteOrderMark())
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		leaves:    leaves,
		lectures:  lectures,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// LeaveRegister exports leave applications. Teachers can only export their own.
func (s *ExportService) LeaveRegister(ctx context.Context, req models.LeaveReportRequest, actor Actor) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid report request")
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown leave status filter")
	}
	filter := models.LeaveFilter{UserID: req.UserID, Status: req.Status, LeaveTypeID: req.LeaveTypeID, Year: req.Year}
	if !actor.IsAdmin() {
		filter.UserID = actor.ID
	}
	rows, err := s.leaves.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load leave register")
	}

	dataset := export.Dataset{
		Title: "Leave Register",
		Columns: []export.Column{
			{Key: "teacher", Label: "Teacher", Weight: 1.5},
			{Key: "type", Label: "Leave Type", Weight: 1.5},
			{Key: "start", Label: "Start"},
			{Key: "end", Label: "End"},
			{Key: "days", Label: "Days", Weight: 0.6},
			{Key: "status", Label: "Status", Weight: 0.8},
			{Key: "reason", Label: "Reason", Weight: 2},
			{Key: "remarks", Label: "Remarks", Weight: 1.5},
		},
	}
	if req.Year > 0 {
		dataset.Title = fmt.Sprintf("Leave Register %d", req.Year)
	}
	for _, row := range rows {
		dataset.Append(map[string]string{
			"teacher": row.UserName,
			"type":    row.LeaveTypeName,
			"start":   formatDate(row.StartDate),
			"end":     formatDate(row.EndDate),
			"days":    row.EffectiveDays().String(),
			"status":  string(row.Status),
			"reason":  row.Reason,
			"remarks": derefString(row.Remarks),
		})
	}
	return s.store(reportLeaveRegister, req.Format, dataset, actor)
}

// Diary exports lecture diary entries. Teachers can only export their own.
func (s *ExportService) Diary(ctx context.Context, req models.DiaryReportRequest, actor Actor) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid report request")
	}
	filter := models.LectureFilter{TeacherID: req.TeacherID, CourseID: req.CourseID, SubjectID: req.SubjectID}
	if !actor.IsAdmin() {
		filter.TeacherID = actor.ID
	}
	if req.From != "" {
		from, _ := time.Parse(dateLayout, req.From)
		filter.From = &from
	}
	if req.To != "" {
		to, _ := time.Parse(dateLayout, req.To)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	rows, err := s.lectures.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load lecture diary")
	}

	dataset := export.Dataset{
		Title: "Lecture Diary",
		Columns: []export.Column{
			{Key: "date", Label: "Date"},
			{Key: "teacher", Label: "Teacher", Weight: 1.4},
			{Key: "course", Label: "Course", Weight: 1.4},
			{Key: "subject", Label: "Subject", Weight: 1.4},
			{Key: "topic", Label: "Topic", Weight: 1.4},
			{Key: "time", Label: "Time"},
			{Key: "hours", Label: "Hours", Weight: 0.6},
			{Key: "summary", Label: "Summary", Weight: 2.5},
		},
	}
	for _, row := range rows {
		dataset.Append(map[string]string{
			"date":    row.LectureDate.Format(dateLayout),
			"teacher": row.TeacherName,
			"course":  row.CourseName,
			"subject": row.SubjectName,
			"topic":   derefString(row.TopicTitle),
			"time":    row.StartTime + "-" + row.EndTime,
			"hours":   fmt.Sprintf("%.2f", row.Hours),
			"summary": row.Summary,
		})
	}
	return s.store(reportDiary, req.Format, dataset, actor)
}

func (s *ExportService) store(report string, format models.ReportFormat, dataset export.Dataset, actor Actor) (*models.ExportResult, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to render report")
	}

	id := uuid.NewString()
	filename := fmt.Sprintf("%s_%s_%s.%s", report, s.now().UTC().Format("20060102_150405"), id[:8], format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to store report")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("orphaned export left behind", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to sign download link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.metrics.RecordExport(report, string(format))
	s.logger.Info("report exported",
		zap.String("report", report),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)),
		zap.String("actor_id", actor.ID),
	)
	return &models.ExportResult{
		ID:        id,
		Format:    format,
		Rows:      len(dataset.Rows),
		URL:       fmt.Sprintf("%s/reports/download?token=%s", prefix, token),
		ExpiresAt: expiresAt,
		Path:      relPath,
	}, nil
}

// Open resolves a download token to the stored file and its download name.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, "", appErrors.ErrInternal.WithCause(err, "failed to open export")
	}
	return file, filepath.Base(relPath), nil
}

// Cleanup removes files older than ttl, or the configured result TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.Prune(ttl)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
