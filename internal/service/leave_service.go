package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

var halfDay = decimal.New(5, -1)

type leaveRepository interface {
	leaveStatusRepository
	Create(ctx context.Context, leave *models.LeaveRecord) error
	FindByID(ctx context.Context, id string) (*models.LeaveRecordView, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRecordView, int, error)
}

type holidayCalendar interface {
	DatesBetween(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// LeaveService handles leave applications and escalation.
type LeaveService struct {
	tx        txProvider
	leaves    leaveRepository
	types     leaveTypeReader
	holidays  holidayCalendar
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(tx txProvider, leaves leaveRepository, types leaveTypeReader, holidays holidayCalendar, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		tx:        tx,
		leaves:    leaves,
		types:     types,
		holidays:  holidays,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Apply submits a pending leave application for the acting teacher.
func (s *LeaveService) Apply(ctx context.Context, req models.ApplyLeaveRequest, actor Actor) (*models.LeaveRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid leave payload")
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must use YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must use YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if req.HalfDay && !start.Equal(end) && req.Days == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "half day leave must start and end on the same date")
	}

	if _, err := s.types.FindByID(ctx, nil, req.LeaveTypeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave type not found")
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to load leave type")
	}

	days, err := s.resolveDays(ctx, req, start, end)
	if err != nil {
		return nil, err
	}

	leave := &models.LeaveRecord{
		UserID:      actor.ID,
		StartDate:   &start,
		EndDate:     &end,
		Date:        &start,
		Reason:      strings.TrimSpace(req.Reason),
		Days:        decimal.NullDecimal{Decimal: days, Valid: true},
		Status:      models.LeaveStatusPending,
		LeaveTypeID: req.LeaveTypeID,
		CourseID:    normalizeOptional(req.CourseID),
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course or leave type does not exist")
		}
		return nil, appErrors.Storage(err, "failed to create leave")
	}

	s.logger.Info("leave applied",
		zap.String("leave_id", leave.ID),
		zap.String("user_id", leave.UserID),
		zap.String("days", days.String()),
	)
	return leave, nil
}

// resolveDays uses the requested quantity or counts working days, skipping Sundays and holidays.
func (s *LeaveService) resolveDays(ctx context.Context, req models.ApplyLeaveRequest, start, end time.Time) (decimal.Decimal, error) {
	if req.Days != nil {
		days := *req.Days
		if !days.IsPositive() {
			return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "days must be greater than zero")
		}
		if !days.Mod(halfDay).IsZero() {
			return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "days must be a multiple of 0.5")
		}
		return days, nil
	}

	holidays, err := s.holidays.DatesBetween(ctx, start, end)
	if err != nil {
		return decimal.Zero, appErrors.ErrInternal.WithCause(err, "failed to load holidays")
	}
	days := decimal.NewFromInt(int64(workingDays(start, end, holidays)))
	if req.HalfDay {
		days = days.Sub(halfDay)
	}
	if !days.IsPositive() {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "leave period contains no working days")
	}
	return days, nil
}

// workingDays counts the dates in [start, end] that are neither Sundays nor holidays.
func workingDays(start, end time.Time, holidays []time.Time) int {
	off := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		off[h.Format(dateLayout)] = struct{}{}
	}
	count := 0
	for d := truncateDay(start); !d.After(truncateDay(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		if _, ok := off[d.Format(dateLayout)]; ok {
			continue
		}
		count++
	}
	return count
}

// List returns leave applications. Teachers only see their own.
func (s *LeaveService) List(ctx context.Context, filter models.LeaveFilter, actor Actor) ([]models.LeaveRecordView, *models.Pagination, error) {
	if !actor.IsAdmin() {
		filter.UserID = actor.ID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown leave status filter")
	}
	leaves, total, err := s.leaves.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list leaves")
	}
	return leaves, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one leave application visible to the actor.
func (s *LeaveService) Get(ctx context.Context, id string, actor Actor) (*models.LeaveRecordView, error) {
	leave, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
		}
		return nil, appErrors.Storage(err, "failed to load leave")
	}
	if !actor.Owns(leave.UserID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
	}
	return leave, nil
}

// Escalate marks a leave as escalated. Balances are never touched, so an approved leave
// has to be moved back to pending through the approval workflow first.
func (s *LeaveService) Escalate(ctx context.Context, id string, req models.EscalateLeaveRequest, actor Actor) (*models.LeaveRecord, error) {
	var (
		leave    *models.LeaveRecord
		previous models.LeaveStatus
		at       = s.now().UTC()
	)
	err := inTx(ctx, s.tx, "leave escalation", func(tx *sqlx.Tx) error {
		var err error
		leave, err = s.leaves.GetForUpdate(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "leave not found")
		}
		if err != nil {
			return appErrors.Storage(err, "failed to load leave")
		}
		if leave.Status == models.LeaveStatusApproved {
			return appErrors.Clone(appErrors.ErrConflict, "approved leave cannot be escalated")
		}
		previous = leave.Status
		if err := s.leaves.UpdateStatus(ctx, tx, id, models.LeaveStatusEscalated, req.Remarks, at); err != nil {
			return appErrors.Storage(err, "failed to escalate leave")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	leave.Status = models.LeaveStatusEscalated
	leave.UpdatedAt = at
	if req.Remarks != nil {
		leave.Remarks = req.Remarks
	}
	if s.audit != nil {
		entry := models.AuditLog{
			Action:     models.AuditActionLeaveEscalate,
			Resource:   "leave",
			ResourceID: &leave.ID,
			OldValues:  auditValues(map[string]interface{}{"status": previous}),
			NewValues:  auditValues(map[string]interface{}{"status": leave.Status, "remarks": req.Remarks}),
		}
		if actor.ID != "" {
			entry.UserID = &actor.ID
		}
		s.audit.Record(ctx, entry)
	}
	return leave, nil
}
