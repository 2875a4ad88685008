package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type leaveBalanceRepository interface {
	leaveLedgerRepository
	AddAdjustment(ctx context.Context, exec sqlx.ExtContext, adj *models.LeaveBalanceAdjustment) error
	UpsertOpening(ctx context.Context, key models.LeaveBalanceKey, opening decimal.Decimal) (*models.LeaveBalance, error)
	ListByUserYear(ctx context.Context, userID string, year int) ([]models.LeaveBalanceView, error)
	History(ctx context.Context, key models.LeaveBalanceKey) ([]models.LeaveBalanceAdjustment, error)
}

// LeaveBalanceService administers the balance ledger outside the approval workflow.
type LeaveBalanceService struct {
	tx        txProvider
	repo      leaveBalanceRepository
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeaveBalanceService constructs a LeaveBalanceService.
func NewLeaveBalanceService(tx txProvider, repo leaveBalanceRepository, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LeaveBalanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveBalanceService{tx: tx, repo: repo, audit: audit, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// List returns the ledger rows of a teacher for a year with both availability figures.
// Year zero means the current year.
func (s *LeaveBalanceService) List(ctx context.Context, userID string, year int, actor Actor) ([]models.LeaveBalanceView, error) {
	if !actor.IsAdmin() || userID == "" {
		userID = actor.ID
	}
	if year <= 0 {
		year = s.now().Year()
	}
	balances, err := s.repo.ListByUserYear(ctx, userID, year)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list leave balances")
	}
	for i := range balances {
		balances[i].Available = balances[i].LeaveBalance.Available()
		balances[i].DisplayAvailable = balances[i].LeaveBalance.DisplayAvailable(balances[i].LeaveTypeName)
	}
	return balances, nil
}

// SetOpening creates the ledger row or replaces its opening figure.
func (s *LeaveBalanceService) SetOpening(ctx context.Context, req models.SetOpeningBalanceRequest, actor Actor) (*models.LeaveBalance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid opening balance payload")
	}
	if req.OpeningBalance.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "opening_balance must not be negative")
	}
	key := models.LeaveBalanceKey{UserID: req.UserID, LeaveTypeID: req.LeaveTypeID, Year: req.Year}
	balance, err := s.repo.UpsertOpening(ctx, key, req.OpeningBalance)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher or leave type not found")
		}
		return nil, appErrors.Storage(err, "failed to set opening balance")
	}
	s.metrics.RecordLedgerMutation("opening")
	s.record(ctx, actor, models.AuditActionBalanceOpening, key, map[string]interface{}{"opening_balance": req.OpeningBalance})
	return balance, nil
}

// Adjust adds a signed manual adjustment under the same row lock the approval workflow takes.
func (s *LeaveBalanceService) Adjust(ctx context.Context, req models.AdjustBalanceRequest, actor Actor) (*models.LeaveBalance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid adjustment payload")
	}
	if req.Amount.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be zero")
	}
	key := models.LeaveBalanceKey{UserID: req.UserID, LeaveTypeID: req.LeaveTypeID, Year: req.Year}
	started := time.Now()
	defer func() { s.metrics.ObserveDBQuery("balance_adjust_tx", time.Since(started)) }()

	adj := &models.LeaveBalanceAdjustment{
		ID:          uuid.NewString(),
		UserID:      key.UserID,
		LeaveTypeID: key.LeaveTypeID,
		Year:        key.Year,
		Amount:      req.Amount,
		Reason:      strings.TrimSpace(req.Reason),
		CreatedAt:   s.now().UTC(),
	}
	if actor.ID != "" {
		adj.CreatedBy = &actor.ID
	}

	var balance *models.LeaveBalance
	err := inTx(ctx, s.tx, "balance adjustment", func(tx *sqlx.Tx) error {
		var err error
		balance, err = s.repo.GetForUpdate(ctx, tx, key)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNoBalanceConfigured, "no leave balance configured for this teacher, type and year")
		}
		if err != nil {
			return appErrors.Storage(err, "failed to load leave balance")
		}
		if err := s.repo.AddAdjustment(ctx, tx, adj); err != nil {
			return appErrors.Storage(err, "failed to adjust leave balance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	balance.Adjustments = balance.Adjustments.Add(req.Amount)
	balance.UpdatedAt = adj.CreatedAt
	s.metrics.RecordLedgerMutation("adjust")
	s.logger.Info("leave balance adjusted",
		zap.String("user_id", key.UserID),
		zap.String("leave_type_id", key.LeaveTypeID),
		zap.Int("year", key.Year),
		zap.String("amount", req.Amount.String()),
		zap.String("actor_id", actor.ID),
	)
	s.record(ctx, actor, models.AuditActionBalanceAdjust, key, map[string]interface{}{"amount": req.Amount, "reason": adj.Reason})
	return balance, nil
}

// History lists the manual adjustments of one ledger row.
func (s *LeaveBalanceService) History(ctx context.Context, key models.LeaveBalanceKey, actor Actor) ([]models.LeaveBalanceAdjustment, error) {
	if !actor.Owns(key.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another teacher's balance history")
	}
	history, err := s.repo.History(ctx, key)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load adjustment history")
	}
	return history, nil
}

func (s *LeaveBalanceService) record(ctx context.Context, actor Actor, action string, key models.LeaveBalanceKey, values interface{}) {
	if s.audit == nil {
		return
	}
	resourceID := key.UserID + "/" + key.LeaveTypeID + "/" + strconv.Itoa(key.Year)
	entry := models.AuditLog{
		Action:     action,
		Resource:   "leave_balance",
		ResourceID: &resourceID,
		NewValues:  auditValues(values),
	}
	if actor.ID != "" {
		entry.UserID = &actor.ID
	}
	s.audit.Record(ctx, entry)
}
