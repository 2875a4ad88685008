package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type leaveStatusRepository interface {
	GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveRecord, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LeaveStatus, remarks *string, at time.Time) error
}

type leaveTypeReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveType, error)
}

type leaveLedgerRepository interface {
	GetForUpdate(ctx context.Context, exec sqlx.ExtContext, key models.LeaveBalanceKey) (*models.LeaveBalance, error)
	IncrementUsed(ctx context.Context, exec sqlx.ExtContext, key models.LeaveBalanceKey, delta decimal.Decimal) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// ledgerAction is the side effect a status change has on the balance ledger.
type ledgerAction string

const (
	ledgerNone    ledgerAction = "none"
	ledgerDebit   ledgerAction = "debit"
	ledgerRestore ledgerAction = "restore"
)

// ledgerRestoreMissing labels a restore that found no balance row to credit.
const ledgerRestoreMissing = "restore_missing"

// planLedgerAction decides the ledger effect of moving a leave from previous to next.
// Exempt types never touch the ledger. Approving debits once; leaving approved for
// pending or rejected restores the debit. Every other move is ledger-neutral.
func planLedgerAction(next, previous models.LeaveStatus, affectsBalance bool) ledgerAction {
	if !affectsBalance {
		return ledgerNone
	}
	switch next {
	case models.LeaveStatusApproved:
		if previous != models.LeaveStatusApproved {
			return ledgerDebit
		}
	case models.LeaveStatusRejected, models.LeaveStatusPending:
		if previous == models.LeaveStatusApproved {
			return ledgerRestore
		}
	}
	return ledgerNone
}

// LeaveTransitionService applies approval workflow status changes together with their
// balance ledger side effect in a single transaction.
type LeaveTransitionService struct {
	tx      txProvider
	leaves  leaveStatusRepository
	types   leaveTypeReader
	ledger  leaveLedgerRepository
	audit   auditRecorder
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewLeaveTransitionService constructs the service. audit and metrics may be nil.
func NewLeaveTransitionService(tx txProvider, leaves leaveStatusRepository, types leaveTypeReader, ledger leaveLedgerRepository, audit auditRecorder, metrics *MetricsService, logger *zap.Logger) *LeaveTransitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveTransitionService{
		tx:      tx,
		leaves:  leaves,
		types:   types,
		ledger:  ledger,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Transition moves a leave to pending, approved or rejected. The status is validated before
// any storage access; everything after runs in one transaction with the leave row and the
// ledger row locked, so concurrent approvals against one balance serialize.
func (s *LeaveTransitionService) Transition(ctx context.Context, leaveID string, req models.LeaveStatusRequest, actorID string) (*models.LeaveTransitionResult, error) {
	next := models.LeaveStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !next.Transitionable() {
		s.metrics.RecordLeaveTransition("invalid", outcomeLabel(appErrors.ErrInvalidStatus))
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "status must be one of pending, approved, rejected")
	}

	result, err := s.apply(ctx, leaveID, next, req.Remarks)
	s.metrics.RecordLeaveTransition(string(next), outcomeLabel(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave status changed",
		zap.String("leave_id", leaveID),
		zap.String("from", string(result.PreviousStatus)),
		zap.String("to", string(result.Status)),
		zap.String("balance_delta", result.BalanceDelta.String()),
		zap.String("actor_id", actorID),
	)
	if s.audit != nil {
		var userID *string
		if actorID != "" {
			userID = &actorID
		}
		s.audit.Record(ctx, models.AuditLog{
			UserID:     userID,
			Action:     models.AuditActionLeaveTransition,
			Resource:   "leave",
			ResourceID: &leaveID,
			OldValues:  auditValues(map[string]interface{}{"status": result.PreviousStatus}),
			NewValues:  auditValues(map[string]interface{}{"status": result.Status, "balance_delta": result.BalanceDelta, "remarks": req.Remarks}),
		})
	}
	return result, nil
}

func (s *LeaveTransitionService) apply(ctx context.Context, leaveID string, next models.LeaveStatus, remarks *string) (result *models.LeaveTransitionResult, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDBQuery("leave_transition_tx", time.Since(started)) }()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to start leave transition")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	leave, err := s.leaves.GetForUpdate(ctx, tx, leaveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
		}
		return nil, appErrors.Storage(err, "failed to load leave")
	}

	leaveType, err := s.types.FindByID(ctx, tx, leave.LeaveTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave type not found")
		}
		return nil, appErrors.Storage(err, "failed to load leave type")
	}

	days := leave.EffectiveDays()
	key := models.LeaveBalanceKey{UserID: leave.UserID, LeaveTypeID: leave.LeaveTypeID, Year: leave.LedgerYear(s.now())}
	delta := decimal.Zero
	restoreMissing := false

	switch planLedgerAction(next, leave.Status, leaveType.AffectsBalance) {
	case ledgerDebit:
		balance, lockErr := s.ledger.GetForUpdate(ctx, tx, key)
		if lockErr != nil {
			if errors.Is(lockErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNoBalanceConfigured, "no leave balance configured for this teacher, type and year")
			}
			return nil, appErrors.Storage(lockErr, "failed to load leave balance")
		}
		if !balance.CanApprove(days) {
			return nil, appErrors.Clone(appErrors.ErrInsufficientBalance,
				fmt.Sprintf("insufficient leave balance: available %s, requested %s", balance.Available().String(), days.String()))
		}
		if err = s.ledger.IncrementUsed(ctx, tx, key, days); err != nil {
			return nil, appErrors.Storage(err, "failed to debit leave balance")
		}
		delta = days
	case ledgerRestore:
		_, lockErr := s.ledger.GetForUpdate(ctx, tx, key)
		switch {
		case lockErr == nil:
			if err = s.ledger.IncrementUsed(ctx, tx, key, days.Neg()); err != nil {
				return nil, appErrors.Storage(err, "failed to restore leave balance")
			}
			delta = days.Neg()
		case errors.Is(lockErr, sql.ErrNoRows):
			s.logger.Warn("approved leave has no balance row to restore",
				zap.String("leave_id", leaveID), zap.String("user_id", key.UserID),
				zap.String("leave_type_id", key.LeaveTypeID), zap.Int("year", key.Year))
			restoreMissing = true
		default:
			return nil, appErrors.Storage(lockErr, "failed to load leave balance")
		}
	}

	if err = s.leaves.UpdateStatus(ctx, tx, leaveID, next, remarks, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
		}
		return nil, appErrors.Storage(err, "failed to update leave status")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Storage(err, "failed to commit leave transition")
	}

	switch {
	case delta.IsPositive():
		s.metrics.RecordLedgerMutation(string(ledgerDebit))
	case delta.IsNegative():
		s.metrics.RecordLedgerMutation(string(ledgerRestore))
	case restoreMissing:
		s.metrics.RecordLedgerMutation(ledgerRestoreMissing)
	}

	return &models.LeaveTransitionResult{
		LeaveID:        leaveID,
		Status:         next,
		PreviousStatus: leave.Status,
		BalanceDelta:   delta,
	}, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(appErrors.FromError(err).Code)
}
