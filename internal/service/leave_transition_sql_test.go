package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

var (
	leaveLockColumns    = []string{"id", "user_id", "start_date", "end_date", "date", "reason", "days", "status", "leave_type_id", "course_id", "remarks", "created_at", "updated_at"}
	leaveTypeRowColumns = []string{"id", "name", "max_per_year", "carry_forward", "affects_balance", "description", "created_at", "updated_at"}
	balanceLockColumns  = []string{"user_id", "leave_type_id", "year", "opening_balance", "used", "adjustments", "updated_at"}
)

// newSQLTransitionService wires the transition to the Postgres repositories over sqlmock.
func newSQLTransitionService(t *testing.T) (*LeaveTransitionService, sqlmock.Sqlmock, *MetricsService) {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	metrics := NewMetricsService()
	svc := NewLeaveTransitionService(tx,
		repository.NewLeaveRepository(tx.db),
		repository.NewLeaveTypeRepository(tx.db),
		repository.NewLeaveBalanceRepository(tx.db),
		nil, metrics, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return svc, mock, metrics
}

func expectLockedPendingLeave(mock sqlmock.Sqlmock, opening, used string) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM leaves WHERE id = $1 FOR UPDATE")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(leaveLockColumns).
			AddRow("l1", "teacher-1", start, start, start, "family function", "3", "pending", "cl", nil, nil, start, start))
	mock.ExpectQuery(regexp.QuoteMeta("FROM leave_types WHERE id = $1")).
		WithArgs("cl").
		WillReturnRows(sqlmock.NewRows(leaveTypeRowColumns).
			AddRow("cl", "Casual Leave (CL)", 12, false, true, nil, start, start))
	mock.ExpectQuery(regexp.QuoteMeta("FROM leave_balances WHERE user_id = $1 AND leave_type_id = $2 AND year = $3 FOR UPDATE")).
		WithArgs("teacher-1", "cl", 2024).
		WillReturnRows(sqlmock.NewRows(balanceLockColumns).
			AddRow("teacher-1", "cl", 2024, opening, used, "0", start))
}

func TestTransitionStatusWriteFailureRollsBackDebit(t *testing.T) {
	svc, mock, metrics := newSQLTransitionService(t)
	expectLockedPendingLeave(mock, "12", "0")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_balances SET used = used + $4")).
		WithArgs("teacher-1", "cl", 2024, "3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leaves SET status")).
		WithArgs("l1", "approved", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.Transition(context.Background(), "l1", statusReq("approved"), "admin-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorageFailure))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ledgerMutations.WithLabelValues("debit")))
	// no ExpectCommit is registered, so a commit would fail here
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionInsufficientBalanceRollsBackWithoutWrites(t *testing.T) {
	svc, mock, _ := newSQLTransitionService(t)
	expectLockedPendingLeave(mock, "5", "3")
	mock.ExpectRollback()

	_, err := svc.Transition(context.Background(), "l1", statusReq("approved"), "admin-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInsufficientBalance))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionApprovalCommitsDebitAndStatus(t *testing.T) {
	svc, mock, metrics := newSQLTransitionService(t)
	expectLockedPendingLeave(mock, "12", "2")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_balances SET used = used + $4")).
		WithArgs("teacher-1", "cl", 2024, "3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leaves SET status")).
		WithArgs("l1", "approved", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Transition(context.Background(), "l1", statusReq("approved"), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusPending, result.PreviousStatus)
	assert.True(t, dec("3").Equal(result.BalanceDelta))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ledgerMutations.WithLabelValues("debit")))
	require.NoError(t, mock.ExpectationsWereMet())
}
