package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

var balanceKey = models.LeaveBalanceKey{UserID: "u1", LeaveTypeID: "cl", Year: 2025}

func TestLeaveBalanceGetForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM leave_balances WHERE user_id = $1 AND leave_type_id = $2 AND year = $3 FOR UPDATE")).
		WithArgs("u1", "cl", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "leave_type_id", "year", "opening_balance", "used", "adjustments", "updated_at"}).
			AddRow("u1", "cl", 2025, "12.00", "2.50", "-1.00", time.Now()))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	balance, err := repo.GetForUpdate(context.Background(), tx, balanceKey)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.True(t, balance.Available().Equal(decimal.RequireFromString("8.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveBalanceGetForUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectQuery("FROM leave_balances").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForUpdate(context.Background(), nil, balanceKey)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveBalanceIncrementUsedIsRelative(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_balances SET used = used + $4")).
		WithArgs("u1", "cl", 2025, decimal.RequireFromString("-1.5"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementUsed(context.Background(), nil, balanceKey, decimal.RequireFromString("-1.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveBalanceAddAdjustmentWritesHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	actor := "admin-1"
	adj := &models.LeaveBalanceAdjustment{UserID: "u1", LeaveTypeID: "cl", Year: 2025, Amount: decimal.NewFromInt(2), Reason: "carry over", CreatedBy: &actor}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_balances SET adjustments = adjustments + $4")).
		WithArgs("u1", "cl", 2025, decimal.NewFromInt(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO leave_balance_adjustments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.AddAdjustment(context.Background(), nil, adj))
	assert.NotEmpty(t, adj.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveBalanceAddAdjustmentWithoutRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectExec("UPDATE leave_balances SET adjustments").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AddAdjustment(context.Background(), nil, &models.LeaveBalanceAdjustment{UserID: "u1", LeaveTypeID: "cl", Year: 2025, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveBalanceUpsertOpening(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, leave_type_id, year) DO UPDATE SET opening_balance = EXCLUDED.opening_balance")).
		WithArgs("u1", "cl", 2025, decimal.NewFromInt(12), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "leave_type_id", "year", "opening_balance", "used", "adjustments", "updated_at"}).
			AddRow("u1", "cl", 2025, "12", "3", "0", time.Now()))

	balance, err := repo.UpsertOpening(context.Background(), balanceKey, decimal.NewFromInt(12))
	require.NoError(t, err)
	assert.True(t, balance.Used.Equal(decimal.NewFromInt(3)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveBalanceListByUserYear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectQuery("FROM leave_balances b").
		WithArgs("u1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "leave_type_id", "year", "opening_balance", "used", "adjustments", "updated_at", "leave_type_name"}).
			AddRow("u1", "cl", 2025, "12", "0", "0", time.Now(), "Casual Leave (CL)").
			AddRow("u1", "ml", 2025, "90", "0", "0", time.Now(), "Maternity Leave (ML)"))

	list, err := repo.ListByUserYear(context.Background(), "u1", 2025)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Maternity Leave (ML)", list[1].LeaveTypeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
