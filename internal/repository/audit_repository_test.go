package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListByResource(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("e1", "a1", models.AuditActionLeaveTransition, "leave", "l1", []byte(`{"status":"pending"}`), []byte(`{"status":"approved"}`), "", "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE resource = $1 AND resource_id = $2")).
		WithArgs("leave", "l1", 50).
		WillReturnRows(rows)

	logs, err := repo.ListByResource(context.Background(), "leave", "l1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionLeaveTransition, logs[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}
