package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "department", "active", "last_login", "created_at", "updated_at"}).
		AddRow("t1", "a@example.com", "Teacher A", "Physics", true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u WHERE u.role = 'TEACHER' AND u.department = $1 ORDER BY u.full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("Physics").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u WHERE u.role = 'TEACHER' AND u.department = $1")).
		WithArgs("Physics").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{Department: "Physics"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Physics", *list[0].Department)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateWithCoursesInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "a@example.com", "hash", "Teacher A", "TEACHER", nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_courses WHERE teacher_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO teacher_courses").
		WithArgs(sqlmock.AnyArg(), pq.Array([]string{"c1", "c2"}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	teacher := &models.Teacher{Email: "a@example.com", FullName: "Teacher A", Active: true}
	require.NoError(t, repo.Create(context.Background(), tx, teacher, "hash"))
	require.NoError(t, repo.ReplaceCourses(context.Background(), tx, teacher.ID, []string{"c1", "c2"}))
	require.NoError(t, tx.Commit())
	assert.NotEmpty(t, teacher.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryDeactivateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("UPDATE users SET active = FALSE").
		WithArgs("id-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "id-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id::text <> $2)")).
		WithArgs("a@example.com", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := repo.ExistsByEmail(context.Background(), "a@example.com", "t1")
	require.NoError(t, err)
	assert.False(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListSearchReusesPlaceholder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)
	active := true

	scope := "FROM users u WHERE u.role = 'TEACHER' AND u.active = $1 AND (LOWER(u.full_name) LIKE $2 OR LOWER(u.email) LIKE $2)"
	mock.ExpectQuery(regexp.QuoteMeta(scope + " ORDER BY u.email DESC LIMIT 5 OFFSET 5")).
		WithArgs(true, "%asha%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) " + scope)).
		WithArgs(true, "%asha%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{Active: &active, Search: "Asha", SortBy: "email", SortOrder: "desc", Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryFindMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("u.id = $1")).WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTeacherRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), nil, &models.Teacher{Email: "a@example.com", FullName: "A"}, "hash")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
