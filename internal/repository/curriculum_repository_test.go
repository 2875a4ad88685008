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

func TestCourseRepositoryListAndCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, description, created_at, updated_at FROM courses ORDER BY code ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "description", "created_at", "updated_at"}).
			AddRow("c1", "BSC-CS", "B.Sc Computer Science", nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE id = ANY($1)")).
		WithArgs(pq.Array([]string{"c1", "c9"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	count, err := repo.CountExisting(context.Background(), []string{"c1", "c9"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteReferenced(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.Delete(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrReferenced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE course_id = $1 AND LOWER(code) = LOWER($2) AND id <> $3")).
		WithArgs("c1", "CS101", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByCode(context.Background(), "c1", "CS101", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectExec("UPDATE topics SET title").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Topic{ID: "t1", Title: "Sorting"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryListByYear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	day := time.Date(2025, 1, 26, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM holidays WHERE EXTRACT(YEAR FROM holiday_date) = $1 ORDER BY holiday_date ASC")).
		WithArgs(2025).
		WillReturnRows(sqlmock.NewRows([]string{"id", "holiday_date", "name", "description", "created_at", "updated_at"}).
			AddRow("h1", day, "Republic Day", nil, time.Now(), time.Now()))

	holidays, err := repo.List(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.True(t, holidays[0].Date.Equal(day))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectExec("INSERT INTO holidays").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Holiday{Date: time.Now(), Name: "Diwali"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE le.teacher_id = $1 AND le.lecture_date >= $2 ORDER BY le.lecture_date DESC, le.start_time DESC LIMIT 20 OFFSET 0")).
		WithArgs("t1", from).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "teacher_id", "course_id", "subject_id", "topic_id", "lecture_date", "start_time", "end_time", "hours", "summary", "remarks",
			"created_at", "updated_at", "teacher_name", "course_name", "subject_name", "topic_title",
		}).AddRow("e1", "t1", "c1", "s1", nil, from, "09:00:00", "10:30:00", 1.5, "Intro", nil, time.Now(), time.Now(), "Teacher", "BSc", "Algorithms", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lecture_entries le WHERE le.teacher_id = $1 AND le.lecture_date >= $2")).
		WithArgs("t1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.LectureFilter{TeacherID: "t1", From: &from})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Algorithms", entries[0].SubjectName)
	assert.Equal(t, 1.5, entries[0].Hours)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveTypeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveTypeRepository(db)

	mock.ExpectExec("INSERT INTO leave_types").
		WithArgs(sqlmock.AnyArg(), "Leave Without Pay (LWP)", 0, false, false, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	lt := &models.LeaveType{Name: "Leave Without Pay (LWP)", AffectsBalance: false}
	require.NoError(t, repo.Create(context.Background(), lt))
	assert.NotEmpty(t, lt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
