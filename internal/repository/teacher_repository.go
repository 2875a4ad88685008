package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

const (
	teacherColumns = `u.id, u.email, u.full_name, u.department, u.active, u.last_login, u.created_at, u.updated_at`
	teacherScope   = `FROM users u WHERE u.role = 'TEACHER'`
)

var teacherSorts = map[string]string{
	"full_name":  "u.full_name",
	"email":      "u.email",
	"department": "u.department",
	"created_at": "u.created_at",
}

// TeacherRepository reads and writes TEACHER rows of users plus the teacher_courses links.
type TeacherRepository struct {
	db *sqlx.DB
}

func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) on(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec == nil {
		return r.db
	}
	return exec
}

// List pages through teachers matching filter and reports the unpaged total.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var where predicates
	if filter.Active != nil {
		where.add("u.active = ?", *filter.Active)
	}
	if filter.Department != "" {
		where.add("u.department = ?", filter.Department)
	}
	if filter.CourseID != "" {
		where.add("EXISTS (SELECT 1 FROM teacher_courses tc WHERE tc.teacher_id = u.id AND tc.course_id = ?)", filter.CourseID)
	}
	if filter.Search != "" {
		where.add("(LOWER(u.full_name) LIKE ? OR LOWER(u.email) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	scope := teacherScope + where.and()

	column, ok := teacherSorts[filter.SortBy]
	if !ok {
		column = "u.full_name"
	}
	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, scope, column, direction, size, (page-1)*size)
	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, query, where.args...); err != nil {
		return nil, 0, wrapErr("list teachers", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+scope, where.args...); err != nil {
		return nil, 0, wrapErr("count teachers", err)
	}
	return teachers, total, nil
}

// FindByID loads one teacher without course links. Missing rows yield sql.ErrNoRows.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := getRow(ctx, r.db, &teacher, "get teacher", "SELECT "+teacherColumns+" "+teacherScope+" AND u.id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByEmail reports whether any account other than excludeID uses email, ignoring case.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id::text <> $2)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, email, excludeID); err != nil {
		return false, wrapErr("check teacher email", err)
	}
	return taken, nil
}

// Create inserts the account row, stamping id and timestamps on teacher.
func (r *TeacherRepository) Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher, passwordHash string) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	teacher.CreatedAt = time.Now().UTC()
	teacher.UpdatedAt = teacher.CreatedAt

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, department, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.on(exec).ExecContext(ctx, query, teacher.ID, teacher.Email, passwordHash, teacher.FullName,
		models.RoleTeacher, teacher.Department, teacher.Active, teacher.CreatedAt, teacher.UpdatedAt)
	if err != nil {
		return writeError("create teacher", err)
	}
	return nil
}

func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET email = $2, full_name = $3, department = $4, active = $5, updated_at = $6
WHERE id = $1 AND role = 'TEACHER'`
	result, err := r.db.ExecContext(ctx, query, teacher.ID, teacher.Email, teacher.FullName, teacher.Department, teacher.Active, teacher.UpdatedAt)
	if err != nil {
		return writeError("update teacher", err)
	}
	return requireAffected(result, "update teacher")
}

// Deactivate clears the active flag; history rows keep pointing at the account.
func (r *TeacherRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1 AND role = 'TEACHER'`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return wrapErr("deactivate teacher", err)
	}
	return requireAffected(result, "deactivate teacher")
}

func (r *TeacherRepository) CourseIDs(ctx context.Context, teacherID string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `SELECT course_id FROM teacher_courses WHERE teacher_id = $1 ORDER BY course_id`, teacherID)
	return ids, wrapErr("list teacher courses", err)
}

// ReplaceCourses makes courseIDs the teacher's complete affiliation set.
func (r *TeacherRepository) ReplaceCourses(ctx context.Context, exec sqlx.ExtContext, teacherID string, courseIDs []string) error {
	target := r.on(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM teacher_courses WHERE teacher_id = $1`, teacherID); err != nil {
		return wrapErr("clear teacher courses", err)
	}
	if len(courseIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO teacher_courses (teacher_id, course_id, created_at)
SELECT $1, UNNEST($2::text[]), $3 ON CONFLICT DO NOTHING`
	if _, err := target.ExecContext(ctx, query, teacherID, pq.Array(courseIDs), time.Now().UTC()); err != nil {
		return writeError("link teacher courses", err)
	}
	return nil
}

func (r *TeacherRepository) IsAffiliated(ctx context.Context, teacherID, courseID string) (bool, error) {
	var linked bool
	err := r.db.GetContext(ctx, &linked, `SELECT EXISTS (SELECT 1 FROM teacher_courses WHERE teacher_id = $1 AND course_id = $2)`, teacherID, courseID)
	return linked, wrapErr("check teacher course", err)
}
