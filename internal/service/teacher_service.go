package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher, passwordHash string) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
	CourseIDs(ctx context.Context, teacherID string) ([]string, error)
	ReplaceCourses(ctx context.Context, exec sqlx.ExtContext, teacherID string, courseIDs []string) error
}

type courseCounter interface {
	CountExisting(ctx context.Context, ids []string) (int, error)
}

// TeacherService orchestrates the teacher roster.
type TeacherService struct {
	tx        txProvider
	repo      teacherRepository
	courses   courseCounter
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(tx txProvider, repo teacherRepository, courses courseCounter, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{tx: tx, repo: repo, courses: courses, audit: audit, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.ErrInternal.WithCause(err, "failed to list teachers")
	}
	return teachers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id together with its course affiliations.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.repo.CourseIDs(ctx, id)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to load teacher courses")
	}
	teacher.CourseIDs = ids
	return teacher, nil
}

// Create registers a teacher account and its course affiliations in one transaction.
func (s *TeacherService) Create(ctx context.Context, req models.CreateTeacherRequest, actorID string) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid teacher payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureUniqueEmail(ctx, email, ""); err != nil {
		return nil, err
	}
	courseIDs := uniqueStrings(req.CourseIDs)
	if err := s.ensureCoursesExist(ctx, courseIDs); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to hash password")
	}

	teacher := &models.Teacher{
		Email:      email,
		FullName:   strings.TrimSpace(req.FullName),
		Department: normalizeOptional(req.Department),
		Active:     true,
		CourseIDs:  courseIDs,
	}

	err = inTx(ctx, s.tx, "teacher registration", func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, teacher, string(hash)); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrConflict, "email already used")
			}
			return appErrors.ErrInternal.WithCause(err, "failed to create teacher")
		}
		if err := s.repo.ReplaceCourses(ctx, tx, teacher.ID, courseIDs); err != nil {
			return appErrors.ErrInternal.WithCause(err, "failed to assign teacher courses")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, models.AuditActionTeacherCreate, teacher.ID, nil, teacher)
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req models.UpdateTeacherRequest, actorID string) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid teacher payload")
	}

	teacher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *teacher

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureUniqueEmail(ctx, email, id); err != nil {
		return nil, err
	}

	teacher.Email = email
	teacher.FullName = strings.TrimSpace(req.FullName)
	teacher.Department = normalizeOptional(req.Department)
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to update teacher")
	}
	s.record(ctx, actorID, models.AuditActionTeacherUpdate, id, before, teacher)
	return teacher, nil
}

// SetCourses replaces the teacher's course affiliations.
func (s *TeacherService) SetCourses(ctx context.Context, id string, req models.SetTeacherCoursesRequest, actorID string) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid course list")
	}
	teacher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	courseIDs := uniqueStrings(req.CourseIDs)
	if err := s.ensureCoursesExist(ctx, courseIDs); err != nil {
		return nil, err
	}

	err = inTx(ctx, s.tx, "course affiliation", func(tx *sqlx.Tx) error {
		if err := s.repo.ReplaceCourses(ctx, tx, id, courseIDs); err != nil {
			return appErrors.ErrInternal.WithCause(err, "failed to assign teacher courses")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	teacher.CourseIDs = courseIDs
	s.record(ctx, actorID, models.AuditActionTeacherUpdate, id, nil, map[string]interface{}{"course_ids": courseIDs})
	return teacher, nil
}

// Deactivate marks a teacher inactive.
func (s *TeacherService) Deactivate(ctx context.Context, id, actorID string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.ErrInternal.WithCause(err, "failed to deactivate teacher")
	}
	s.record(ctx, actorID, models.AuditActionTeacherDeactivate, id, nil, map[string]bool{"active": false})
	return nil
}

func (s *TeacherService) load(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to load teacher")
	}
	return teacher, nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

func (s *TeacherService) ensureCoursesExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.courses.CountExisting(ctx, ids)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to check courses")
	}
	if found != len(ids) {
		return appErrors.Clone(appErrors.ErrValidation, "one or more courses do not exist")
	}
	return nil
}

func (s *TeacherService) record(ctx context.Context, actorID, action, teacherID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := models.AuditLog{
		Action:     action,
		Resource:   "teacher",
		ResourceID: &teacherID,
		OldValues:  auditValues(oldValues),
		NewValues:  auditValues(newValues),
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	s.audit.Record(ctx, entry)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
