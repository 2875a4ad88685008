package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type subjectRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, courseID, code, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type topicRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.Topic, error)
	FindByID(ctx context.Context, id string) (*models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
	Update(ctx context.Context, topic *models.Topic) error
	Delete(ctx context.Context, id string) error
}

// CurriculumService manages the course, subject and topic catalog.
type CurriculumService struct {
	courses   courseRepository
	subjects  subjectRepository
	topics    topicRepository
	cache     *CatalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCurriculumService constructs a CurriculumService. cache may be nil.
func NewCurriculumService(courses courseRepository, subjects subjectRepository, topics topicRepository, cache *CatalogCache, validate *validator.Validate, logger *zap.Logger) *CurriculumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{courses: courses, subjects: subjects, topics: topics, cache: cache, validator: validate, logger: logger}
}

// ListCourses returns every course, served from cache when possible.
func (s *CurriculumService) ListCourses(ctx context.Context) ([]models.Course, error) {
	var cached []models.Course
	if s.cache.Lookup(ctx, cacheKeyCourses, &cached) {
		return cached, nil
	}
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list courses")
	}
	s.cache.Remember(ctx, cacheKeyCourses, courses)
	return courses, nil
}

// GetCourse returns a course by id.
func (s *CurriculumService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "course", "failed to load course")
	}
	return course, nil
}

// CreateCourse registers a course. Codes are unique case-insensitively.
func (s *CurriculumService) CreateCourse(ctx context.Context, req models.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureCourseCode(ctx, code, ""); err != nil {
		return nil, err
	}
	course := &models.Course{Code: code, Name: strings.TrimSpace(req.Name), Description: normalizeOptional(req.Description)}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, storeError(err, "course", "failed to create course")
	}
	s.invalidateCourses(ctx)
	return course, nil
}

// UpdateCourse modifies a course.
func (s *CurriculumService) UpdateCourse(ctx context.Context, id string, req models.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid course payload")
	}
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureCourseCode(ctx, code, id); err != nil {
		return nil, err
	}
	course.Code = code
	course.Name = strings.TrimSpace(req.Name)
	course.Description = normalizeOptional(req.Description)
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, storeError(err, "course", "failed to update course")
	}
	s.invalidateCourses(ctx)
	return course, nil
}

// DeleteCourse removes a course that has no subjects, affiliations or diary entries.
func (s *CurriculumService) DeleteCourse(ctx context.Context, id string) error {
	if err := s.courses.Delete(ctx, id); err != nil {
		return storeError(err, "course", "failed to delete course")
	}
	s.invalidateCourses(ctx)
	return nil
}

// ListSubjects returns the subjects of a course.
func (s *CurriculumService) ListSubjects(ctx context.Context, courseID string) ([]models.Subject, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	subjects, err := s.subjects.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list subjects")
	}
	return subjects, nil
}

// GetSubject returns a subject by id.
func (s *CurriculumService) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "subject", "failed to load subject")
	}
	return subject, nil
}

// CreateSubject adds a subject to a course. Codes are unique within the course.
func (s *CurriculumService) CreateSubject(ctx context.Context, courseID string, req models.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid subject payload")
	}
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureSubjectCode(ctx, courseID, code, ""); err != nil {
		return nil, err
	}
	subject := &models.Subject{CourseID: courseID, Code: code, Name: strings.TrimSpace(req.Name), Semester: req.Semester}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, storeError(err, "subject", "failed to create subject")
	}
	return subject, nil
}

// UpdateSubject modifies a subject within its course.
func (s *CurriculumService) UpdateSubject(ctx context.Context, id string, req models.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid subject payload")
	}
	subject, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureSubjectCode(ctx, subject.CourseID, code, id); err != nil {
		return nil, err
	}
	subject.Code = code
	subject.Name = strings.TrimSpace(req.Name)
	subject.Semester = req.Semester
	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, storeError(err, "subject", "failed to update subject")
	}
	return subject, nil
}

// DeleteSubject removes a subject.
func (s *CurriculumService) DeleteSubject(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		return storeError(err, "subject", "failed to delete subject")
	}
	return nil
}

// ListTopics returns the topics of a subject in teaching order.
func (s *CurriculumService) ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error) {
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	topics, err := s.topics.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list topics")
	}
	return topics, nil
}

// GetTopic returns a topic by id.
func (s *CurriculumService) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := s.topics.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "topic", "failed to load topic")
	}
	return topic, nil
}

// CreateTopic adds a topic to a subject.
func (s *CurriculumService) CreateTopic(ctx context.Context, subjectID string, req models.TopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid topic payload")
	}
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	topic := &models.Topic{SubjectID: subjectID, Title: strings.TrimSpace(req.Title), Sequence: req.Sequence, PlannedHours: req.PlannedHours}
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, storeError(err, "topic", "failed to create topic")
	}
	return topic, nil
}

// UpdateTopic modifies a topic.
func (s *CurriculumService) UpdateTopic(ctx context.Context, id string, req models.TopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid topic payload")
	}
	topic, err := s.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	topic.Title = strings.TrimSpace(req.Title)
	topic.Sequence = req.Sequence
	topic.PlannedHours = req.PlannedHours
	if err := s.topics.Update(ctx, topic); err != nil {
		return nil, storeError(err, "topic", "failed to update topic")
	}
	return topic, nil
}

// DeleteTopic removes a topic.
func (s *CurriculumService) DeleteTopic(ctx context.Context, id string) error {
	if err := s.topics.Delete(ctx, id); err != nil {
		return storeError(err, "topic", "failed to delete topic")
	}
	return nil
}

func (s *CurriculumService) ensureCourseCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.courses.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to check course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	return nil
}

func (s *CurriculumService) ensureSubjectCode(ctx context.Context, courseID, code, excludeID string) error {
	exists, err := s.subjects.ExistsByCode(ctx, courseID, code, excludeID)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to check subject code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already used in this course")
	}
	return nil
}

func (s *CurriculumService) invalidateCourses(ctx context.Context) {
	s.cache.Forget(ctx, cacheKeyCourses)
}

// storeError maps repository failures for a named entity onto typed errors.
func storeError(err error, entity, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, entity+" already exists")
	case errors.Is(err, repository.ErrReferenced):
		return appErrors.Clone(appErrors.ErrConflict, entity+" is still referenced")
	}
	return appErrors.ErrInternal.WithCause(err, message)
}
