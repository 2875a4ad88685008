package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type lectureRepository interface {
	List(ctx context.Context, filter models.LectureFilter) ([]models.LectureEntryView, int, error)
	FindByID(ctx context.Context, id string) (*models.LectureEntryView, error)
	Create(ctx context.Context, entry *models.LectureEntry) error
	Update(ctx context.Context, entry *models.LectureEntry) error
	Delete(ctx context.Context, id string) error
}

type affiliationChecker interface {
	IsAffiliated(ctx context.Context, teacherID, courseID string) (bool, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type topicReader interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

type holidayChecker interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// LectureService maintains the lecture diary.
type LectureService struct {
	repo      lectureRepository
	teachers  affiliationChecker
	subjects  subjectReader
	topics    topicReader
	holidays  holidayChecker
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLectureService constructs a LectureService.
func NewLectureService(repo lectureRepository, teachers affiliationChecker, subjects subjectReader, topics topicReader, holidays holidayChecker, validate *validator.Validate, logger *zap.Logger) *LectureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LectureService{
		repo:      repo,
		teachers:  teachers,
		subjects:  subjects,
		topics:    topics,
		holidays:  holidays,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns diary entries. Teachers only see their own entries.
func (s *LectureService) List(ctx context.Context, filter models.LectureFilter, actor Actor) ([]models.LectureEntryView, *models.Pagination, error) {
	if !actor.IsAdmin() {
		filter.TeacherID = actor.ID
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.ErrInternal.WithCause(err, "failed to list lecture entries")
	}
	return entries, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a diary entry visible to the actor.
func (s *LectureService) Get(ctx context.Context, id string, actor Actor) (*models.LectureEntryView, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "lecture entry", "failed to load lecture entry")
	}
	if !actor.Owns(entry.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture entry not found")
	}
	return entry, nil
}

// Create logs a lecture for the acting teacher.
func (s *LectureService) Create(ctx context.Context, req models.LectureRequest, actor Actor) (*models.LectureEntry, error) {
	entry := &models.LectureEntry{TeacherID: actor.ID}
	if err := s.apply(ctx, entry, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, storeError(err, "lecture entry", "failed to create lecture entry")
	}
	return entry, nil
}

// Update rewrites a diary entry. Only the owner or an administrator may edit it.
func (s *LectureService) Update(ctx context.Context, id string, req models.LectureRequest, actor Actor) (*models.LectureEntry, error) {
	current, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	entry := current.LectureEntry
	if err := s.apply(ctx, &entry, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &entry); err != nil {
		return nil, storeError(err, "lecture entry", "failed to update lecture entry")
	}
	return &entry, nil
}

// Delete removes a diary entry owned by the actor, or any entry for administrators.
func (s *LectureService) Delete(ctx context.Context, id string, actor Actor) error {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "lecture entry", "failed to delete lecture entry")
	}
	return nil
}

// apply validates the request against the catalog and calendar and copies it onto entry.
func (s *LectureService) apply(ctx context.Context, entry *models.LectureEntry, req models.LectureRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.ErrValidation.WithCause(err, "invalid lecture payload")
	}

	date, err := time.Parse(dateLayout, req.LectureDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "lecture_date must use YYYY-MM-DD")
	}
	today := truncateDay(s.now())
	if date.After(today) {
		return appErrors.Clone(appErrors.ErrValidation, "lecture_date cannot be in the future")
	}
	hours, err := lectureHours(req.StartTime, req.EndTime)
	if err != nil {
		return err
	}

	affiliated, err := s.teachers.IsAffiliated(ctx, entry.TeacherID, req.CourseID)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to check course affiliation")
	}
	if !affiliated {
		return appErrors.Clone(appErrors.ErrForbidden, "teacher is not assigned to this course")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		return storeError(err, "subject", "failed to load subject")
	}
	if subject.CourseID != req.CourseID {
		return appErrors.Clone(appErrors.ErrValidation, "subject does not belong to the course")
	}

	topicID := normalizeOptional(req.TopicID)
	if topicID != nil {
		topic, err := s.topics.FindByID(ctx, *topicID)
		if err != nil {
			return storeError(err, "topic", "failed to load topic")
		}
		if topic.SubjectID != subject.ID {
			return appErrors.Clone(appErrors.ErrValidation, "topic does not belong to the subject")
		}
	}

	holiday, err := s.holidays.IsHoliday(ctx, date)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to check holidays")
	}
	if holiday {
		return appErrors.Clone(appErrors.ErrValidation, "lecture_date is a public holiday")
	}

	entry.CourseID = req.CourseID
	entry.SubjectID = req.SubjectID
	entry.TopicID = topicID
	entry.LectureDate = date
	entry.StartTime = req.StartTime
	entry.EndTime = req.EndTime
	entry.Hours = hours
	entry.Summary = strings.TrimSpace(req.Summary)
	entry.Remarks = normalizeOptional(req.Remarks)
	return nil
}

// lectureHours returns the duration between two HH:MM times in hours, rounded to two decimals.
func lectureHours(start, end string) (float64, error) {
	from, err := time.Parse(clockLayout, start)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "start_time must use HH:MM")
	}
	to, err := time.Parse(clockLayout, end)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "end_time must use HH:MM")
	}
	if !to.After(from) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return math.Round(to.Sub(from).Hours()*100) / 100, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
