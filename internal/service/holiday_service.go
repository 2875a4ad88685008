package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type holidayRepository interface {
	List(ctx context.Context, year int) ([]models.Holiday, error)
	FindByID(ctx context.Context, id string) (*models.Holiday, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	Update(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
}

// HolidayService manages public holidays.
type HolidayService struct {
	repo      holidayRepository
	cache     *CatalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs a HolidayService. cache may be nil.
func NewHolidayService(repo holidayRepository, cache *CatalogCache, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns holidays of a year, or all holidays when year is zero.
func (s *HolidayService) List(ctx context.Context, year int) ([]models.Holiday, error) {
	key := holidayCacheKey(year)
	var cached []models.Holiday
	if s.cache.Lookup(ctx, key, &cached) {
		return cached, nil
	}
	holidays, err := s.repo.List(ctx, year)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list holidays")
	}
	s.cache.Remember(ctx, key, holidays)
	return holidays, nil
}

// Create registers a holiday. Only one holiday may exist per date.
func (s *HolidayService) Create(ctx context.Context, req models.HolidayRequest) (*models.Holiday, error) {
	date, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	holiday := &models.Holiday{Date: date, Name: strings.TrimSpace(req.Name), Description: normalizeOptional(req.Description)}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, storeError(err, "holiday", "failed to create holiday")
	}
	s.invalidate(ctx)
	return holiday, nil
}

// Update modifies a holiday.
func (s *HolidayService) Update(ctx context.Context, id string, req models.HolidayRequest) (*models.Holiday, error) {
	date, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	holiday, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "holiday", "failed to load holiday")
	}
	holiday.Date = date
	holiday.Name = strings.TrimSpace(req.Name)
	holiday.Description = normalizeOptional(req.Description)
	if err := s.repo.Update(ctx, holiday); err != nil {
		return nil, storeError(err, "holiday", "failed to update holiday")
	}
	s.invalidate(ctx)
	return holiday, nil
}

// Delete removes a holiday.
func (s *HolidayService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "holiday", "failed to delete holiday")
	}
	s.invalidate(ctx)
	return nil
}

func (s *HolidayService) parse(req models.HolidayRequest) (time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, appErrors.ErrValidation.WithCause(err, "invalid holiday payload")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return time.Time{}, appErrors.ErrValidation.WithCause(err, "date must use YYYY-MM-DD")
	}
	return date, nil
}

func (s *HolidayService) invalidate(ctx context.Context) {
	s.cache.Forget(ctx, cachePatternHols)
}
