package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type leaveTypeRepository interface {
	leaveTypeReader
	List(ctx context.Context) ([]models.LeaveType, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, lt *models.LeaveType) error
	Update(ctx context.Context, lt *models.LeaveType) error
}

// LeaveTypeService manages the leave type catalog.
type LeaveTypeService struct {
	repo      leaveTypeRepository
	cache     *CatalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveTypeService constructs a LeaveTypeService. cache may be nil.
func NewLeaveTypeService(repo leaveTypeRepository, cache *CatalogCache, validate *validator.Validate, logger *zap.Logger) *LeaveTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveTypeService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the catalog, served from cache when possible.
func (s *LeaveTypeService) List(ctx context.Context) ([]models.LeaveType, error) {
	var cached []models.LeaveType
	if s.cache.Lookup(ctx, cacheKeyLeaveTypes, &cached) {
		return cached, nil
	}
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list leave types")
	}
	s.cache.Remember(ctx, cacheKeyLeaveTypes, types)
	return types, nil
}

// Get returns a leave type by id.
func (s *LeaveTypeService) Get(ctx context.Context, id string) (*models.LeaveType, error) {
	lt, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, storeError(err, "leave type", "failed to load leave type")
	}
	return lt, nil
}

// Create adds a leave type. When affects_balance is omitted it is derived from the name.
func (s *LeaveTypeService) Create(ctx context.Context, req models.LeaveTypeRequest) (*models.LeaveType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid leave type payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	affects := models.DefaultAffectsBalance(name)
	if req.AffectsBalance != nil {
		affects = *req.AffectsBalance
	}
	lt := &models.LeaveType{
		Name:           name,
		MaxPerYear:     req.MaxPerYear,
		CarryForward:   req.CarryForward,
		AffectsBalance: affects,
		Description:    normalizeOptional(req.Description),
	}
	if err := s.repo.Create(ctx, lt); err != nil {
		return nil, storeError(err, "leave type", "failed to create leave type")
	}
	s.invalidate(ctx)
	return lt, nil
}

// Update modifies a leave type. The ledger flag only changes when provided explicitly.
func (s *LeaveTypeService) Update(ctx context.Context, id string, req models.LeaveTypeRequest) (*models.LeaveType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid leave type payload")
	}
	lt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}
	lt.Name = name
	lt.MaxPerYear = req.MaxPerYear
	lt.CarryForward = req.CarryForward
	lt.Description = normalizeOptional(req.Description)
	if req.AffectsBalance != nil {
		lt.AffectsBalance = *req.AffectsBalance
	}
	if err := s.repo.Update(ctx, lt); err != nil {
		return nil, storeError(err, "leave type", "failed to update leave type")
	}
	s.invalidate(ctx)
	return lt, nil
}

func (s *LeaveTypeService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to check leave type name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "leave type name already used")
	}
	return nil
}

func (s *LeaveTypeService) invalidate(ctx context.Context) {
	s.cache.Forget(ctx, cacheKeyLeaveTypes)
}
