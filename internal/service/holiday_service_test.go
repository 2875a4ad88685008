package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type memoryHolidayRepo struct {
	items     map[string]models.Holiday
	listCalls int
}

func (m *memoryHolidayRepo) List(ctx context.Context, year int) ([]models.Holiday, error) {
	m.listCalls++
	out := []models.Holiday{}
	for _, h := range m.items {
		if year == 0 || h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memoryHolidayRepo) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	h, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &h, nil
}

func (m *memoryHolidayRepo) Create(ctx context.Context, holiday *models.Holiday) error {
	for _, h := range m.items {
		if h.Date.Equal(holiday.Date) {
			return repository.ErrDuplicate
		}
	}
	holiday.ID = "hol-new"
	m.items[holiday.ID] = *holiday
	return nil
}

func (m *memoryHolidayRepo) Update(ctx context.Context, holiday *models.Holiday) error {
	m.items[holiday.ID] = *holiday
	return nil
}

func (m *memoryHolidayRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func newHolidayFixture(cache *memoryCache) (*HolidayService, *memoryHolidayRepo) {
	repo := &memoryHolidayRepo{items: map[string]models.Holiday{
		"rd": {ID: "rd", Date: day("2024-01-26"), Name: "Republic Day"},
	}}
	var cached *CatalogCache
	if cache != nil {
		cached = newCachedService(cache)
	}
	return NewHolidayService(repo, cached, nil, nil), repo
}

func TestHolidayListCachedPerYear(t *testing.T) {
	cache := newMemoryCache()
	svc, repo := newHolidayFixture(cache)

	for i := 0; i < 2; i++ {
		holidays, err := svc.List(context.Background(), 2024)
		require.NoError(t, err)
		assert.Len(t, holidays, 1)
	}
	assert.Equal(t, 1, repo.listCalls)

	_, err := svc.List(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	_, err = svc.Create(context.Background(), models.HolidayRequest{Date: "2024-08-15", Name: " Independence Day "})
	require.NoError(t, err)
	assert.False(t, cache.has("catalog:holidays:2024"))
	assert.False(t, cache.has("catalog:holidays:2025"))

	holidays, err := svc.List(context.Background(), 2024)
	require.NoError(t, err)
	assert.Len(t, holidays, 2)
}

func TestHolidayOnePerDate(t *testing.T) {
	svc, _ := newHolidayFixture(nil)

	_, err := svc.Create(context.Background(), models.HolidayRequest{Date: "2024-01-26", Name: "Duplicate"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestHolidayValidationAndMissing(t *testing.T) {
	svc, repo := newHolidayFixture(nil)

	_, err := svc.Create(context.Background(), models.HolidayRequest{Date: "26/01/2024", Name: "Bad"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), "nope", models.HolidayRequest{Date: "2024-01-27", Name: "x"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), "rd", models.HolidayRequest{Date: "2024-01-26", Name: "Republic Day (National)"})
	require.NoError(t, err)
	assert.Equal(t, "Republic Day (National)", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), "rd"))
	assert.Empty(t, repo.items)
	err = svc.Delete(context.Background(), "rd")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
