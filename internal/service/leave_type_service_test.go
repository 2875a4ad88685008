package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

func TestLeaveTypeCreateDerivesLedgerFlag(t *testing.T) {
	svc := NewLeaveTypeService(newFakeLeaveTypeRepo(), nil, nil, nil)

	lwp, err := svc.Create(context.Background(), models.LeaveTypeRequest{Name: "Leave Without Pay (LWP)"})
	require.NoError(t, err)
	assert.False(t, lwp.AffectsBalance)

	repo := newFakeLeaveTypeRepo()
	svc = NewLeaveTypeService(repo, nil, nil, nil)
	ml, err := svc.Create(context.Background(), models.LeaveTypeRequest{Name: " Maternity Leave ", MaxPerYear: 180})
	require.NoError(t, err)
	assert.True(t, ml.AffectsBalance)
	assert.Equal(t, "Maternity Leave", repo.types[ml.ID].Name)

	off := false
	repo = newFakeLeaveTypeRepo()
	svc = NewLeaveTypeService(repo, nil, nil, nil)
	duty, err := svc.Create(context.Background(), models.LeaveTypeRequest{Name: "On Duty", AffectsBalance: &off})
	require.NoError(t, err)
	assert.False(t, duty.AffectsBalance)
}

func TestLeaveTypeNameUnique(t *testing.T) {
	svc := NewLeaveTypeService(newFakeLeaveTypeRepo(casualLeave, unpaidLeave), nil, nil, nil)

	_, err := svc.Create(context.Background(), models.LeaveTypeRequest{Name: casualLeave.Name})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), "lwp", models.LeaveTypeRequest{Name: casualLeave.Name})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), "cl", models.LeaveTypeRequest{Name: casualLeave.Name, MaxPerYear: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, updated.MaxPerYear)
	assert.True(t, updated.AffectsBalance)
}

func TestLeaveTypeUpdateMissing(t *testing.T) {
	svc := NewLeaveTypeService(newFakeLeaveTypeRepo(), nil, nil, nil)

	_, err := svc.Update(context.Background(), "nope", models.LeaveTypeRequest{Name: "Casual"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLeaveTypeListCachedUntilWrite(t *testing.T) {
	cache := newMemoryCache()
	repo := newFakeLeaveTypeRepo(casualLeave)
	svc := NewLeaveTypeService(repo, newCachedService(cache), nil, nil)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.True(t, cache.has(cacheKeyLeaveTypes))

	_, err = svc.Create(context.Background(), models.LeaveTypeRequest{Name: "Earned Leave (EL)"})
	require.NoError(t, err)
	assert.False(t, cache.has(cacheKeyLeaveTypes))

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
