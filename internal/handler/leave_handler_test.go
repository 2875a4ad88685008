package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/middleware"
	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type leaveServiceMock struct {
	filter   models.LeaveFilter
	actor    service.Actor
	applied  *models.ApplyLeaveRequest
	getErr   error
	escalate *models.EscalateLeaveRequest
}

func (m *leaveServiceMock) List(ctx context.Context, filter models.LeaveFilter, actor service.Actor) ([]models.LeaveRecordView, *models.Pagination, error) {
	m.filter, m.actor = filter, actor
	return []models.LeaveRecordView{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *leaveServiceMock) Get(ctx context.Context, id string, actor service.Actor) (*models.LeaveRecordView, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.LeaveRecordView{LeaveRecord: models.LeaveRecord{ID: id}}, nil
}

func (m *leaveServiceMock) Apply(ctx context.Context, req models.ApplyLeaveRequest, actor service.Actor) (*models.LeaveRecord, error) {
	m.applied, m.actor = &req, actor
	return &models.LeaveRecord{ID: "l1", UserID: actor.ID, Status: models.LeaveStatusPending}, nil
}

func (m *leaveServiceMock) Escalate(ctx context.Context, id string, req models.EscalateLeaveRequest, actor service.Actor) (*models.LeaveRecord, error) {
	m.escalate = &req
	return &models.LeaveRecord{ID: id, Status: models.LeaveStatusEscalated}, nil
}

type transitionServiceMock struct {
	req     models.LeaveStatusRequest
	actorID string
	err     error
}

func (m *transitionServiceMock) Transition(ctx context.Context, leaveID string, req models.LeaveStatusRequest, actorID string) (*models.LeaveTransitionResult, error) {
	m.req, m.actorID = req, actorID
	if m.err != nil {
		return nil, m.err
	}
	return &models.LeaveTransitionResult{LeaveID: leaveID, Status: req.Status, PreviousStatus: models.LeaveStatusPending, BalanceDelta: decimal.NewFromInt(-2)}, nil
}

func testContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

var (
	teacherClaims = &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	adminClaims   = &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestLeaveHandlerListParsesFilter(t *testing.T) {
	leaves := &leaveServiceMock{}
	h := NewLeaveHandler(leaves, &transitionServiceMock{})
	c, w := testContext(http.MethodGet, "/leaves?status=Approved&year=2024&page=2&limit=5", nil, teacherClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LeaveStatusApproved, leaves.filter.Status)
	assert.Equal(t, 2024, leaves.filter.Year)
	assert.Equal(t, 2, leaves.filter.Page)
	assert.Equal(t, 5, leaves.filter.PageSize)
	assert.Equal(t, "t1", leaves.actor.ID)
}

func TestLeaveHandlerRequiresClaims(t *testing.T) {
	h := NewLeaveHandler(&leaveServiceMock{}, &transitionServiceMock{})
	c, w := testContext(http.MethodGet, "/leaves", nil, nil)

	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLeaveHandlerApply(t *testing.T) {
	leaves := &leaveServiceMock{}
	h := NewLeaveHandler(leaves, &transitionServiceMock{})
	c, w := testContext(http.MethodPost, "/leaves", map[string]interface{}{
		"leave_type_id": "cl",
		"start_date":    "2024-02-05",
		"end_date":      "2024-02-06",
		"days":          "1.5",
		"reason":        "travel",
	}, teacherClaims)

	h.Apply(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, leaves.applied.Days)
	assert.Equal(t, "1.5", leaves.applied.Days.String())
	assert.Equal(t, "t1", leaves.actor.ID)
}

func TestLeaveHandlerApplyInvalidBody(t *testing.T) {
	h := NewLeaveHandler(&leaveServiceMock{}, &transitionServiceMock{})
	c, w := testContext(http.MethodPost, "/leaves", "{", teacherClaims)

	h.Apply(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeError(t, w))
}

func TestLeaveHandlerUpdateStatus(t *testing.T) {
	transitions := &transitionServiceMock{}
	h := NewLeaveHandler(&leaveServiceMock{}, transitions)
	c, w := testContext(http.MethodPatch, "/leaves/l1/status", map[string]string{"status": "approved", "remarks": "ok"}, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}

	h.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LeaveStatusApproved, transitions.req.Status)
	assert.Equal(t, "a1", transitions.actorID)
	assert.Contains(t, w.Body.String(), `"balance_delta":"-2"`)
}

func TestLeaveHandlerUpdateStatusMapsErrors(t *testing.T) {
	cases := map[*appErrors.Error]int{
		appErrors.ErrInvalidStatus:       http.StatusBadRequest,
		appErrors.ErrNotFound:            http.StatusNotFound,
		appErrors.ErrNoBalanceConfigured: http.StatusConflict,
		appErrors.ErrInsufficientBalance: http.StatusConflict,
		appErrors.ErrStorageFailure:      http.StatusInternalServerError,
	}
	for kind, status := range cases {
		h := NewLeaveHandler(&leaveServiceMock{}, &transitionServiceMock{err: appErrors.Clone(kind, "")})
		c, w := testContext(http.MethodPatch, "/leaves/l1/status", map[string]string{"status": "approved"}, adminClaims)
		c.Params = gin.Params{{Key: "id", Value: "l1"}}

		h.UpdateStatus(c)

		assert.Equal(t, status, w.Code, kind.Code)
		assert.Equal(t, kind.Code, decodeError(t, w))
	}
}

func TestLeaveHandlerEscalateWithoutBody(t *testing.T) {
	leaves := &leaveServiceMock{}
	h := NewLeaveHandler(leaves, &transitionServiceMock{})
	c, w := testContext(http.MethodPost, "/leaves/l1/escalate", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}

	h.Escalate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, leaves.escalate)
	assert.Nil(t, leaves.escalate.Remarks)
}

func TestLeaveHandlerGetNotFound(t *testing.T) {
	h := NewLeaveHandler(&leaveServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "leave not found")}, &transitionServiceMock{})
	c, w := testContext(http.MethodGet, "/leaves/x", nil, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "x"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
