package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

type leaveService interface {
	List(ctx context.Context, filter models.LeaveFilter, actor service.Actor) ([]models.LeaveRecordView, *models.Pagination, error)
	Get(ctx context.Context, id string, actor service.Actor) (*models.LeaveRecordView, error)
	Apply(ctx context.Context, req models.ApplyLeaveRequest, actor service.Actor) (*models.LeaveRecord, error)
	Escalate(ctx context.Context, id string, req models.EscalateLeaveRequest, actor service.Actor) (*models.LeaveRecord, error)
}

type leaveTransitionService interface {
	Transition(ctx context.Context, leaveID string, req models.LeaveStatusRequest, actorID string) (*models.LeaveTransitionResult, error)
}

// LeaveHandler exposes leave applications and the approval workflow.
type LeaveHandler struct {
	leaves      leaveService
	transitions leaveTransitionService
}

// NewLeaveHandler constructs a LeaveHandler.
func NewLeaveHandler(leaves leaveService, transitions leaveTransitionService) *LeaveHandler {
	return &LeaveHandler{leaves: leaves, transitions: transitions}
}

// List godoc
// @Summary List leave applications
// @Description Teachers only see their own applications
// @Tags Leaves
// @Produce json
// @Param user_id query string false "Teacher ID (admin only)"
// @Param status query string false "pending, approved, rejected or escalated"
// @Param leave_type_id query string false "Leave type ID"
// @Param year query int false "Year of the start date"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.LeaveFilter{
		UserID:      c.Query("user_id"),
		Status:      models.LeaveStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		LeaveTypeID: c.Query("leave_type_id"),
		Year:        queryInt(c, "year", 0),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "limit", 20),
	}
	leaves, pagination, err := h.leaves.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, pagination)
}

// Get godoc
// @Summary Get leave application
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave ID"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	leave, err := h.leaves.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Apply godoc
// @Summary Apply for leave
// @Description Days are computed from the dates, skipping Sundays and holidays, when omitted
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body models.ApplyLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ApplyLeaveRequest
	if !bindJSON(c, &req, "invalid leave payload") {
		return
	}
	leave, err := h.leaves.Apply(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// UpdateStatus godoc
// @Summary Approve, reject or reopen a leave application
// @Description Approving debits the balance ledger, moving away from approved restores it
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body models.LeaveStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/status [patch]
func (h *LeaveHandler) UpdateStatus(c *gin.Context) {
	var req models.LeaveStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.ErrInvalidStatus.WithCause(err, "invalid status payload"))
		return
	}
	actor, _ := actorFromContext(c)
	result, err := h.transitions.Transition(c.Request.Context(), c.Param("id"), req, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Escalate godoc
// @Summary Escalate a leave application
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body models.EscalateLeaveRequest false "Escalation remarks"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/escalate [post]
func (h *LeaveHandler) Escalate(c *gin.Context) {
	var req models.EscalateLeaveRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req, "invalid escalation payload") {
			return
		}
	}
	actor, _ := actorFromContext(c)
	leave, err := h.leaves.Escalate(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}
