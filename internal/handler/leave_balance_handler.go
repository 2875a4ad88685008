package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

type leaveBalanceService interface {
	List(ctx context.Context, userID string, year int, actor service.Actor) ([]models.LeaveBalanceView, error)
	SetOpening(ctx context.Context, req models.SetOpeningBalanceRequest, actor service.Actor) (*models.LeaveBalance, error)
	Adjust(ctx context.Context, req models.AdjustBalanceRequest, actor service.Actor) (*models.LeaveBalance, error)
	History(ctx context.Context, key models.LeaveBalanceKey, actor service.Actor) ([]models.LeaveBalanceAdjustment, error)
}

// LeaveBalanceHandler exposes the balance ledger.
type LeaveBalanceHandler struct {
	balances leaveBalanceService
}

// NewLeaveBalanceHandler constructs a LeaveBalanceHandler.
func NewLeaveBalanceHandler(balances leaveBalanceService) *LeaveBalanceHandler {
	return &LeaveBalanceHandler{balances: balances}
}

// List godoc
// @Summary List leave balances
// @Description Teachers only see their own balances
// @Tags Leave Balances
// @Produce json
// @Param user_id query string false "Teacher ID (admin only)"
// @Param year query int false "Year, defaults to the current year"
// @Success 200 {object} response.Envelope
// @Router /leave-balances [get]
func (h *LeaveBalanceHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	balances, err := h.balances.List(c.Request.Context(), c.Query("user_id"), queryInt(c, "year", 0), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balances, nil)
}

// SetOpening godoc
// @Summary Set opening balance
// @Tags Leave Balances
// @Accept json
// @Produce json
// @Param payload body models.SetOpeningBalanceRequest true "Opening balance"
// @Success 200 {object} response.Envelope
// @Router /leave-balances [put]
func (h *LeaveBalanceHandler) SetOpening(c *gin.Context) {
	var req models.SetOpeningBalanceRequest
	if !bindJSON(c, &req, "invalid opening balance payload") {
		return
	}
	actor, _ := actorFromContext(c)
	balance, err := h.balances.SetOpening(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// Adjust godoc
// @Summary Adjust a leave balance
// @Description Adds a signed amount to the adjustments of an existing ledger row
// @Tags Leave Balances
// @Accept json
// @Produce json
// @Param payload body models.AdjustBalanceRequest true "Adjustment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-balances/adjust [post]
func (h *LeaveBalanceHandler) Adjust(c *gin.Context) {
	var req models.AdjustBalanceRequest
	if !bindJSON(c, &req, "invalid adjustment payload") {
		return
	}
	actor, _ := actorFromContext(c)
	balance, err := h.balances.Adjust(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// History godoc
// @Summary Manual adjustment history
// @Tags Leave Balances
// @Produce json
// @Param user_id query string true "Teacher ID"
// @Param leave_type_id query string true "Leave type ID"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /leave-balances/history [get]
func (h *LeaveBalanceHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	key := models.LeaveBalanceKey{
		UserID:      c.Query("user_id"),
		LeaveTypeID: c.Query("leave_type_id"),
		Year:        queryInt(c, "year", 0),
	}
	if key.UserID == "" {
		key.UserID = actor.ID
	}
	if key.LeaveTypeID == "" || key.Year <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "leave_type_id and year are required"))
		return
	}
	history, err := h.balances.History(c.Request.Context(), key, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
