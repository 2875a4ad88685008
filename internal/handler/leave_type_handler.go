package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/middleware"
	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

// LeaveTypeHandler exposes the leave type catalog.
type LeaveTypeHandler struct {
	types *service.LeaveTypeService
}

// NewLeaveTypeHandler constructs a LeaveTypeHandler.
func NewLeaveTypeHandler(types *service.LeaveTypeService) *LeaveTypeHandler {
	return &LeaveTypeHandler{types: types}
}

// List godoc
// @Summary List leave types
// @Tags Leave Types
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave-types [get]
func (h *LeaveTypeHandler) List(c *gin.Context) {
	types, err := h.types.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get leave type
// @Tags Leave Types
// @Produce json
// @Param id path string true "Leave type ID"
// @Success 200 {object} response.Envelope
// @Router /leave-types/{id} [get]
func (h *LeaveTypeHandler) Get(c *gin.Context) {
	lt, err := h.types.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lt, nil)
}

// Create godoc
// @Summary Create leave type
// @Description affects_balance is derived from the name when omitted
// @Tags Leave Types
// @Accept json
// @Produce json
// @Param payload body models.LeaveTypeRequest true "Leave type payload"
// @Success 201 {object} response.Envelope
// @Router /leave-types [post]
func (h *LeaveTypeHandler) Create(c *gin.Context) {
	var req models.LeaveTypeRequest
	if !bindJSON(c, &req, "invalid leave type payload") {
		return
	}
	lt, err := h.types.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lt)
}

// Update godoc
// @Summary Update leave type
// @Tags Leave Types
// @Accept json
// @Produce json
// @Param id path string true "Leave type ID"
// @Param payload body models.LeaveTypeRequest true "Leave type payload"
// @Success 200 {object} response.Envelope
// @Router /leave-types/{id} [put]
func (h *LeaveTypeHandler) Update(c *gin.Context) {
	var req models.LeaveTypeRequest
	if !bindJSON(c, &req, "invalid leave type payload") {
		return
	}
	lt, err := h.types.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lt, nil)
}
