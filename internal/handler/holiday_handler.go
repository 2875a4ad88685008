package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/middleware"
	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

// HolidayHandler exposes the public holiday calendar.
type HolidayHandler struct {
	holidays *service.HolidayService
}

// NewHolidayHandler constructs a HolidayHandler.
func NewHolidayHandler(holidays *service.HolidayService) *HolidayHandler {
	return &HolidayHandler{holidays: holidays}
}

// List godoc
// @Summary List public holidays
// @Tags Holidays
// @Produce json
// @Param year query int false "Calendar year"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	holidays, err := h.holidays.List(c.Request.Context(), queryInt(c, "year", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body models.HolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Router /holidays [post]
func (h *HolidayHandler) Create(c *gin.Context) {
	var req models.HolidayRequest
	if !bindJSON(c, &req, "invalid holiday payload") {
		return
	}
	holiday, err := h.holidays.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// Update godoc
// @Summary Update holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param id path string true "Holiday ID"
// @Param payload body models.HolidayRequest true "Holiday payload"
// @Success 200 {object} response.Envelope
// @Router /holidays/{id} [put]
func (h *HolidayHandler) Update(c *gin.Context) {
	var req models.HolidayRequest
	if !bindJSON(c, &req, "invalid holiday payload") {
		return
	}
	holiday, err := h.holidays.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holiday, nil)
}

// Delete godoc
// @Summary Delete holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Success 204
// @Router /holidays/{id} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.holidays.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
