package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

// LectureHandler exposes the lecture diary.
type LectureHandler struct {
	lectures *service.LectureService
}

// NewLectureHandler constructs a LectureHandler.
func NewLectureHandler(lectures *service.LectureService) *LectureHandler {
	return &LectureHandler{lectures: lectures}
}

// List godoc
// @Summary List lecture diary entries
// @Description Teachers only see their own entries
// @Tags Lectures
// @Produce json
// @Param teacher_id query string false "Teacher ID (admin only)"
// @Param course_id query string false "Course ID"
// @Param subject_id query string false "Subject ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lectures [get]
func (h *LectureHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.LectureFilter{
		TeacherID: c.Query("teacher_id"),
		CourseID:  c.Query("course_id"),
		SubjectID: c.Query("subject_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
	}
	for key, target := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, key+" must use YYYY-MM-DD"))
			return
		}
		*target = &parsed
	}

	entries, pagination, err := h.lectures.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get lecture diary entry
// @Tags Lectures
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /lectures/{id} [get]
func (h *LectureHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entry, err := h.lectures.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Log a lecture
// @Tags Lectures
// @Accept json
// @Produce json
// @Param payload body models.LectureRequest true "Lecture payload"
// @Success 201 {object} response.Envelope
// @Router /lectures [post]
func (h *LectureHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.LectureRequest
	if !bindJSON(c, &req, "invalid lecture payload") {
		return
	}
	entry, err := h.lectures.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update lecture diary entry
// @Tags Lectures
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body models.LectureRequest true "Lecture payload"
// @Success 200 {object} response.Envelope
// @Router /lectures/{id} [put]
func (h *LectureHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.LectureRequest
	if !bindJSON(c, &req, "invalid lecture payload") {
		return
	}
	entry, err := h.lectures.Update(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete lecture diary entry
// @Tags Lectures
// @Param id path string true "Entry ID"
// @Success 204
// @Router /lectures/{id} [delete]
func (h *LectureHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.lectures.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
