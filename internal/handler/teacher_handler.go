package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

type teacherRoster interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, req models.CreateTeacherRequest, actorID string) (*models.Teacher, error)
	Update(ctx context.Context, id string, req models.UpdateTeacherRequest, actorID string) (*models.Teacher, error)
	SetCourses(ctx context.Context, id string, req models.SetTeacherCoursesRequest, actorID string) (*models.Teacher, error)
	Deactivate(ctx context.Context, id, actorID string) error
}

// TeacherHandler serves the teacher roster. Route guards restrict it to admins, except that
// a teacher may read their own record.
type TeacherHandler struct {
	roster teacherRoster
}

func NewTeacherHandler(roster teacherRoster) *TeacherHandler {
	return &TeacherHandler{roster: roster}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param search query string false "Name or email fragment"
// @Param department query string false "Department"
// @Param course_id query string false "Affiliated course"
// @Param active query bool false "Active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "full_name, email or created_at"
// @Param order query string false "asc or desc"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	filter, err := rosterFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teachers, page, err := h.roster.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, page)
}

// Get godoc
// @Summary Teacher record
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.roster.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Create godoc
// @Summary Register teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.CreateTeacherRequest true "Teacher"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	var req models.CreateTeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	teacher, err := h.roster.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Update godoc
// @Summary Edit teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body models.UpdateTeacherRequest true "Changed fields"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	var req models.UpdateTeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	teacher, err := h.roster.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// SetCourses godoc
// @Summary Replace course affiliations
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body models.SetTeacherCoursesRequest true "Course IDs"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/courses [put]
func (h *TeacherHandler) SetCourses(c *gin.Context) {
	var req models.SetTeacherCoursesRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	teacher, err := h.roster.SetCourses(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Delete godoc
// @Summary Deactivate teacher
// @Tags Teachers
// @Param id path string true "Teacher ID"
// @Security BearerAuth
// @Success 204
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	if err := h.roster.Deactivate(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func rosterFilter(c *gin.Context) (models.TeacherFilter, error) {
	filter := models.TeacherFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("department")),
		CourseID:   c.Query("course_id"),
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 20),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "active must be true or false")
		}
		filter.Active = &active
	}
	return filter, nil
}

func actorID(c *gin.Context) string {
	actor, _ := actorFromContext(c)
	return actor.ID
}
