package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/middleware"
	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

// CurriculumHandler exposes courses, subjects and topics.
type CurriculumHandler struct {
	curriculum *service.CurriculumService
}

// NewCurriculumHandler constructs a CurriculumHandler.
func NewCurriculumHandler(curriculum *service.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculum: curriculum}
}

// ListCourses godoc
// @Summary List courses
// @Tags Curriculum
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CurriculumHandler) ListCourses(c *gin.Context) {
	courses, err := h.curriculum.ListCourses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, middleware.ExtractMeta(c))
}

// GetCourse godoc
// @Summary Get course
// @Tags Curriculum
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CurriculumHandler) GetCourse(c *gin.Context) {
	course, err := h.curriculum.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param payload body models.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CurriculumHandler) CreateCourse(c *gin.Context) {
	var req models.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.curriculum.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update course
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CurriculumHandler) UpdateCourse(c *gin.Context) {
	var req models.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.curriculum.UpdateCourse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// DeleteCourse godoc
// @Summary Delete course
// @Tags Curriculum
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CurriculumHandler) DeleteCourse(c *gin.Context) {
	if err := h.curriculum.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List subjects of a course
// @Tags Curriculum
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/subjects [get]
func (h *CurriculumHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.curriculum.ListSubjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// GetSubject godoc
// @Summary Get subject
// @Tags Curriculum
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *CurriculumHandler) GetSubject(c *gin.Context) {
	subject, err := h.curriculum.GetSubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// CreateSubject godoc
// @Summary Create subject in a course
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.SubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/subjects [post]
func (h *CurriculumHandler) CreateSubject(c *gin.Context) {
	var req models.SubjectRequest
	if !bindJSON(c, &req, "invalid subject payload") {
		return
	}
	subject, err := h.curriculum.CreateSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// UpdateSubject godoc
// @Summary Update subject
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body models.SubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *CurriculumHandler) UpdateSubject(c *gin.Context) {
	var req models.SubjectRequest
	if !bindJSON(c, &req, "invalid subject payload") {
		return
	}
	subject, err := h.curriculum.UpdateSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// DeleteSubject godoc
// @Summary Delete subject
// @Tags Curriculum
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *CurriculumHandler) DeleteSubject(c *gin.Context) {
	if err := h.curriculum.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTopics godoc
// @Summary List topics of a subject
// @Tags Curriculum
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/topics [get]
func (h *CurriculumHandler) ListTopics(c *gin.Context) {
	topics, err := h.curriculum.ListTopics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, nil)
}

// GetTopic godoc
// @Summary Get topic
// @Tags Curriculum
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /topics/{id} [get]
func (h *CurriculumHandler) GetTopic(c *gin.Context) {
	topic, err := h.curriculum.GetTopic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topic, nil)
}

// CreateTopic godoc
// @Summary Create topic in a subject
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body models.TopicRequest true "Topic payload"
// @Success 201 {object} response.Envelope
// @Router /subjects/{id}/topics [post]
func (h *CurriculumHandler) CreateTopic(c *gin.Context) {
	var req models.TopicRequest
	if !bindJSON(c, &req, "invalid topic payload") {
		return
	}
	topic, err := h.curriculum.CreateTopic(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}

// UpdateTopic godoc
// @Summary Update topic
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Param payload body models.TopicRequest true "Topic payload"
// @Success 200 {object} response.Envelope
// @Router /topics/{id} [put]
func (h *CurriculumHandler) UpdateTopic(c *gin.Context) {
	var req models.TopicRequest
	if !bindJSON(c, &req, "invalid topic payload") {
		return
	}
	topic, err := h.curriculum.UpdateTopic(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topic, nil)
}

// DeleteTopic godoc
// @Summary Delete topic
// @Tags Curriculum
// @Param id path string true "Topic ID"
// @Success 204
// @Router /topics/{id} [delete]
func (h *CurriculumHandler) DeleteTopic(c *gin.Context) {
	if err := h.curriculum.DeleteTopic(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
