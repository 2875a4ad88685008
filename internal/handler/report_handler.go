package handler

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

type exportService interface {
	LeaveRegister(ctx context.Context, req models.LeaveReportRequest, actor service.Actor) (*models.ExportResult, error)
	Diary(ctx context.Context, req models.DiaryReportRequest, actor service.Actor) (*models.ExportResult, error)
	Open(token string) (*os.File, string, error)
}

// ReportHandler renders exports and serves their downloads.
type ReportHandler struct {
	exports exportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(exports exportService) *ReportHandler {
	return &ReportHandler{exports: exports}
}

// LeaveRegister godoc
// @Summary Export the leave register
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.LeaveReportRequest true "Report filter"
// @Success 201 {object} response.Envelope
// @Router /reports/leaves [post]
func (h *ReportHandler) LeaveRegister(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.LeaveReportRequest
	if !bindJSON(c, &req, "invalid report payload") {
		return
	}
	req.Format = models.ReportFormat(strings.ToLower(string(req.Format)))
	result, err := h.exports.LeaveRegister(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Diary godoc
// @Summary Export the lecture diary
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.DiaryReportRequest true "Report filter"
// @Success 201 {object} response.Envelope
// @Router /reports/diary [post]
func (h *ReportHandler) Diary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.DiaryReportRequest
	if !bindJSON(c, &req, "invalid report payload") {
		return
	}
	req.Format = models.ReportFormat(strings.ToLower(string(req.Format)))
	result, err := h.exports.Diary(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered export
// @Description The signed token is the only credential required
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, name, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.ErrInternal.WithCause(err, "failed to read export"))
		return
	}
	contentType := "text/csv"
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		contentType = "application/pdf"
	}
	response.Attachment(c, name, contentType, info.Size(), file)
}
