package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

type auditTrailService interface {
	Trail(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// AuditHandler lets administrators read the audit trail of a record.
type AuditHandler struct {
	audit auditTrailService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit auditTrailService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Trail godoc
// @Summary Audit trail of a record
// @Tags Audit
// @Produce json
// @Param resource query string true "Resource kind, e.g. leave or leave_balance"
// @Param resource_id query string true "Resource identifier"
// @Param limit query int false "Maximum entries (default 50, max 200)"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) Trail(c *gin.Context) {
	logs, err := h.audit.Trail(c.Request.Context(),
		strings.TrimSpace(c.Query("resource")),
		strings.TrimSpace(c.Query("resource_id")),
		queryInt(c, "limit", 50),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
