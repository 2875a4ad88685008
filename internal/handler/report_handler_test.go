package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

type exportServiceMock struct {
	leaveReq models.LeaveReportRequest
	path     string
	openErr  error
}

func (m *exportServiceMock) LeaveRegister(ctx context.Context, req models.LeaveReportRequest, actor service.Actor) (*models.ExportResult, error) {
	m.leaveReq = req
	return &models.ExportResult{ID: "x1", Format: req.Format, URL: "/api/v1/reports/download?token=abc"}, nil
}

func (m *exportServiceMock) Diary(ctx context.Context, req models.DiaryReportRequest, actor service.Actor) (*models.ExportResult, error) {
	return nil, errors.New("not used")
}

func (m *exportServiceMock) Open(token string) (*os.File, string, error) {
	if m.openErr != nil {
		return nil, "", m.openErr
	}
	file, err := os.Open(m.path)
	return file, filepath.Base(m.path), err
}

func TestReportHandlerLeaveRegister(t *testing.T) {
	exports := &exportServiceMock{}
	h := NewReportHandler(exports)
	c, w := testContext(http.MethodPost, "/reports/leaves", `{"format":"CSV","year":2024}`, adminClaims)

	h.LeaveRegister(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.ReportFormatCSV, exports.leaveReq.Format)
	assert.Contains(t, w.Body.String(), "token=abc")
}

func TestReportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leave_register.csv")
	require.NoError(t, os.WriteFile(path, []byte("Teacher\nAsha\n"), 0o600))
	h := NewReportHandler(&exportServiceMock{path: path})
	c, w := testContext(http.MethodGet, "/reports/download?token=abc", nil, nil)

	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "leave_register.csv")
	assert.Equal(t, "Teacher\nAsha\n", w.Body.String())
}

func TestReportHandlerDownloadRejectsBadToken(t *testing.T) {
	h := NewReportHandler(&exportServiceMock{openErr: appErrors.Clone(appErrors.ErrForbidden, "invalid download link")})

	c, w := testContext(http.MethodGet, "/reports/download?token=bad", nil, nil)
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = testContext(http.MethodGet, "/reports/download", nil, nil)
	h.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
