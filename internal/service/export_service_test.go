package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/storage"
)

type registerStub struct {
	filters []models.LeaveFilter
	err     error
}

func (r *registerStub) ListAll(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRecordView, error) {
	r.filters = append(r.filters, filter)
	if r.err != nil {
		return nil, r.err
	}
	start := day("2024-02-05")
	return []models.LeaveRecordView{{
		LeaveRecord:   models.LeaveRecord{ID: "l1", UserID: filter.UserID, StartDate: &start, EndDate: &start, Reason: "doctor, dentist", Status: models.LeaveStatusApproved},
		UserName:      "Asha Rao",
		LeaveTypeName: "Casual Leave (CL)",
	}}, nil
}

type diaryStub struct {
	filters []models.LectureFilter
}

func (d *diaryStub) ListAll(ctx context.Context, filter models.LectureFilter) ([]models.LectureEntryView, error) {
	d.filters = append(d.filters, filter)
	return []models.LectureEntryView{{
		LectureEntry: models.LectureEntry{ID: "e1", TeacherID: filter.TeacherID, LectureDate: day("2024-03-08"), StartTime: "09:00", EndTime: "10:00", Hours: 1, Summary: "Stacks"},
		TeacherName:  "Asha Rao",
		CourseName:   "B.Sc Computer Science",
		SubjectName:  "Data Structures",
	}}, nil
}

func newExportFixture(t *testing.T) (*ExportService, *registerStub, *diaryStub, *MetricsService) {
	t.Helper()
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	leaves, lectures, metrics := &registerStub{}, &diaryStub{}, NewMetricsService()
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(leaves, lectures, store, signer, metrics, ExportConfig{APIPrefix: "/api/v1/"}, nil, nil, nil)
	return svc, leaves, lectures, metrics
}

func TestExportLeaveRegisterCSV(t *testing.T) {
	svc, leaves, _, metrics := newExportFixture(t)

	result, err := svc.LeaveRegister(context.Background(), models.LeaveReportRequest{Format: models.ReportFormatCSV, UserID: "t2", Year: 2024}, teacherActor)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/reports/download?token="))
	assert.Equal(t, "t1", leaves.filters[0].UserID)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.exportsGenerated.WithLabelValues(reportLeaveRegister, "csv")))

	token := strings.TrimPrefix(result.URL, "/api/v1/reports/download?token=")
	file, name, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	assert.True(t, strings.HasSuffix(name, ".csv"))

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Teacher,Leave Type,Start,End,Days,Status,Reason,Remarks")
	assert.Contains(t, string(body), `Asha Rao,Casual Leave (CL),2024-02-05,2024-02-05,1,approved,"doctor, dentist",`)
}

func TestExportDiaryPDF(t *testing.T) {
	svc, _, lectures, _ := newExportFixture(t)

	result, err := svc.Diary(context.Background(), models.DiaryReportRequest{Format: models.ReportFormatPDF, TeacherID: "t1", From: "2024-03-01", To: "2024-03-31"}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)
	require.Len(t, lectures.filters, 1)
	assert.Equal(t, "t1", lectures.filters[0].TeacherID)
	assert.Equal(t, day("2024-03-01"), *lectures.filters[0].From)

	token := result.URL[strings.Index(result.URL, "token=")+len("token="):]
	file, _, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestExportValidation(t *testing.T) {
	svc, leaves, _, _ := newExportFixture(t)

	_, err := svc.LeaveRegister(context.Background(), models.LeaveReportRequest{Format: "xlsx"}, adminActor)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.LeaveRegister(context.Background(), models.LeaveReportRequest{Format: models.ReportFormatCSV, Status: "cancelled"}, adminActor)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
	assert.Empty(t, leaves.filters)

	_, err = svc.Diary(context.Background(), models.DiaryReportRequest{Format: models.ReportFormatCSV, From: "2024-03-31", To: "2024-03-01"}, adminActor)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	leaves.err = errors.New("db down")
	_, err = svc.LeaveRegister(context.Background(), models.LeaveReportRequest{Format: models.ReportFormatCSV}, adminActor)
	assert.Equal(t, appErrors.ErrStorageFailure.Code, appErrors.FromError(err).Code)
}

func TestExportOpenRejectsBadTokens(t *testing.T) {
	svc, _, _, _ := newExportFixture(t)

	_, _, err := svc.Open("not-a-token")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	other := storage.NewSignedURLSigner("secret", time.Hour)
	token, _, err := other.Generate("x", "missing.csv")
	require.NoError(t, err)
	_, _, err = svc.Open(token)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
