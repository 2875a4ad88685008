package models

import "time"

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// LeaveReportRequest selects the rows of the leave register export.
type LeaveReportRequest struct {
	Format      ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	UserID      string       `json:"user_id"`
	Status      LeaveStatus  `json:"status"`
	LeaveTypeID string       `json:"leave_type_id"`
	Year        int          `json:"year" validate:"omitempty,min=2000,max=2100"`
}

// DiaryReportRequest selects the rows of the lecture diary export.
type DiaryReportRequest struct {
	Format    ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	TeacherID string       `json:"teacher_id"`
	CourseID  string       `json:"course_id"`
	SubjectID string       `json:"subject_id"`
	From      string       `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string       `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ExportResult describes a rendered export file.
type ExportResult struct {
	ID        string       `json:"id"`
	Format    ReportFormat `json:"format"`
	Rows      int          `json:"rows"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
	Path      string       `json:"-"`
}
