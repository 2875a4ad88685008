package models

import "time"

// LectureEntry is one row of a teacher's lecture diary.
type LectureEntry struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	TopicID     *string   `db:"topic_id" json:"topic_id,omitempty"`
	LectureDate time.Time `db:"lecture_date" json:"lecture_date"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Hours       float64   `db:"hours" json:"hours"`
	Summary     string    `db:"summary" json:"summary"`
	Remarks     *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LectureEntryView enriches an entry with catalog names for listings and exports.
type LectureEntryView struct {
	LectureEntry
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
	CourseName  string  `db:"course_name" json:"course_name"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	TopicTitle  *string `db:"topic_title" json:"topic_title,omitempty"`
}

// LectureFilter narrows diary listings.
type LectureFilter struct {
	TeacherID string
	CourseID  string
	SubjectID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// LectureRequest creates or updates a diary entry. Times use HH:MM.
type LectureRequest struct {
	CourseID    string  `json:"course_id" validate:"required"`
	SubjectID   string  `json:"subject_id" validate:"required"`
	TopicID     *string `json:"topic_id"`
	LectureDate string  `json:"lecture_date" validate:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string  `json:"end_time" validate:"required,datetime=15:04"`
	Summary     string  `json:"summary" validate:"required"`
	Remarks     *string `json:"remarks"`
}
