package models

import "time"

// Subject belongs to a course and groups the topics taught in a semester.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Semester  int       `db:"semester" json:"semester"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectRequest creates or updates a subject under a course.
type SubjectRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required"`
	Semester int    `json:"semester" validate:"required,min=1,max=12"`
}

// Topic is a syllabus unit of a subject.
type Topic struct {
	ID           string    `db:"id" json:"id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Title        string    `db:"title" json:"title"`
	Sequence     int       `db:"sequence" json:"sequence"`
	PlannedHours *float64  `db:"planned_hours" json:"planned_hours,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TopicRequest creates or updates a topic under a subject.
type TopicRequest struct {
	Title        string   `json:"title" validate:"required"`
	Sequence     int      `json:"sequence" validate:"min=0"`
	PlannedHours *float64 `json:"planned_hours" validate:"omitempty,gt=0"`
}
