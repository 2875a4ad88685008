package models

import "time"

// Course is a programme offered by the college, e.g. "B.Sc Computer Science".
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseRequest creates or updates a course.
type CourseRequest struct {
	Code        string  `json:"code" validate:"required,max=32"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}
