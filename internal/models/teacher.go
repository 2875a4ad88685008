package models

import "time"

// Teacher is a user with the TEACHER role together with its course affiliations.
type Teacher struct {
	ID         string     `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	FullName   string     `db:"full_name" json:"full_name"`
	Department *string    `db:"department" json:"department,omitempty"`
	Active     bool       `db:"active" json:"active"`
	LastLogin  *time.Time `db:"last_login" json:"last_login,omitempty"`
	CourseIDs  []string   `db:"-" json:"course_ids"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search     string
	Department string
	CourseID   string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// CreateTeacherRequest registers a teacher account.
type CreateTeacherRequest struct {
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=6"`
	FullName   string   `json:"full_name" validate:"required"`
	Department *string  `json:"department"`
	CourseIDs  []string `json:"course_ids" validate:"omitempty,dive,required"`
}

// UpdateTeacherRequest updates mutable teacher attributes.
type UpdateTeacherRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	FullName   string  `json:"full_name" validate:"required"`
	Department *string `json:"department"`
	Active     *bool   `json:"active"`
}

// SetTeacherCoursesRequest replaces the course affiliations of a teacher.
type SetTeacherCoursesRequest struct {
	CourseIDs []string `json:"course_ids" validate:"omitempty,dive,required"`
}
