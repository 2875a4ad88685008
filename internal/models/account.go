package models

import "time"

// UserRole is the RBAC role carried in access tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// User is a row of the users table. Teachers and administrators share it.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Department   *string    `db:"department" json:"department,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile is the public view of a User.
type Profile struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	Role       UserRole `json:"role"`
	Department *string  `json:"department,omitempty"`
}

// Profile strips credentials and bookkeeping columns.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, Department: u.Department}
}

// RefreshToken is one login session. Rotation revokes the presented row and opens a new one.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
}

// Usable reports whether the session can still be rotated at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Pagination is the page metadata of list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination clamps page to >= 1 and size to 1..100 (default 20).
func NewPagination(page, size, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = 20
	case size > 100:
		size = 100
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total}
}
