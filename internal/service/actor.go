package service

import "github.com/noah-isme/lecture-diary-api/internal/models"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role models.UserRole
}

// IsAdmin reports whether the caller has administrative rights.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Owns reports whether the caller is the owner or an administrator.
func (a Actor) Owns(ownerID string) bool {
	return a.IsAdmin() || (a.ID != "" && a.ID == ownerID)
}
