package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
	"github.com/noah-isme/lecture-diary-api/pkg/response"
)

// RequireRoles admits callers holding one of roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return guard(roles, "")
}

// RequireRolesOrSelf also admits the caller whose user id equals the route parameter param.
func RequireRolesOrSelf(param string, roles ...models.UserRole) gin.HandlerFunc {
	return guard(roles, param)
}

func guard(roles []models.UserRole, selfParam string) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if allowed[claims.Role] || (selfParam != "" && c.Param(selfParam) == claims.UserID) {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
