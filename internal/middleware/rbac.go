package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
	"github.com/noah-isme/hse-api/pkg/response"
)

// RequireRoles lets the listed roles through. SUPERADMIN always passes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles)+1)
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	allowed[models.RoleSuperAdmin] = struct{}{}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// SuperAdminOnly restricts the back-office routes.
func SuperAdminOnly() gin.HandlerFunc {
	return RequireRoles()
}

// Managers is the role set allowed to edit HSE records.
var Managers = []models.UserRole{models.RoleAdmin, models.RoleManager}
