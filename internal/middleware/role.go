package middleware

import (
	"net/http"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only when OAuth2Auth found the given role
func RequireRole(requiredRole models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextUserID)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.NewAPIError(models.ErrUnauthorized, "User not authenticated"))
			return
		}

		role, ok := c.Get(ContextUserRole)
		userRole, isRole := role.(models.Role)
		if !ok || !isRole {
			c.AbortWithStatusJSON(http.StatusForbidden,
				models.NewAPIError(models.ErrForbidden, "User role not found in token"))
			return
		}

		if userRole != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden,
				"Insufficient permissions", map[string]interface{}{
					"required_role": requiredRole,
					"user_role":     userRole,
					"user_id":       userID,
				}))
			return
		}

		c.Next()
	}
}
