package middleware

import (
	"net/http" // HTTP status codes

	"lottery_system/internal/audit"  // Security events
	"lottery_system/internal/domain" // Roles and permissions
	"lottery_system/internal/web"    // Error pages

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Log fields
)

// RequirePermission lets the request through only when the user's role grants perm.
// Denials are recorded as security events and answered with the forbidden page.
func RequirePermission(perm domain.Permission, events *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c) // Set by LoginRequired
		if user == nil {
			c.Redirect(http.StatusFound, "/login") // Guard used without LoginRequired
			c.Abort()
			return
		}
		// Check the role's capabilities
		if !user.Role.Can(perm) {
			events.Event("Unauthorised access attempt", logrus.Fields{
				"user_id":    user.ID,       // Actor
				"email":      user.Email,    // Actor email
				"role":       user.Role,     // Actor role
				"permission": perm.String(), // What was required
				"path":       c.Request.URL.Path,
				"ip":         c.ClientIP(), // Remote address
			})
			web.RenderError(c, http.StatusForbidden) // Fixed forbidden page
			return
		}
		c.Next() // Allowed, proceed to the next handler
	}
}
