package middleware

import (
	"errors"   // Sentinel comparison
	"net/http" // HTTP status codes

	"lottery_system/internal/domain"  // Domain models
	"lottery_system/internal/session" // Session state
	"lottery_system/internal/store"   // User lookups
	"lottery_system/internal/web"     // Error pages

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

const currentUserKey = "currentUser" // Context key for the logged in user

// LoginRequired redirects anonymous visitors to the login page and loads the session user
func LoginRequired(users store.UserStore, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c) // Session attached by the session middleware
		// No user on the session means nobody is logged in
		if !sess.Authenticated() {
			c.Redirect(http.StatusFound, "/login") // Send to the login page
			c.Abort()
			return
		}
		user, err := users.FindByID(c.Request.Context(), sess.UserID) // Re-read the user on each request
		if errors.Is(err, store.ErrNotFound) {
			// The account vanished, drop the stale session
			_ = sessions.Destroy(c, sess)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		if err != nil {
			logrus.WithError(err).WithField("user_id", sess.UserID).Error("Failed to load session user")
			web.RenderError(c, http.StatusInternalServerError) // Database failure
			return
		}
		c.Set(currentUserKey, user) // Store user in context
		c.Next()                    // Proceed to the next handler
	}
}

// CurrentUser returns the user loaded by LoginRequired, or nil on public routes
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
