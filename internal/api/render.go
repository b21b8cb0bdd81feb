package api

import (
	"net/http" // HTTP status codes

	"lottery_system/internal/forms"      // Validation errors
	"lottery_system/internal/middleware" // Current user lookup
	"lottery_system/internal/session"    // Session state
	"lottery_system/internal/web"        // Error pages

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// render writes a page with the session's queued flashes and the current user
func render(c *gin.Context, sessions *session.Manager, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	sess := session.FromContext(c) // Session attached by the session middleware
	flashes := sess.PopFlashes()   // Consume queued messages
	data["flashes"] = flashes
	if u := middleware.CurrentUser(c); u != nil {
		data["user"] = u // Navigation depends on the user
	}
	// Persist only sessions that carry state; this also slides the expiry of logged in users
	if len(flashes) > 0 || sess.Logins > 0 || sess.Authenticated() {
		if err := sessions.Save(c, sess); err != nil {
			logrus.WithError(err).Error("Failed to save session")
		}
	}
	c.HTML(http.StatusOK, name, data)
}

// flash queues a message on the session for the next rendered page
func flash(c *gin.Context, msg string) {
	session.FromContext(c).AddFlash(msg)
}

// serverError logs err and renders the 500 page
func serverError(c *gin.Context, err error, msg string) {
	logrus.WithError(err).WithField("path", c.Request.URL.Path).Error(msg)
	web.RenderError(c, http.StatusInternalServerError)
}

// bindForm binds the posted form into obj. A body that cannot be decoded gets the
// 400 page and ok=false; validation failures come back as messages for the form.
func bindForm(c *gin.Context, obj any) (msgs []string, ok bool) {
	err := c.ShouldBind(obj)
	if err == nil {
		return nil, true
	}
	if !forms.IsValidation(err) {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Warn("Malformed form")
		web.RenderError(c, http.StatusBadRequest)
		return nil, false
	}
	return forms.Messages(err), true
}
