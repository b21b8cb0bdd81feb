package api

import (
	"errors"   // Sentinel comparison
	"net/http" // HTTP status codes
	"time"     // Login timestamps

	"lottery_system/internal/audit"      // Security events
	"lottery_system/internal/auth"       // Credential checks
	"lottery_system/internal/domain"     // Domain models
	"lottery_system/internal/forms"      // Form binding and validation
	"lottery_system/internal/metrics"    // Login counters
	"lottery_system/internal/middleware" // Current user lookup
	"lottery_system/internal/session"    // Session state
	"lottery_system/internal/store"      // Persistence

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Log fields
)

// IndexHandler renders the public home page
func IndexHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, sessions, "index.html", nil)
	}
}

// RegisterHandler shows the sign-up form and creates accounts with role user
func RegisterHandler(users store.UserStore, sessions *session.Manager, events *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form forms.RegisterForm // Form posted by the browser
		// GET only shows the empty form
		if c.Request.Method == http.MethodGet {
			render(c, sessions, "register.html", gin.H{"form": &form})
			return
		}
		// Bind and validate the form
		msgs, ok := bindForm(c, &form)
		if !ok {
			return
		}
		if len(msgs) > 0 {
			// Validation problems are shown above the form
			render(c, sessions, "register.html", gin.H{"form": &form, "errors": msgs})
			return
		}
		ctx := c.Request.Context()
		// Reject an email that is already registered
		if _, err := users.FindByEmail(ctx, form.Email); err == nil {
			flash(c, "Email address already exists")
			render(c, sessions, "register.html", gin.H{"form": &form})
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			serverError(c, err, "Failed to look up email")
			return
		}
		// Hash the password before storing it
		hash, err := auth.HashPassword(form.Password)
		if err != nil {
			serverError(c, err, "Failed to hash password")
			return
		}
		// Create the new user with the form data
		user := domain.User{
			Email:     form.Email,      // Login email
			FirstName: form.FirstName,  // First name
			LastName:  form.LastName,   // Last name
			Phone:     form.Phone,      // Phone number
			Password:  hash,            // Salted hash
			PinKey:    form.PinKey,     // TOTP seed
			Role:      domain.RoleUser, // New accounts are always players
		}
		if err := users.Create(ctx, &user); errors.Is(err, store.ErrDuplicateEmail) {
			// Lost a race with a concurrent registration
			flash(c, "Email address already exists")
			render(c, sessions, "register.html", gin.H{"form": &form})
			return
		} else if err != nil {
			serverError(c, err, "Failed to create user")
			return
		}
		events.Event("User registration", logrus.Fields{"email": user.Email, "ip": c.ClientIP()})
		c.Redirect(http.StatusFound, "/login") // Send the new user to the login page
	}
}

// LoginHandler checks password and one-time code and starts the user's session
func LoginHandler(users store.UserStore, sessions *session.Manager, events *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c) // Carries the failed attempt counter
		var form forms.LoginForm       // Form posted by the browser
		if c.Request.Method == http.MethodGet {
			// Remind a visitor that already used up the attempts
			if sess.Logins >= auth.MaxLoginAttempts {
				flash(c, auth.AttemptMessage(sess.Logins))
			}
			render(c, sessions, "login.html", gin.H{"form": &form})
			return
		}
		// Bind and validate the form
		msgs, ok := bindForm(c, &form)
		if !ok {
			return
		}
		if len(msgs) > 0 {
			render(c, sessions, "login.html", gin.H{"form": &form, "errors": msgs})
			return
		}
		sess.Logins++ // Count this attempt
		ctx := c.Request.Context()
		fields := logrus.Fields{"email": form.Email, "ip": c.ClientIP()} // Logged on every outcome

		user, err := users.FindByEmail(ctx, form.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			serverError(c, err, "Failed to look up user")
			return
		}
		// Unknown email and wrong password look the same to the visitor
		if user == nil || !auth.CheckPassword(user.Password, form.Password) {
			events.Event("Log in attempt", fields)
			metrics.ObserveLogin(metrics.LoginBadCredentials)
			flash(c, auth.AttemptMessage(sess.Logins))
			render(c, sessions, "login.html", gin.H{"form": &form})
			return
		}
		// Password matched, the one-time code must match too
		if !auth.VerifyCode(user.PinKey, form.Pin) {
			events.Event("Log in attempt", fields)
			metrics.ObserveLogin(metrics.LoginBadCode)
			flash(c, "You have supplied an invalid 2FA token")
			render(c, sessions, "login.html", gin.H{"form": &form})
			return
		}
		// Rotate login timestamps
		if err := users.RecordLogin(ctx, user, time.Now()); err != nil {
			serverError(c, err, "Failed to record login")
			return
		}
		sess.Logins = 0       // Success clears the counter
		sess.UserID = user.ID // Bind the session to the user
		// Issue a fresh session id for the logged in session
		if err := sessions.Renew(c, sess); err != nil {
			serverError(c, err, "Failed to start session")
			return
		}
		events.Event("Log in", fields)
		metrics.ObserveLogin(metrics.LoginSuccess)
		// Direct to the role appropriate page
		if user.Role == domain.RoleAdmin {
			c.Redirect(http.StatusFound, "/admin")
			return
		}
		c.Redirect(http.StatusFound, "/lottery")
	}
}

// LogoutHandler ends the session
func LogoutHandler(sessions *session.Manager, events *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c) // Set by LoginRequired
		events.Event("Log out", logrus.Fields{"user_id": user.ID, "email": user.Email, "ip": c.ClientIP()})
		if err := sessions.Destroy(c, session.FromContext(c)); err != nil {
			serverError(c, err, "Failed to end session")
			return
		}
		c.Redirect(http.StatusFound, "/") // Back to the home page
	}
}

// ProfileHandler greets the logged in user
func ProfileHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		render(c, sessions, "profile.html", gin.H{"name": user.FirstName})
	}
}

// AccountHandler shows the logged in user's details
func AccountHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		render(c, sessions, "account.html", gin.H{
			"acc_no":    user.ID,        // Account number
			"email":     user.Email,     // Email
			"firstname": user.FirstName, // First name
			"lastname":  user.LastName,  // Last name
			"phone":     user.Phone,     // Phone number
		})
	}
}
