package api

import (
	"fmt" // Flash formatting

	"lottery_system/internal/forms"      // Draw form
	"lottery_system/internal/lottery"    // Draw lifecycle
	"lottery_system/internal/middleware" // Current user lookup
	"lottery_system/internal/session"    // Session state

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// LotteryHandler renders the player's lottery page
func LotteryHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, sessions, "lottery.html", nil)
	}
}

// AddDrawHandler stores a draw of six numbers for the current user
func AddDrawHandler(svc *lottery.Service, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form forms.DrawForm // Six numbers posted by the browser
		msgs, ok := bindForm(c, &form)
		if !ok {
			return
		}
		if len(msgs) > 0 {
			render(c, sessions, "lottery.html", gin.H{"errors": msgs})
			return
		}
		user := middleware.CurrentUser(c)
		draw, err := svc.Submit(c.Request.Context(), user.ID, form.Numbers())
		if err != nil {
			serverError(c, err, "Failed to submit draw")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "draw_id": draw.ID}).Info("Draw submitted")
		flash(c, fmt.Sprintf("Draw %s submitted.", draw.Plain))
		render(c, sessions, "lottery.html", nil)
	}
}

// ViewDrawsHandler lists the current user's playable draws
func ViewDrawsHandler(svc *lottery.Service, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		draws, err := svc.Playable(c.Request.Context(), user.ID)
		if err != nil {
			serverError(c, err, "Failed to list draws")
			return
		}
		if len(draws) == 0 {
			flash(c, "No playable draws.")
		}
		render(c, sessions, "lottery.html", gin.H{"playable_draws": draws})
	}
}

// CheckDrawsHandler shows the current user's played draws and whether they won
func CheckDrawsHandler(svc *lottery.Service, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		draws, err := svc.Results(c.Request.Context(), user.ID)
		if err != nil {
			serverError(c, err, "Failed to list results")
			return
		}
		if len(draws) == 0 {
			flash(c, "Next round of lottery yet to play. Check you have playable draws.")
		}
		render(c, sessions, "lottery.html", gin.H{"results": draws})
	}
}

// PlayAgainHandler deletes the current user's played draws
func PlayAgainHandler(svc *lottery.Service, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		n, err := svc.ClearPlayed(c.Request.Context(), user.ID)
		if err != nil {
			serverError(c, err, "Failed to delete played draws")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "deleted": n}).Info("Played draws deleted")
		flash(c, "All played draws deleted.")
		render(c, sessions, "lottery.html", nil)
	}
}
