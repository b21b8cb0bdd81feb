package api

import (
	"errors"  // Sentinel comparison
	"fmt"     // Flash formatting
	"strconv" // String conversion
	"time"    // Cache TTL

	"lottery_system/internal/audit"      // Security events and log tail
	"lottery_system/internal/domain"     // Domain models
	"lottery_system/internal/lottery"    // Draw lifecycle
	"lottery_system/internal/middleware" // Current user lookup
	"lottery_system/internal/session"    // Session state
	"lottery_system/internal/store"      // Persistence
	"lottery_system/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging
)

const (
	defaultPageSize = 20               // Users per page when none is given
	maxPageSize     = 100              // Largest page an admin may ask for
	usersCacheTTL   = 60 * time.Second // How long a user listing page is cached
	logTailLines    = 10               // Security log lines shown on the admin page
)

// UserAdminResponse represents the user data shown to admins
type UserAdminResponse struct {
	ID        uint        `json:"id"`         // User ID
	Email     string      `json:"email"`      // Login email
	FirstName string      `json:"first_name"` // First name
	LastName  string      `json:"last_name"`  // Last name
	Phone     string      `json:"phone"`      // Phone number
	Role      domain.Role `json:"role"`       // User role
}

// userPage is one cached page of the user listing
type userPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
}

// AdminHandler renders the admin page
func AdminHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, sessions, "admin.html", adminData(c, nil))
	}
}

// GenerateWinningDrawHandler picks new winning numbers for the open round
func GenerateWinningDrawHandler(svc *lottery.Service, sessions *session.Manager, events *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.CurrentUser(c)
		draw, err := svc.GenerateWinningDraw(c.Request.Context(), admin.ID)
		if err != nil {
			serverError(c, err, "Failed to generate winning draw")
			return
		}
		events.Event("Winning draw generated", logrus.Fields{"user_id": admin.ID, "round": draw.Round, "ip": c.ClientIP()})
		flash(c, fmt.Sprintf("New winning draw %s added.", draw.Plain))
		render(c, sessions, "admin.html", adminData(c, nil))
	}
}

// ViewWinningDrawHandler shows the current winning draw
func ViewWinningDrawHandler(svc *lottery.Service, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		draw, err := svc.WinningDraw(c.Request.Context())
		if errors.Is(err, lottery.ErrNoWinningDraw) {
			flash(c, "No valid winning draw exists. Please add new winning draw.")
			render(c, sessions, "admin.html", adminData(c, nil))
			return
		}
		if err != nil {
			serverError(c, err, "Failed to load winning draw")
			return
		}
		render(c, sessions, "admin.html", adminData(c, gin.H{"winning_draw": draw}))
	}
}

// RunLotteryHandler settles all user entries against the winning draw
func RunLotteryHandler(svc *lottery.Service, sessions *session.Manager, events *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.CurrentUser(c)
		round, err := svc.RunRound(c.Request.Context())
		switch {
		case errors.Is(err, lottery.ErrNoWinningDraw):
			flash(c, "Current winning draw expired. Add new winning draw for next round.")
			render(c, sessions, "admin.html", adminData(c, nil))
			return
		case errors.Is(err, lottery.ErrNoEntries):
			flash(c, "No user entries.")
			render(c, sessions, "admin.html", adminData(c, nil))
			return
		case err != nil:
			serverError(c, err, "Failed to run lottery")
			return
		}
		events.Event("Lottery round run", logrus.Fields{
			"user_id": admin.ID,           // Admin who ran it
			"round":   round.Number,       // Settled round
			"entries": round.Entries,      // Draws played
			"winners": len(round.Winners), // Winning draws
			"ip":      c.ClientIP(),       // Remote address
		})
		// One message per winning draw
		for _, w := range round.Winners {
			flash(c, fmt.Sprintf("Round %d winner: user %d with draw %s.", round.Number, w.UserID, w.Plain))
		}
		if len(round.Winners) == 0 {
			flash(c, "No winners.")
		}
		flash(c, fmt.Sprintf("Round %d played with %d entries. Add new winning draw for next round.", round.Number, round.Entries))
		render(c, sessions, "admin.html", adminData(c, nil))
	}
}

// ListUsersHandler shows registered players a page at a time
func ListUsersHandler(users store.UserStore, rdb redis.Cmdable, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := intParam(c, "page", 1, 0)                                  // Page number
		pageSize := intParam(c, "page_size", defaultPageSize, maxPageSize) // Page size
		// Create a cache key based on pagination parameters
		cacheKey := utils.CacheKey("admin", "users", "page="+strconv.Itoa(page), "size="+strconv.Itoa(pageSize))
		var result userPage
		found, err := utils.GetCache(ctx, rdb, cacheKey, &result)
		if err != nil {
			logrus.WithError(err).Warn("User listing cache unavailable") // Fall back to the database
		}
		if !found || err != nil {
			offset := (page - 1) * pageSize // Calculate offset for pagination
			list, total, err := users.List(ctx, domain.RoleUser, offset, pageSize)
			if err != nil {
				serverError(c, err, "Failed to list users")
				return
			}
			result = userPage{
				Users:      make([]UserAdminResponse, len(list)),
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
			}
			// Map users to response format
			for i, u := range list {
				result.Users[i] = UserAdminResponse{
					ID:        u.ID,        // User ID
					Email:     u.Email,     // Email
					FirstName: u.FirstName, // First name
					LastName:  u.LastName,  // Last name
					Phone:     u.Phone,     // Phone number
					Role:      u.Role,      // User role
				}
			}
			// Cache the page for future requests
			if err := utils.SetCache(ctx, rdb, cacheKey, result, usersCacheTTL); err != nil {
				logrus.WithError(err).Warn("Failed to cache user listing")
			}
		}
		if result.Total == 0 {
			flash(c, "No registered users.")
		}
		data := gin.H{
			"current_users": result.Users,      // List of users
			"page":          result.Page,       // Current page
			"page_size":     result.PageSize,   // Page size
			"total":         result.Total,      // Total number of users
			"total_pages":   result.TotalPages, // Total pages
			"cached":        found,             // Whether the page came from cache
		}
		if result.Page > 1 {
			data["prev_page"] = result.Page - 1
		}
		if result.Page < result.TotalPages {
			data["next_page"] = result.Page + 1
		}
		render(c, sessions, "admin.html", adminData(c, data))
	}
}

// LogsHandler shows the newest security log lines
func LogsHandler(path string, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		lines, err := audit.Tail(path, logTailLines)
		if err != nil {
			serverError(c, err, "Failed to read security log")
			return
		}
		if len(lines) == 0 {
			flash(c, "No security events recorded.")
		}
		render(c, sessions, "admin.html", adminData(c, gin.H{"logs": lines}))
	}
}

// adminData adds the admin's name to the page data
func adminData(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	if u := middleware.CurrentUser(c); u != nil {
		data["name"] = u.FirstName // Greeting on the admin page
	}
	return data
}

// intParam reads a positive integer from the form or query, capped at max when max > 0
func intParam(c *gin.Context, name string, def, max int) int {
	raw := c.PostForm(name) // Admin pages post their buttons
	if raw == "" {
		raw = c.Query(name) // Links may use the query string
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || (max > 0 && v > max) {
		return def
	}
	return v
}
