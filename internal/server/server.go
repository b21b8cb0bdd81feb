// Package server assembles the gin engine: middleware chain, routes and error pages
package server

import (
	"context"  // Lifetime of background work
	"fmt"      // Error wrapping
	"net/http" // HTTP status codes
	"time"     // Sweep interval

	"lottery_system/internal/api"        // HTTP handlers
	"lottery_system/internal/audit"      // Security events
	"lottery_system/internal/domain"     // Permissions
	"lottery_system/internal/forms"      // Form validators
	"lottery_system/internal/lottery"    // Draw lifecycle
	"lottery_system/internal/metrics"    // Prometheus collectors
	"lottery_system/internal/middleware" // Access control
	"lottery_system/internal/session"    // Session state
	"lottery_system/internal/store"      // Persistence
	"lottery_system/internal/web"        // Templates and error pages

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging
)

// Deps is everything the router needs from the outside world
type Deps struct {
	Users       store.UserStore  // User persistence
	Lottery     *lottery.Service // Draw lifecycle
	Sessions    *session.Manager // Session state
	Redis       redis.Cmdable    // Cache for admin listings
	Events      *audit.Logger    // Security events
	SecurityLog string           // Path shown on the admin logs page
	LoginRate   float64          // Login attempts per second per client
	LoginBurst  int              // Login attempt burst per client
	Maintenance bool             // Serve 503 for every page
	Background  context.Context  // Stops background sweeps, nil disables them
}

const limiterSweep = time.Minute // How often idle login clients are forgotten

// NewRouter builds the engine with all routes registered
func NewRouter(d Deps) (*gin.Engine, error) {
	// Install custom validators on gin's binding engine
	if err := forms.Register(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	r := gin.New() // Gin router instance
	r.SetHTMLTemplate(web.Templates())
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	r.Use(
		gin.Logger(),                          // Access log
		gin.CustomRecovery(recovered),         // Panics render the 500 page
		metrics.Middleware(),                  // Request counters
		middleware.Maintenance(d.Maintenance), // Maintenance switch
		d.Sessions.Middleware(),               // Attach the session
	)
	r.NoRoute(func(c *gin.Context) { web.RenderError(c, http.StatusNotFound) })
	r.HandleMethodNotAllowed = false // Unknown methods are reported as missing pages
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public pages
	limiter := middleware.NewRateLimiter(d.LoginRate, d.LoginBurst, d.Events)
	if d.Background != nil {
		limiter.StartCleanup(d.Background, limiterSweep)
	}
	r.GET("/", api.IndexHandler(d.Sessions))
	r.GET("/register", api.RegisterHandler(d.Users, d.Sessions, d.Events))
	r.POST("/register", api.RegisterHandler(d.Users, d.Sessions, d.Events))
	r.GET("/login", api.LoginHandler(d.Users, d.Sessions, d.Events))
	r.POST("/login", limiter.Handler(), api.LoginHandler(d.Users, d.Sessions, d.Events))

	// Pages for any logged in user
	authed := r.Group("/")
	authed.Use(middleware.LoginRequired(d.Users, d.Sessions))
	authed.GET("/logout", api.LogoutHandler(d.Sessions, d.Events))
	authed.GET("/profile", api.ProfileHandler(d.Sessions))
	authed.GET("/account", api.AccountHandler(d.Sessions))

	// Player pages
	player := authed.Group("/")
	player.Use(middleware.RequirePermission(domain.PermPlayLottery, d.Events))
	player.GET("/lottery", api.LotteryHandler(d.Sessions))
	player.POST("/add_draw", api.AddDrawHandler(d.Lottery, d.Sessions))
	player.POST("/view_draws", api.ViewDrawsHandler(d.Lottery, d.Sessions))
	player.POST("/check_draws", api.CheckDrawsHandler(d.Lottery, d.Sessions))
	player.POST("/play_again", api.PlayAgainHandler(d.Lottery, d.Sessions))

	// Admin pages
	admin := authed.Group("/")
	admin.Use(middleware.RequirePermission(domain.PermManageLottery, d.Events))
	admin.GET("/admin", api.AdminHandler(d.Sessions))
	admin.POST("/generate_winning_draw", api.GenerateWinningDrawHandler(d.Lottery, d.Sessions, d.Events))
	admin.POST("/view_winning_draw", api.ViewWinningDrawHandler(d.Lottery, d.Sessions))
	admin.POST("/run_lottery", api.RunLotteryHandler(d.Lottery, d.Sessions, d.Events))
	admin.POST("/view_all_users", middleware.RequirePermission(domain.PermViewUsers, d.Events),
		api.ListUsersHandler(d.Users, d.Redis, d.Sessions))
	admin.POST("/logs", middleware.RequirePermission(domain.PermViewSecurityLog, d.Events),
		api.LogsHandler(d.SecurityLog, d.Sessions))

	return r, nil
}

// recovered logs a handler panic and answers with the 500 page
func recovered(c *gin.Context, err any) {
	logrus.WithField("path", c.Request.URL.Path).Errorf("panic: %v", err)
	web.RenderError(c, http.StatusInternalServerError)
}
