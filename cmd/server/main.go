package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // Server shutdown comparison
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // Termination signal
	"time"      // Shutdown timeout

	"lottery_system/internal/audit"     // Security event log
	"lottery_system/internal/config"    // Custom package for configuration
	"lottery_system/internal/db"        // Database connection
	"lottery_system/internal/drawcrypt" // Draw encryption
	"lottery_system/internal/lottery"   // Draw lifecycle
	"lottery_system/internal/server"    // Router assembly
	"lottery_system/internal/session"   // Session state
	"lottery_system/internal/store"     // Persistence

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	// Security events also go to their own file
	logFile, err := audit.AttachFile(logrus.StandardLogger(), cfg.SecurityLog)
	if err != nil {
		logrus.Fatalf("failed to open security log: %v", err)
	}
	defer logFile.Close()

	if cfg.SessionSecret == "" {
		logrus.Fatal("SESSION_SECRET must be set")
	}
	// Draw numbers are sealed with this key
	key, err := drawcrypt.ParseKey(cfg.DrawKey)
	if err != nil {
		logrus.Fatalf("invalid DRAW_KEY: %v", err)
	}
	cipher, err := drawcrypt.New(key)
	if err != nil {
		logrus.Fatalf("failed to set up draw encryption: %v", err)
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	defer redisClient.Close()

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	users := store.NewUsers(gdb)                           // User persistence
	svc := lottery.NewService(store.NewDraws(gdb), cipher) // Draw lifecycle
	events := audit.New(logrus.StandardLogger())           // Security events
	bg, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	r, err := server.NewRouter(server.Deps{
		Users:       users,
		Lottery:     svc,
		Sessions:    session.NewManager(redisClient, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProd),
		Redis:       redisClient,
		Events:      events,
		SecurityLog: cfg.SecurityLog,
		LoginRate:   cfg.LoginRate,
		LoginBurst:  cfg.LoginBurst,
		Maintenance: cfg.Maintenance,
		Background:  bg,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	// Optional automatic rounds
	if cfg.LotterySchedule != "" {
		sched, err := lottery.NewScheduler(cfg.LotterySchedule, svc, logrus.StandardLogger())
		if err != nil {
			logrus.Fatalf("invalid LOTTERY_SCHEDULE: %v", err)
		}
		sched.Start()
		defer sched.Stop()
		logrus.WithField("schedule", cfg.LotterySchedule).Info("Lottery scheduler started")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort, // Listen address
		Handler:           r,                 // Gin engine
		ReadHeaderTimeout: 10 * time.Second,  // Slow client guard
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for an interrupt, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown: %v", err)
	}
	logrus.Info("Server stopped")
}
