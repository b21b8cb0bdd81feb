package config

import (
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"time"    // For session lifetime

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort         string        // Application port
	DBUser          string        // Database user
	DBPassword      string        // Database password
	DBHost          string        // Database host
	DBPort          string        // Database port
	DBName          string        // Database name
	SessionSecret   string        // HMAC key for the session cookie token
	SessionTTL      time.Duration // Session lifetime
	DrawKey         string        // Hex encoded 32 byte key for draw encryption
	RedisAddr       string        // Redis server address
	RedisPass       string        // Redis password
	RedisDB         int           // Redis database number
	SecurityLog     string        // Path of the security event log
	LotterySchedule string        // Cron spec for automatic rounds, empty disables
	LoginRate       float64       // Login attempts per second per client
	LoginBurst      int           // Login attempt burst per client
	Maintenance     bool          // Serve 503 for every page
	IsProd          bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:         getEnv("APP_PORT", "8080"),                        // Application port
		DBUser:          os.Getenv("DB_USER"),                              // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"),                          // Database password
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),                    // Database host
		DBPort:          getEnv("DB_PORT", "3306"),                         // Database port
		DBName:          os.Getenv("DB_NAME"),                              // Database name
		SessionSecret:   os.Getenv("SESSION_SECRET"),                       // Session token key
		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),          // Session lifetime
		DrawKey:         os.Getenv("DRAW_KEY"),                             // Draw encryption key
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),            // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"),                           // Redis password
		RedisDB:         redisDB,                                           // Redis database number
		SecurityLog:     getEnv("SECURITY_LOG", "lottery.log"),             // Security log path
		LotterySchedule: os.Getenv("LOTTERY_SCHEDULE"),                     // Automatic round schedule
		LoginRate:       getFloat("LOGIN_RATE", 1),                         // Login attempts per second
		LoginBurst:      getInt("LOGIN_BURST", 5),                          // Login attempt burst
		Maintenance:     os.Getenv("MAINTENANCE_MODE") == "true",           // Maintenance switch
		IsProd:          os.Getenv("IS_PROD") == "true",                    // Is production environment
	}
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
