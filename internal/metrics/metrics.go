// Package metrics exposes Prometheus collectors for the web application
package metrics

import (
	"net/http" // Handler type
	"strconv"  // Status labels
	"time"     // Request timing

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus"          // Collectors
	"github.com/prometheus/client_golang/prometheus/promhttp" // Exposition handler
)

var (
	Registry = prometheus.NewRegistry() // Application collectors only

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottery",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lottery",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lottery",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	drawsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lottery",
			Subsystem: "draws",
			Name:      "submitted_total",
			Help:      "Draws submitted by players.",
		},
	)

	roundsSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lottery",
			Subsystem: "rounds",
			Name:      "settled_total",
			Help:      "Lottery rounds settled.",
		},
	)

	winners = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lottery",
			Subsystem: "rounds",
			Name:      "winning_draws_total",
			Help:      "Draws that matched a winning draw.",
		},
	)
)

// Login outcomes
const (
	LoginSuccess        = "success"         // Password and code accepted
	LoginBadCredentials = "bad_credentials" // Unknown email or wrong password
	LoginBadCode        = "bad_code"        // Wrong one-time code
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		logins,
		drawsSubmitted,
		roundsSettled,
		winners,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations per matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Request start
		c.Next()
		route := c.FullPath() // Route pattern keeps label cardinality low
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveLogin counts a login attempt with the given outcome
func ObserveLogin(outcome string) { logins.WithLabelValues(outcome).Inc() }

// ObserveDraw counts a submitted draw
func ObserveDraw() { drawsSubmitted.Inc() }

// ObserveRound counts a settled round and its winning draws
func ObserveRound(winning int) {
	roundsSettled.Inc()
	winners.Add(float64(winning))
}
