// Package session keeps per-browser state in Redis behind a signed cookie
package session

import (
	"context"  // Redis calls
	"fmt"      // Error wrapping
	"net/http" // SameSite modes
	"time"     // Session lifetime

	"lottery_system/internal/utils" // Cache and token helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Session identifiers
	"github.com/redis/go-redis/v9" // Session storage
	"github.com/sirupsen/logrus"   // Logging
)

const (
	CookieName = "lottery_session" // Name of the session cookie
	contextKey = "session"         // gin context key
	keyPrefix  = "session"         // Redis key prefix
)

// Session is the server side state of one browser
type Session struct {
	ID      string   `json:"id"`                // Session identifier
	UserID  uint     `json:"user_id,omitempty"` // Logged in user, zero when anonymous
	Logins  int      `json:"logins"`            // Logins made through this session
	Flashes []string `json:"flashes,omitempty"` // Messages for the next page
}

// Authenticated reports whether a user is logged in on this session
func (s *Session) Authenticated() bool {
	return s.UserID != 0
}

// AddFlash queues a message for the next rendered page
func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// PopFlashes returns and clears the queued messages
func (s *Session) PopFlashes() []string {
	f := s.Flashes
	s.Flashes = nil
	return f
}

// Manager loads and persists sessions
type Manager struct {
	rdb    redis.Cmdable // Session storage
	secret string        // Cookie signing key
	ttl    time.Duration // Session lifetime
	secure bool          // HTTPS only cookies
}

// NewManager returns a Manager storing sessions in rdb for ttl
func NewManager(rdb redis.Cmdable, secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{rdb: rdb, secret: secret, ttl: ttl, secure: secure}
}

// Middleware attaches the caller's session to the gin context, starting a
// fresh one when the cookie is missing, forged or expired
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.load(c)
		if err != nil {
			logrus.WithError(err).Warn("discarding unreadable session")
		}
		if s == nil {
			s = &Session{ID: uuid.NewString()} // Start a fresh session
		}
		c.Set(contextKey, s)
		c.Next()
	}
}

// load reads the session named by the cookie, nil when there is none
func (m *Manager) load(c *gin.Context) (*Session, error) {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		return nil, nil // No cookie yet
	}
	claims, err := utils.ParseSessionToken(raw, m.secret)
	if err != nil {
		return nil, nil // Forged or expired cookie
	}
	var s Session
	found, err := utils.GetCache(c.Request.Context(), m.rdb, key(claims.SessionID), &s)
	if err != nil || !found {
		return nil, err
	}
	s.ID = claims.SessionID
	return &s, nil
}

// Save stores s and (re)issues the cookie that points at it
func (m *Manager) Save(c *gin.Context, s *Session) error {
	if err := utils.SetCache(c.Request.Context(), m.rdb, key(s.ID), s, m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	token, err := utils.GenerateSessionToken(s.ID, m.secret, m.ttl)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return nil
}

// Renew moves s to a new identifier so a pre-login id cannot be reused
func (m *Manager) Renew(c *gin.Context, s *Session) error {
	if err := m.drop(c.Request.Context(), s.ID); err != nil {
		return err
	}
	s.ID = uuid.NewString() // Fresh identifier
	return m.Save(c, s)
}

// Destroy deletes s and clears the cookie
func (m *Manager) Destroy(c *gin.Context, s *Session) error {
	if err := m.drop(c.Request.Context(), s.ID); err != nil {
		return err
	}
	*s = Session{ID: uuid.NewString()}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.secure, true)
	return nil
}

func (m *Manager) drop(ctx context.Context, id string) error {
	if err := utils.DeleteCache(ctx, m.rdb, key(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// FromContext returns the session attached by Middleware
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	s := &Session{ID: uuid.NewString()}
	c.Set(contextKey, s)
	return s
}

func key(id string) string {
	return utils.CacheKey(keyPrefix, id)
}
