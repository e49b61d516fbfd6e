package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionIDHeader = "X-Session-ID"
	sessionIDKey    = "session_id"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// GuestSession resolves the guest cart session. A missing or malformed
// X-Session-ID header gets a fresh id, echoed back so the client can keep it.
func GuestSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if !sessionIDPattern.MatchString(sessionID) {
			if sessionID != "" {
				GetLoggerFromContext(c).Debug("Replacing malformed session id", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
			}
			sessionID = uuid.NewString()
		}
		c.Set(sessionIDKey, sessionID)
		c.Header(SessionIDHeader, sessionID)
		c.Next()
	}
}

// GetSessionID returns the session id set by GuestSession, or the raw header
// on routes that do not run it.
func GetSessionID(c *gin.Context) string {
	if id := c.GetString(sessionIDKey); id != "" {
		return id
	}
	id := c.GetHeader(SessionIDHeader)
	if sessionIDPattern.MatchString(id) {
		return id
	}
	return ""
}
