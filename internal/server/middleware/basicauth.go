// file: internal/server/middleware/basicauth.go
// version: 1.1.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/djordjedjukic/ravendb/internal/config"
)

// BasicAuth returns a Gin middleware that enforces HTTP Basic
// Authentication for administrative routes. Auth is active when an
// auth_username is configured; otherwise the middleware is a no-op.
//
// The configured secret may be a bcrypt hash or a plain value. Plain
// values are compared in constant time.
func BasicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		expectedUser := config.AppConfig.AuthUsername
		if expectedUser == "" {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="memoryd"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(expectedUser)) == 1
		if !userMatch || !secretMatches(pass, config.AppConfig.AuthPasswordHash) {
			c.Header("WWW-Authenticate", `Basic realm="memoryd"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}

// secretMatches compares a presented password against the configured
// secret, which is either a bcrypt hash or a plain value.
func secretMatches(presented, configured string) bool {
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") ||
		strings.HasPrefix(s, "$2b$") ||
		strings.HasPrefix(s, "$2y$")
}
