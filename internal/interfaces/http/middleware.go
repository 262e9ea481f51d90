package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claims-workflow/internal/application/service"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

const sessionKey = "session"

// loggingMiddleware logs one line per request
func loggingMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// authMiddleware verifies the bearer token and resolves the caller against
// the user directory. The resulting session is stored on the gin context and
// on the request context.
func authMiddleware(tokens TokenVerifier, identity service.IdentityService, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, logger, failure.Denied(failure.ReasonUnauthenticated, "missing bearer token"))
			return
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			logger.Info("Rejected bearer token", "error", err.Error(), "path", c.Request.URL.Path)
			abortWithError(c, logger, failure.Denied(failure.ReasonUnauthenticated, "invalid bearer token"))
			return
		}

		sess, err := identity.Resolve(c.Request.Context(), claims.UserID, claims.Role)
		if err != nil {
			abortWithError(c, logger, err)
			return
		}

		c.Set(sessionKey, sess)
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// currentSession returns the session set by authMiddleware
func currentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(session.Session); ok {
			return sess
		}
	}
	sess, _ := session.FromContext(c.Request.Context())
	return sess
}
