package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	nesterrors "infranest/internal/errors"
	"infranest/internal/workspace"
)

// GET /health
func HealthHandler(upstream HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := gin.H{"status": "healthy"}
		if upstream != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := upstream.Health(ctx); err != nil {
				out["upstream"] = "unavailable"
				out["details"] = nesterrors.UserMessage(err)
			} else {
				out["upstream"] = "healthy"
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/frameworks
// The upstream catalog when reachable, the local one otherwise.
func FrameworksHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := "upstream"
		if err := sess.RefreshFrameworks(c.Request.Context()); err != nil {
			source = "local"
		}
		c.JSON(http.StatusOK, gin.H{
			"frameworks": sess.Frameworks().List(),
			"source":     source,
		})
	}
}
