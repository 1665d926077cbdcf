package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"infranest/internal/workspace"
)

// POST /api/workspace/translate
func TranslateHandler(sess *workspace.Session) gin.HandlerFunc {
	type req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	return func(c *gin.Context) {
		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Please describe your backend", err)
			return
		}
		res, err := sess.Translate(c.Request.Context(), body.Prompt)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if res.Warnings == nil {
			res.Warnings = []string{}
		}
		c.JSON(http.StatusOK, res)
	}
}

// POST /api/workspace/generate
// {"framework": "django"}; an empty body uses meta.framework.
func GenerateHandler(sess *workspace.Session) gin.HandlerFunc {
	type req struct {
		Framework string `json:"framework"`
	}
	return func(c *gin.Context) {
		var body req
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "Invalid JSON", err)
			return
		}
		// A client that goes away does not abort the generation; the upstream
		// client's own timeout still bounds it.
		a, err := sess.Generate(context.WithoutCancel(c.Request.Context()), body.Framework)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

// GET /api/workspace/history
func HistoryHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"projects": sess.Store().Snapshot().History})
	}
}
