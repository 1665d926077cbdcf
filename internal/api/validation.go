package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/pg"
	"infranest/internal/validation"
	"infranest/internal/workspace"
)

type validationResponse struct {
	validation.State
	// Message is the notification for a transport failure.
	Message string `json:"message,omitempty"`
}

func validationView(sess *workspace.Session) validationResponse {
	st := sess.Validation()
	return validationResponse{State: st, Message: nesterrors.UserMessage(st.Err)}
}

// GET /api/workspace/validation
func ValidationHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, validationView(sess))
	}
}

// POST /api/workspace/validation/retry
func RetryValidationHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sess.RetryValidation() {
			abortWithError(c, nesterrors.ErrNoSpecification)
			return
		}
		c.JSON(http.StatusAccepted, validationView(sess))
	}
}

// GET /api/workspace/lint
// Advisory only; lint issues never change the validation status.
func LintHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		issues, err := sess.Lint()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if issues == nil {
			issues = []dsl.Issue{}
		}
		c.JSON(http.StatusOK, gin.H{"issues": issues})
	}
}

// GET /api/workspace/ddl[?format=sql]
func DDLHandler(sess *workspace.Session, schema string) gin.HandlerFunc {
	return func(c *gin.Context) {
		spec, ok := sess.Store().Specification()
		if !ok {
			abortWithError(c, nesterrors.ErrNoSpecification)
			return
		}
		ddl, err := pg.GenerateDDL(spec, schema)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if c.Query("format") == "sql" {
			c.String(http.StatusOK, ddl.Script())
			return
		}
		c.JSON(http.StatusOK, gin.H{"ddl": ddl, "script": ddl.Script()})
	}
}
