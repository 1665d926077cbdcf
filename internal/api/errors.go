package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	nesterrors "infranest/internal/errors"
)

type statusRule struct {
	err    error
	status int
}

// First match wins.
//
//nolint:gochecknoglobals // static table
var statusRules = []statusRule{
	{nesterrors.ErrInvalidPath, http.StatusBadRequest},
	{nesterrors.ErrInvalidName, http.StatusBadRequest},
	{nesterrors.ErrInvalidFieldType, http.StatusBadRequest},
	{nesterrors.ErrSpecFile, http.StatusBadRequest},
	{nesterrors.ErrSchema, http.StatusUnprocessableEntity},
	{nesterrors.ErrUnsupportedFramework, http.StatusUnprocessableEntity},
	{nesterrors.ErrDuplicateName, http.StatusConflict},
	{nesterrors.ErrGenerationInProgress, http.StatusConflict},
	{nesterrors.ErrStaleRevision, http.StatusPreconditionFailed},
	{nesterrors.ErrModelNotFound, http.StatusNotFound},
	{nesterrors.ErrUnknownFile, http.StatusNotFound},
	{nesterrors.ErrNoSpecification, http.StatusNotFound},
	{nesterrors.ErrNoArtifact, http.StatusNotFound},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
	{nesterrors.ErrTranslation, http.StatusBadGateway},
	{nesterrors.ErrValidationTransport, http.StatusBadGateway},
	{nesterrors.ErrGeneration, http.StatusBadGateway},
	{nesterrors.ErrCatalog, http.StatusBadGateway},
	{nesterrors.ErrDownload, http.StatusBadGateway},
	{nesterrors.ErrUpstreamUnavailable, http.StatusBadGateway},
}

func statusFor(err error) int {
	for _, r := range statusRules {
		if errors.Is(err, r.err) {
			return r.status
		}
	}
	return http.StatusInternalServerError
}

// abortWithError writes the one user-facing message for err.
func abortWithError(c *gin.Context, err error) {
	msg, action := nesterrors.Actionable(err)
	body := gin.H{"error": msg, "details": err.Error()}
	if action != "" {
		body["action"] = action
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), body)
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
