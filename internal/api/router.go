// Package api serves the workspace over HTTP for the presentation layer.
package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"infranest/internal/workspace"
)

// HealthChecker reports whether the upstream service is usable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps wires the router. Session is required.
type Deps struct {
	Session *workspace.Session
	// Upstream is optional; /health reports its state when set.
	Upstream HealthChecker
	// SpecFile enables POST /api/admin/reload.
	SpecFile string
	// Schema is the PostgreSQL schema used by the DDL preview.
	Schema string
	Logger zerolog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(d.Logger), Recovery(d.Logger))

	sess := d.Session
	r.GET("/health", HealthHandler(d.Upstream))
	r.GET("/api/frameworks", FrameworksHandler(sess))
	r.POST("/api/admin/reload", AdminReloadHandler(sess, d.SpecFile))

	ws := r.Group("/api/workspace")
	{
		ws.GET("", SnapshotHandler(sess))

		ws.GET("/specification", GetSpecificationHandler(sess))
		ws.PUT("/specification", PutSpecificationHandler(sess))
		ws.PATCH("/specification", PatchSpecificationHandler(sess))
		ws.POST("/models", AddModelHandler(sess))
		ws.DELETE("/models/:model", RemoveModelHandler(sess))
		ws.POST("/models/:model/fields", AddFieldHandler(sess))
		ws.DELETE("/models/:model/fields/:field", RemoveFieldHandler(sess))
		ws.PUT("/models/:model/fields/:field/type", SetFieldTypeHandler(sess))

		ws.GET("/validation", ValidationHandler(sess))
		ws.POST("/validation/retry", RetryValidationHandler(sess))
		ws.GET("/lint", LintHandler(sess))
		ws.GET("/ddl", DDLHandler(sess, d.Schema))

		ws.POST("/translate", TranslateHandler(sess))
		ws.POST("/generate", GenerateHandler(sess))
		ws.GET("/history", HistoryHandler(sess))

		ws.GET("/tree", TreeHandler(sess))
		ws.POST("/tree/toggle", ToggleFolderHandler(sess))
		ws.GET("/active-file", ActiveFileHandler(sess))
		ws.PUT("/active-file", SelectFileHandler(sess))

		ws.POST("/artifact/download", DownloadArtifactHandler(sess))
		ws.GET("/artifact/archive", ArchiveHandler(sess))
	}
	return r
}
