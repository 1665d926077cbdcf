package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	nesterrors "infranest/internal/errors"
	"infranest/internal/workspace"
)

type pathReq struct {
	Path string `json:"path" binding:"required"`
}

// GET /api/workspace/tree
// Visible rows under the current expand state, plus the full tree.
func TreeHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		root, err := sess.Tree()
		if err != nil {
			abortWithError(c, err)
			return
		}
		rows, err := sess.Rows()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tree": root, "rows": rows})
	}
}

// POST /api/workspace/tree/toggle
func ToggleFolderHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pathReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": req.Path, "expanded": sess.ToggleFolder(req.Path)})
	}
}

// GET /api/workspace/active-file
func ActiveFileHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok, err := sess.ActiveFile()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"active_file": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"active_file": f})
	}
}

// PUT /api/workspace/active-file
func SelectFileHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pathReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		if err := sess.SelectFile(req.Path); err != nil {
			abortWithError(c, err)
			return
		}
		f, _, err := sess.ActiveFile()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"active_file": f})
	}
}

// POST /api/workspace/artifact/download
// Fetches the archive of the current artifact into the blob store.
func DownloadArtifactHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj, err := sess.Download(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, obj)
	}
}

// GET /api/workspace/artifact/archive
func ArchiveHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, name, err := sess.Archive()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			abortWithError(c, nesterrors.Wrap(nesterrors.ErrNoArtifact, "archive not downloaded yet"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Header("Content-Type", "application/zip")
		c.File(p)
	}
}
