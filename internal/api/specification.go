package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"infranest/internal/doc"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/workspace"
)

func writeSpec(c *gin.Context, status int, spec dsl.Specification, rev uint64) {
	c.Header("ETag", strconv.Quote(strconv.FormatUint(rev, 10)))
	c.JSON(status, gin.H{"revision": rev, "specification": spec})
}

// readExpectedRevision reads If-Match, accepting 3, "3" and W/"3".
func readExpectedRevision(c *gin.Context) (uint64, bool) {
	ifMatch := strings.TrimSpace(c.GetHeader("If-Match"))
	if ifMatch == "" {
		return 0, false
	}
	ifMatch = strings.TrimPrefix(ifMatch, "W/")
	ifMatch = strings.Trim(ifMatch, `"'`)
	v, err := strconv.ParseUint(ifMatch, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// GET /api/workspace
func SnapshotHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"state":      sess.Store().Snapshot(),
			"revision":   sess.Store().SpecRevision(),
			"validation": validationView(sess),
		})
	}
}

// GET /api/workspace/specification
func GetSpecificationHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		spec, rev, ok := sess.Store().Current()
		if !ok {
			abortWithError(c, nesterrors.ErrNoSpecification)
			return
		}
		writeSpec(c, http.StatusOK, spec, rev)
	}
}

// PUT /api/workspace/specification
// Replaces the whole document. With If-Match the write only happens if
// the revision still matches.
func PutSpecificationHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		spec, err := dsl.Parse(raw, dsl.FormatJSON)
		if err != nil {
			abortWithError(c, err)
			return
		}
		var rev uint64
		if expected, ok := readExpectedRevision(c); ok {
			if rev, err = sess.UseSpecificationIf(expected, spec); err != nil {
				abortWithError(c, err)
				return
			}
		} else {
			rev = sess.UseSpecification(spec)
		}
		writeSpec(c, http.StatusOK, spec, rev)
	}
}

type patchReq struct {
	Path  []string        `json:"path" binding:"required"`
	Value json.RawMessage `json:"value"`
}

// PATCH /api/workspace/specification
// {"path": ["meta", "name"], "value": "blog"}
func PatchSpecificationHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req patchReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		if len(req.Value) == 0 {
			badRequest(c, "value is required", nil)
			return
		}
		v, err := doc.DecodeJSON(req.Value)
		if err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		spec, rev, err := sess.SetValue(req.Path, v)
		if err != nil {
			abortWithError(c, err)
			return
		}
		writeSpec(c, http.StatusOK, spec, rev)
	}
}

type nameReq struct {
	Name string `json:"name" binding:"required"`
}

// POST /api/workspace/models
func AddModelHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req nameReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		spec, rev, err := sess.AddModel(req.Name)
		if err != nil {
			abortWithError(c, err)
			return
		}
		writeSpec(c, http.StatusCreated, spec, rev)
	}
}

// confirmed reports whether a destructive request carries confirm=true.
func confirmed(c *gin.Context) bool {
	ok, _ := strconv.ParseBool(c.Query("confirm"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusPreconditionRequired, gin.H{
			"error":  "This removes data from the specification.",
			"action": "Repeat the request with ?confirm=true.",
		})
	}
	return ok
}

// DELETE /api/workspace/models/:model?confirm=true
func RemoveModelHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !confirmed(c) {
			return
		}
		spec, rev := sess.RemoveModel(c.Param("model"))
		writeSpec(c, http.StatusOK, spec, rev)
	}
}

// POST /api/workspace/models/:model/fields
func AddFieldHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req nameReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		spec, rev, err := sess.AddField(c.Param("model"), req.Name)
		if err != nil {
			abortWithError(c, err)
			return
		}
		writeSpec(c, http.StatusCreated, spec, rev)
	}
}

// DELETE /api/workspace/models/:model/fields/:field?confirm=true
func RemoveFieldHandler(sess *workspace.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !confirmed(c) {
			return
		}
		spec, rev := sess.RemoveField(c.Param("model"), c.Param("field"))
		writeSpec(c, http.StatusOK, spec, rev)
	}
}

// PUT /api/workspace/models/:model/fields/:field/type
func SetFieldTypeHandler(sess *workspace.Session) gin.HandlerFunc {
	type req struct {
		Type string `json:"type" binding:"required"`
	}
	return func(c *gin.Context) {
		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid JSON", err)
			return
		}
		spec, rev, err := sess.SetFieldType(c.Param("model"), c.Param("field"), dsl.FieldType(body.Type))
		if err != nil {
			abortWithError(c, err)
			return
		}
		writeSpec(c, http.StatusOK, spec, rev)
	}
}

// POST /api/admin/reload
// Re-reads the specification file the server was started with.
func AdminReloadHandler(sess *workspace.Session, specFile string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if specFile == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "No specification file configured"})
			return
		}
		spec, err := dsl.LoadFile(specFile)
		if err != nil {
			abortWithError(c, err)
			return
		}
		rev := sess.UseSpecification(spec)
		issues := dsl.Lint(spec, dsl.WithFrameworks(sess.Frameworks().IDs()))
		if issues == nil {
			issues = []dsl.Issue{}
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"path":     specFile,
			"models":   len(spec.ModelNames()),
			"issues":   issues,
			"revision": rev,
		})
	}
}
