package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infranest/internal/api"
	"infranest/internal/artifact"
	"infranest/internal/blob"
	"infranest/internal/catalog"
	"infranest/internal/clock"
	"infranest/internal/doc"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/validation"
	"infranest/internal/workspace"
)

type fakeUpstream struct {
	healthErr error
}

func (f *fakeUpstream) Validate(_ context.Context, spec dsl.Specification) (validation.Result, error) {
	if spec.Meta().Name == "" {
		return validation.Result{Errors: []string{"meta.name is required"}}, nil
	}
	return validation.Result{Valid: true}, nil
}

func (f *fakeUpstream) ParsePrompt(_ context.Context, prompt string) (dsl.Specification, []string, error) {
	s, err := dsl.SetValue(dsl.DefaultSpecification(), []string{"meta", "description"}, prompt)
	return s, nil, err
}

func (f *fakeUpstream) GenerateCode(ctx context.Context, spec dsl.Specification, fw string) (*artifact.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &artifact.Artifact{
		ID:        "p1",
		Name:      spec.Meta().Name,
		Framework: fw,
		Files: doc.Pairs(
			"README.md", "# api",
			"app/models.py", "class User: pass",
		),
	}, nil
}

func (f *fakeUpstream) ListFrameworks(context.Context) ([]catalog.Framework, error) {
	return nil, nesterrors.ErrCatalog
}

func (f *fakeUpstream) DownloadArtifact(_ context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("PK-" + id)), nil
}

func (f *fakeUpstream) Health(context.Context) error { return f.healthErr }

type harness struct {
	router *gin.Engine
	clock  *clock.Fake
	up     *fakeUpstream
}

func newHarness(t *testing.T, specFile string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	up := &fakeUpstream{}
	fc := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sess := workspace.NewSession(workspace.Deps{
		Store:       workspace.NewStore(zerolog.Nop()),
		Coordinator: validation.NewCoordinator(up, validation.WithClock(fc)),
		Translator:  up,
		Generator:   up,
		Lister:      up,
		Downloader:  up,
		Blobs:       &blob.Local{Root: t.TempDir()},
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(sess.Close)
	r := api.NewRouter(api.Deps{
		Session:  sess,
		Upstream: up,
		SpecFile: specFile,
		Logger:   zerolog.Nop(),
	})
	return &harness{router: r, clock: fc, up: up}
}

func (h *harness) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["upstream"])
	assert.NotEmpty(t, w.Header().Get(api.HeaderRequestID))

	h.up.healthErr = nesterrors.ErrUpstreamUnavailable
	w = h.do(t, http.MethodGet, "/health", "", api.HeaderRequestID, "req-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unavailable", decode(t, w)["upstream"])
	assert.Equal(t, "req-1", w.Header().Get(api.HeaderRequestID))
}

func TestFrameworks_FallsBackToLocal(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(t, http.MethodGet, "/api/frameworks", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "local", body["source"])
	assert.Len(t, body["frameworks"], 3)
}

func TestSpecificationEditing(t *testing.T) {
	h := newHarness(t, "")

	w := h.do(t, http.MethodGet, "/api/workspace/specification", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "There is no specification yet.", decode(t, w)["error"])

	raw, err := json.Marshal(dsl.DefaultSpecification())
	require.NoError(t, err)
	w = h.do(t, http.MethodPut, "/api/workspace/specification", string(raw))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"1"`, w.Header().Get("ETag"))

	w = h.do(t, http.MethodPatch, "/api/workspace/specification", `{"path":["meta","name"],"value":"blog"}`)
	require.Equal(t, http.StatusOK, w.Code)
	spec := decode(t, w)["specification"].(map[string]any)
	assert.Equal(t, "blog", spec["meta"].(map[string]any)["name"])

	w = h.do(t, http.MethodPatch, "/api/workspace/specification", `{"path":[],"value":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(t, http.MethodPatch, "/api/workspace/specification", `{"path":["meta","name","x"],"value":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "walks through a string")

	w = h.do(t, http.MethodPost, "/api/workspace/models", `{"name":"Post"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = h.do(t, http.MethodPost, "/api/workspace/models", `{"name":"Post"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = h.do(t, http.MethodPost, "/api/workspace/models", `{"name":"1Post"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/api/workspace/models/Post/fields", `{"name":"author"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = h.do(t, http.MethodPost, "/api/workspace/models/Ghost/fields", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPut, "/api/workspace/models/Post/fields/author/type", `{"type":"foreign_key"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodPut, "/api/workspace/models/Post/fields/author/type", `{"type":"blob"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodDelete, "/api/workspace/models/Post/fields/author", "")
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	w = h.do(t, http.MethodDelete, "/api/workspace/models/Post/fields/author?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodDelete, "/api/workspace/models/Post?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	models := decode(t, w)["specification"].(map[string]any)["models"].(map[string]any)
	assert.NotContains(t, models, "Post")
}

func TestSpecification_IfMatch(t *testing.T) {
	h := newHarness(t, "")
	raw, err := json.Marshal(dsl.DefaultSpecification())
	require.NoError(t, err)

	w := h.do(t, http.MethodPut, "/api/workspace/specification", string(raw), "If-Match", `"0"`)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPut, "/api/workspace/specification", string(raw), "If-Match", `W/"0"`)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = h.do(t, http.MethodPut, "/api/workspace/specification", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "top level must be a mapping")
}

func TestValidationAndLint(t *testing.T) {
	h := newHarness(t, "")

	w := h.do(t, http.MethodPost, "/api/workspace/validation/retry", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(t, http.MethodGet, "/api/workspace/lint", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPatch, "/api/workspace/specification", `{"path":["meta","name"],"value":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, h.do(t, http.MethodGet, "/api/workspace/validation", ""))["status"])

	h.clock.Advance(500 * time.Millisecond)
	body := decode(t, h.do(t, http.MethodGet, "/api/workspace/validation", ""))
	assert.Equal(t, "invalid", body["status"])
	assert.Equal(t, []any{"meta.name is required"}, body["result"].(map[string]any)["errors"])

	w = h.do(t, http.MethodGet, "/api/workspace/lint", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["issues"])
}

func TestGenerate_SurvivesClientDisconnect(t *testing.T) {
	h := newHarness(t, "")
	raw, err := json.Marshal(dsl.DefaultSpecification())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPut, "/api/workspace/specification", string(raw)).Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/workspace/generate", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/workspace/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["projects"], 1, "the generated project is kept")
}

func TestSpecification_ETagMatchesBody(t *testing.T) {
	h := newHarness(t, "")
	raw, err := json.Marshal(dsl.DefaultSpecification())
	require.NoError(t, err)
	h.do(t, http.MethodPut, "/api/workspace/specification", string(raw))

	for i, target := range []string{"/api/workspace/models", "/api/workspace/models/Post/fields"} {
		w := h.do(t, http.MethodPost, target, `{"name":"Post"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, i+2, body["revision"])
		assert.Equal(t, `"`+strconv.Itoa(i+2)+`"`, w.Header().Get("ETag"))
	}

	w := h.do(t, http.MethodDelete, "/api/workspace/models/Post?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decode(t, w)["revision"])
	assert.Equal(t, `"4"`, w.Header().Get("ETag"))
}

func TestTranslateGenerateAndFiles(t *testing.T) {
	h := newHarness(t, "")

	w := h.do(t, http.MethodPost, "/api/workspace/translate", `{"prompt":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(t, http.MethodPost, "/api/workspace/generate", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing to generate from")

	w = h.do(t, http.MethodPost, "/api/workspace/translate", `{"prompt":"a blog"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["applied"])

	w = h.do(t, http.MethodPost, "/api/workspace/generate", `{"framework":"laravel"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(t, http.MethodGet, "/api/workspace/artifact/archive", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPost, "/api/workspace/generate", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "django", decode(t, w)["framework"])

	w = h.do(t, http.MethodGet, "/api/workspace/tree", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["rows"], 2)

	w = h.do(t, http.MethodPost, "/api/workspace/tree/toggle", `{"path":"app"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["expanded"])
	assert.Len(t, decode(t, h.do(t, http.MethodGet, "/api/workspace/tree", ""))["rows"], 3)

	w = h.do(t, http.MethodGet, "/api/workspace/active-file", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["active_file"])

	w = h.do(t, http.MethodPut, "/api/workspace/active-file", `{"path":"nope.py"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(t, http.MethodPut, "/api/workspace/active-file", `{"path":"app/models.py"}`)
	require.Equal(t, http.StatusOK, w.Code)
	f := decode(t, w)["active_file"].(map[string]any)
	assert.Equal(t, "python", f["language"])
	assert.Equal(t, "class User: pass", f["content"])

	w = h.do(t, http.MethodGet, "/api/workspace/history", "")
	assert.Len(t, decode(t, w)["projects"], 1)

	w = h.do(t, http.MethodGet, "/api/workspace/artifact/archive", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "not downloaded yet")
	w = h.do(t, http.MethodPost, "/api/workspace/artifact/download", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "projects/p1/my-api-django.zip", decode(t, w)["key"])

	w = h.do(t, http.MethodGet, "/api/workspace/artifact/archive", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PK-p1", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="my-api-django.zip"`)
}

func TestDDL(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(t, http.MethodGet, "/api/workspace/ddl", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	raw, err := json.Marshal(dsl.DefaultSpecification())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPut, "/api/workspace/specification", string(raw)).Code)

	w = h.do(t, http.MethodGet, "/api/workspace/ddl?format=sql", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `create table if not exists "public"."users"`)

	w = h.do(t, http.MethodGet, "/api/workspace/ddl", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "ddl")

	w = h.do(t, http.MethodPut, "/api/workspace/models/User/fields/email/type", `{"type":"foreign_key"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodGet, "/api/workspace/ddl", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "relation without a target")
}

func TestAdminReload(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/api/admin/reload", "").Code)

	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte("meta:\n  name: shop\n  framework: flask\nmodels: {}\n"), 0o600))
	h = newHarness(t, path)

	w := h.do(t, http.MethodPost, "/api/admin/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["revision"])
	issues := body["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "framework_unknown", issues[0].(map[string]any)["code"])

	require.NoError(t, os.WriteFile(path, []byte("meta: [\n"), 0o600))
	w = h.do(t, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(t, http.MethodGet, "/api/workspace", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	state := body["state"].(map[string]any)
	assert.Nil(t, state["specification"])
	assert.Equal(t, []any{}, state["project_history"])
	assert.Equal(t, "idle", body["validation"].(map[string]any)["status"])
}
