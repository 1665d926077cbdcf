package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
)

const blogYAML = `meta:
  name: blog
  framework: django
models:
  User:
    fields:
      id: {type: uuid, primary_key: true, auto_generated: true}
      email: {type: email, unique: true, required: true}
  Post:
    fields:
      id: {type: integer, primary_key: true, auto_generated: true}
      author: {type: foreign_key, model: User, required: true}
`

// upstream is a scripted generation service.
type upstream struct {
	mu         sync.Mutex
	valid      bool
	frameworks int
	hits       map[string]int
}

func (u *upstream) set(valid bool, frameworks int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.valid, u.frameworks = valid, frameworks
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	valid, frameworks := u.valid, u.frameworks
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/v1/validate-dsl":
		if valid {
			io.WriteString(w, `{"valid":true,"errors":[],"warnings":["no endpoints"]}`) //nolint:errcheck
			return
		}
		io.WriteString(w, `{"valid":false,"errors":["Post.author: bad target"],"warnings":[]}`) //nolint:errcheck
	case "/api/v1/parse-prompt":
		io.WriteString(w, `{"dsl":{"meta":{"name":"shop"},"models":{"Product":{"fields":{"id":{"type":"uuid","primary_key":true}}}}},"warnings":["guessed auth"]}`) //nolint:errcheck
	case "/api/v1/frameworks":
		if frameworks != http.StatusOK {
			w.WriteHeader(frameworks)
			io.WriteString(w, `{"error":"down"}`) //nolint:errcheck
			return
		}
		io.WriteString(w, `{"frameworks":[{"id":"fastapi","name":"FastAPI","language":"python","features":["async"]}]}`) //nolint:errcheck
	case "/api/v1/generate-code":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fw, _ := body["framework"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        "p1",
			"name":      "blog-" + fw,
			"framework": fw,
			"files": map[string]string{
				"README.md":     "# blog",
				"app/models.py": "class User: pass\n",
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func newUpstream(t *testing.T) (*upstream, string) {
	t.Helper()
	u := &upstream{valid: true, frameworks: http.StatusOK, hits: map[string]int{}}
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)
	return u, srv.URL
}

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "1.2.3"})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (commit: none, built: unknown)")
}

func TestFormatVersion_Defaults(t *testing.T) {
	assert.Equal(t, "dev (commit: none, built: unknown)", formatVersion(BuildInfo{}))
}

func TestValidateCmd(t *testing.T) {
	u, url := newUpstream(t)
	path := writeSpec(t, blogYAML)

	out, _, err := run(t, "--upstream", url, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid\n")
	assert.Contains(t, out, "warning: no endpoints")

	u.set(false, http.StatusOK)
	out, _, err = run(t, "--upstream", url, "validate", path)
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "invalid\n")
	assert.Contains(t, out, "error: Post.author: bad target")
	assert.Equal(t, 2, u.count("/api/v1/validate-dsl"))
}

func TestValidateCmd_BadFile(t *testing.T) {
	_, url := newUpstream(t)
	path := writeSpec(t, "models: [unclosed")

	_, _, err := run(t, "--upstream", url, "validate", path)
	require.ErrorIs(t, err, nesterrors.ErrSpecFile)
}

func TestLintCmd(t *testing.T) {
	path := writeSpec(t, `meta: {framework: django}
models:
  Post:
    fields:
      author: {type: foreign_key, model: Ghost}
`)

	out, _, err := run(t, "lint", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Post.author\trelation_target_unknown")
	assert.Contains(t, out, "Post\tprimary_key_missing")

	_, _, err = run(t, "lint", "--strict", path)
	require.Error(t, err)

	clean := writeSpec(t, blogYAML)
	out, _, err = run(t, "lint", "--strict", clean)
	require.NoError(t, err)
	assert.Equal(t, "no issues\n", out)
}

func TestDescribeCmd(t *testing.T) {
	_, url := newUpstream(t)

	out, errOut, err := run(t, "--upstream", url, "describe", "an", "online", "shop")
	require.NoError(t, err)
	assert.Contains(t, out, "Product:")
	assert.Contains(t, errOut, "warning: guessed auth")

	path := filepath.Join(t.TempDir(), "shop.yaml")
	out, _, err = run(t, "--upstream", url, "describe", "-o", path, "an online shop")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 models)")

	spec, err := dsl.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Product"}, spec.ModelNames())
}

func TestPreviewCmd(t *testing.T) {
	_, url := newUpstream(t)
	path := writeSpec(t, blogYAML)

	out, _, err := run(t, "--upstream", url, "preview", path)
	require.NoError(t, err)
	assert.Contains(t, out, "blog-django (django, 2 files)")
	assert.Contains(t, out, "  app/\n    models.py\n")

	out, _, err = run(t, "--upstream", url, "preview", path, "-f", "rails", "--show", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# blog", out)

	_, _, err = run(t, "--upstream", url, "preview", path, "--show", "missing.txt")
	require.ErrorIs(t, err, nesterrors.ErrUnknownFile)
}

func TestFrameworksCmd(t *testing.T) {
	u, url := newUpstream(t)

	out, errOut, err := run(t, "--upstream", url, "frameworks")
	require.NoError(t, err)
	assert.Contains(t, out, "fastapi")
	assert.Contains(t, errOut, "source: upstream")

	u.set(true, http.StatusServiceUnavailable)
	out, errOut, err = run(t, "--upstream", url, "frameworks")
	require.NoError(t, err)
	assert.Contains(t, out, "django")
	assert.NotContains(t, out, "fastapi")
	assert.Contains(t, errOut, "source: local")
}

func TestSchemaDDLCmd(t *testing.T) {
	path := writeSpec(t, blogYAML)

	out, _, err := run(t, "schema", "ddl", "--schema", "blog", path)
	require.NoError(t, err)
	assert.Contains(t, out, "-- schemas_and_tables\n")
	assert.Contains(t, out, `create schema if not exists "blog";`)
	assert.Contains(t, out, "-- foreign_keys\n")
}

func TestSchemaApplyCmd_NeedsURL(t *testing.T) {
	path := writeSpec(t, blogYAML)

	_, _, err := run(t, "schema", "apply", path)
	require.ErrorIs(t, err, nesterrors.ErrConfigInvalid)
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "lint", "x.yaml")
	require.ErrorIs(t, err, nesterrors.ErrConfigInvalid)
}
