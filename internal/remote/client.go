// Package remote talks to the upstream translation, validation and code
// generation service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"infranest/internal/artifact"
	"infranest/internal/catalog"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/ids"
	"infranest/internal/validation"
)

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultTimeout bounds every request unless WithTimeout says otherwise.
const DefaultTimeout = 30 * time.Second

// Client calls the upstream service under /api/v1.
type Client struct {
	baseURL string
	http    HTTPClient
	timeout time.Duration
	logger  zerolog.Logger
	ids     *ids.Generator
}

type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
		ids:     ids.NewGenerator(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With().Str("component", "remote").Logger()
	return c
}

type parseRequest struct {
	Prompt string `json:"prompt"`
}

type parseResponse struct {
	DSL      *dsl.Specification `json:"dsl"`
	Warnings []string           `json:"warnings"`
}

// ParsePrompt translates a natural-language description into a
// specification. Empty prompts fail without a request.
func (c *Client) ParsePrompt(ctx context.Context, prompt string) (dsl.Specification, []string, error) {
	if strings.TrimSpace(prompt) == "" {
		return dsl.Specification{}, nil, nesterrors.Wrap(nesterrors.ErrTranslation, "prompt is empty")
	}
	var resp parseResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/parse-prompt", parseRequest{Prompt: prompt}, &resp); err != nil {
		return dsl.Specification{}, nil, nesterrors.Mark(err, nesterrors.ErrTranslation)
	}
	if resp.DSL == nil {
		return dsl.Specification{}, nil, nesterrors.Wrap(nesterrors.ErrTranslation, "response has no dsl")
	}
	return *resp.DSL, nonNil(resp.Warnings), nil
}

type specRequest struct {
	DSL dsl.Specification `json:"dsl"`
}

type validateResponse struct {
	Valid    *bool    `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate implements validation.Validator.
func (c *Client) Validate(ctx context.Context, spec dsl.Specification) (validation.Result, error) {
	var resp validateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/validate-dsl", specRequest{DSL: spec}, &resp); err != nil {
		return validation.Result{}, nesterrors.Mark(err, nesterrors.ErrValidationTransport)
	}
	if resp.Valid == nil {
		return validation.Result{}, nesterrors.Wrap(nesterrors.ErrValidationTransport, "response has no valid flag")
	}
	return validation.Result{
		Valid:    *resp.Valid,
		Errors:   nonNil(resp.Errors),
		Warnings: nonNil(resp.Warnings),
	}, nil
}

var _ validation.Validator = (*Client)(nil)

type frameworksResponse struct {
	Frameworks []catalog.Framework `json:"frameworks"`
}

// ListFrameworks fetches the generation catalog.
func (c *Client) ListFrameworks(ctx context.Context) ([]catalog.Framework, error) {
	var resp frameworksResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/frameworks", nil, &resp); err != nil {
		return nil, nesterrors.Mark(err, nesterrors.ErrCatalog)
	}
	return resp.Frameworks, nil
}

type generateRequest struct {
	DSL       dsl.Specification `json:"dsl"`
	Framework string            `json:"framework"`
}

// GenerateCode asks the generator for a project. The service may answer
// with the artifact as JSON or with a zip archive of the files. A rejected
// framework id maps to ErrUnsupportedFramework, every other failure to
// ErrGeneration.
func (c *Client) GenerateCode(ctx context.Context, spec dsl.Specification, framework string) (*artifact.Artifact, error) {
	a, err := c.generate(ctx, spec, framework)
	if err != nil {
		if se, ok := asStatus(err); ok && se.Code == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(se.Message), "unsupported framework") {
			return nil, nesterrors.Mark(err, nesterrors.ErrUnsupportedFramework)
		}
		return nil, nesterrors.Mark(err, nesterrors.ErrGeneration)
	}
	return a, nil
}

func (c *Client) generate(ctx context.Context, spec dsl.Specification, framework string) (*artifact.Artifact, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/generate-code", generateRequest{DSL: spec, Framework: framework})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/zip")
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // HTTP response body close

	if isZip(resp.Header.Get("Content-Type")) {
		name := attachmentName(resp.Header.Get("Content-Disposition"), framework)
		if name == "" {
			name = spec.Meta().Name
		}
		return readArchive(resp.Body, c.ids.New(), name, framework)
	}
	var a artifact.Artifact
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}

// DownloadArtifact streams the archive of a generated project. The caller
// closes the reader.
func (c *Client) DownloadArtifact(ctx context.Context, id string) (io.ReadCloser, error) {
	ctx, cancel := c.withTimeout(ctx)
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/projects/"+url.PathEscape(id)+"/download", nil)
	if err != nil {
		cancel()
		return nil, nesterrors.Mark(err, nesterrors.ErrDownload)
	}
	resp, err := c.send(req)
	if err != nil {
		cancel()
		return nil, nesterrors.Mark(err, nesterrors.ErrDownload)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health checks that the upstream answers and reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nesterrors.Mark(err, nesterrors.ErrUpstreamUnavailable)
	}
	if resp.Status != "healthy" {
		return nesterrors.Wrapf(nesterrors.ErrUpstreamUnavailable, "status %q", resp.Status)
	}
	return nil
}

// StatusError is a non-2xx answer. Message is the body's "error" field when
// present.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func asStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "infranest")
	req.Header.Set("X-Request-ID", c.ids.New())
	return req, nil
}

// send performs req and returns the response when it is 2xx. Any other
// status is drained into a *StatusError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("upstream request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close() //nolint:errcheck // HTTP response body close
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	se := &StatusError{Code: resp.StatusCode}
	var eb struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		se.Message = eb.Error
	} else {
		se.Message = strings.TrimSpace(string(body))
	}
	return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, se)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // HTTP response body close

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
