package workspace

import (
	"context"
	"io"
	"path"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"infranest/internal/artifact"
	"infranest/internal/blob"
	"infranest/internal/catalog"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/filetree"
	"infranest/internal/validation"
)

// Translator turns a description into a specification.
type Translator interface {
	ParsePrompt(ctx context.Context, prompt string) (dsl.Specification, []string, error)
}

// Generator produces a project for a framework.
type Generator interface {
	GenerateCode(ctx context.Context, spec dsl.Specification, framework string) (*artifact.Artifact, error)
}

// FrameworkLister fetches the upstream framework catalog.
type FrameworkLister interface {
	ListFrameworks(ctx context.Context) ([]catalog.Framework, error)
}

// Downloader fetches the archive of a generated project.
type Downloader interface {
	DownloadArtifact(ctx context.Context, id string) (io.ReadCloser, error)
}

// Deps wires a Session. Store and Coordinator are required; a nil
// collaborator disables the operations that need it.
type Deps struct {
	Store       *Store
	Coordinator *validation.Coordinator
	Translator  Translator
	Generator   Generator
	Lister      FrameworkLister
	Downloader  Downloader
	Frameworks  *catalog.Registry
	Blobs       blob.Store
	Logger      zerolog.Logger
}

// Session drives the editing flow: every specification change goes to the
// store and then to the validation coordinator.
type Session struct {
	// writes holds specification writes and their Observe together, so the
	// coordinator sees changes in revision order.
	writes sync.Mutex

	store        *Store
	coord        *validation.Coordinator
	translator   Translator
	generator    Generator
	lister       FrameworkLister
	downloader   Downloader
	frameworks   *catalog.Registry
	blobs        blob.Store
	expand       *filetree.ExpandState
	translations atomic.Uint64
	logger       zerolog.Logger
}

func NewSession(d Deps) *Session {
	if d.Frameworks == nil {
		d.Frameworks = catalog.NewRegistry(catalog.Builtin())
	}
	return &Session{
		store:      d.Store,
		coord:      d.Coordinator,
		translator: d.Translator,
		generator:  d.Generator,
		lister:     d.Lister,
		downloader: d.Downloader,
		frameworks: d.Frameworks,
		blobs:      d.Blobs,
		expand:     filetree.NewExpandState(),
		logger:     d.Logger.With().Str("component", "session").Logger(),
	}
}

func (s *Session) Store() *Store { return s.store }

func (s *Session) Frameworks() *catalog.Registry { return s.frameworks }

// Close stops validation.
func (s *Session) Close() {
	s.coord.Close()
}

// UseSpecification replaces the specification wholesale and returns its
// revision.
func (s *Session) UseSpecification(spec dsl.Specification) uint64 {
	s.writes.Lock()
	defer s.writes.Unlock()
	rev := s.store.SetSpecification(spec)
	s.coord.Observe(spec)
	return rev
}

// UseSpecificationIf replaces the specification if it is still at the
// expected revision.
func (s *Session) UseSpecificationIf(expected uint64, spec dsl.Specification) (uint64, error) {
	s.writes.Lock()
	defer s.writes.Unlock()
	rev, err := s.store.SetSpecificationIf(expected, spec)
	if err != nil {
		return rev, err
	}
	s.coord.Observe(spec)
	return rev, nil
}

// edit backs the named edit operations. They return the resulting
// specification and the revision it was stored under.
func (s *Session) edit(fn func(dsl.Specification) (dsl.Specification, error)) (dsl.Specification, uint64, error) {
	s.writes.Lock()
	defer s.writes.Unlock()
	next, rev, err := s.store.Edit(fn)
	if err != nil {
		return next, rev, err
	}
	s.coord.Observe(next)
	return next, rev, nil
}

func (s *Session) SetValue(p []string, v any) (dsl.Specification, uint64, error) {
	return s.edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.SetValue(cur, p, v)
	})
}

func (s *Session) AddModel(name string) (dsl.Specification, uint64, error) {
	return s.edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.AddModel(cur, name)
	})
}

func (s *Session) AddField(model, field string) (dsl.Specification, uint64, error) {
	return s.edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.AddField(cur, model, field)
	})
}

func (s *Session) SetFieldType(model, field string, t dsl.FieldType) (dsl.Specification, uint64, error) {
	return s.edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.SetFieldType(cur, model, field, t)
	})
}

func (s *Session) RemoveModel(name string) (dsl.Specification, uint64) {
	next, rev, _ := s.edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.RemoveModel(cur, name), nil
	})
	return next, rev
}

func (s *Session) RemoveField(model, field string) (dsl.Specification, uint64) {
	next, rev, _ := s.edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.RemoveField(cur, model, field), nil
	})
	return next, rev
}

// Validation returns the coordinator state.
func (s *Session) Validation() validation.State {
	return s.coord.State()
}

// RetryValidation re-validates immediately.
func (s *Session) RetryValidation() bool {
	return s.coord.Retry()
}

// Lint runs the local advisory checks on the current specification.
func (s *Session) Lint() ([]dsl.Issue, error) {
	spec, ok := s.store.Specification()
	if !ok {
		return nil, nesterrors.ErrNoSpecification
	}
	return dsl.Lint(spec, dsl.WithFrameworks(s.frameworks.IDs())), nil
}

// Translation is the outcome of Translate. Applied is false when a newer
// translation was started before this one returned.
type Translation struct {
	Specification dsl.Specification `json:"specification"`
	Warnings      []string          `json:"warnings"`
	Applied       bool              `json:"applied"`
}

// Translate asks the translator for a specification and makes it current.
func (s *Session) Translate(ctx context.Context, prompt string) (Translation, error) {
	if s.translator == nil {
		return Translation{}, nesterrors.Wrap(nesterrors.ErrTranslation, "no translator configured")
	}
	n := s.translations.Add(1)
	spec, warnings, err := s.translator.ParsePrompt(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Msg("translation failed")
		return Translation{}, err
	}
	out := Translation{Specification: spec, Warnings: warnings}
	if s.translations.Load() != n {
		s.logger.Debug().Uint64("translation", n).Msg("stale translation discarded")
		return out, nil
	}
	s.UseSpecification(spec)
	out.Applied = true
	return out, nil
}

// RefreshFrameworks replaces the local registry with the upstream catalog.
// On failure the registry keeps its previous contents.
func (s *Session) RefreshFrameworks(ctx context.Context) error {
	if s.lister == nil {
		return nil
	}
	fws, err := s.lister.ListFrameworks(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("framework catalog refresh failed, using local catalog")
		return err
	}
	if len(fws) > 0 {
		s.frameworks.Replace(fws)
	}
	return nil
}

// Generate produces a project for framework, or for meta.framework when
// framework is empty. A second call while one is running fails with
// ErrGenerationInProgress. A failure keeps the previous artifact.
func (s *Session) Generate(ctx context.Context, framework string) (*artifact.Artifact, error) {
	if s.generator == nil {
		return nil, nesterrors.Wrap(nesterrors.ErrGeneration, "no generator configured")
	}
	spec, ok := s.store.Specification()
	if !ok {
		return nil, nesterrors.ErrNoSpecification
	}
	if framework == "" {
		framework = spec.Meta().Framework
	}
	if !s.frameworks.Has(framework) {
		return nil, nesterrors.Wrapf(nesterrors.ErrUnsupportedFramework, "%q", framework)
	}
	token, err := s.store.BeginGeneration()
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("framework", framework).Str("project", spec.Meta().Name).Msg("generation started")

	a, err := s.generator.GenerateCode(ctx, spec, framework)
	s.store.FinishGeneration(token, a, err)
	if err != nil {
		s.logger.Error().Err(err).Str("framework", framework).Msg(nesterrors.UserMessage(err))
		return nil, err
	}
	s.logger.Info().Str("framework", framework).Str("artifact", a.ID).Int("files", a.Files.Len()).Msg("generation finished")
	return a, nil
}

// SelectFile marks path as the active file.
func (s *Session) SelectFile(p string) error {
	return s.store.SetActiveFile(p)
}

// ActiveFile is the selected file with its content.
type ActiveFile struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// ActiveFile returns the selected file. ok is false when nothing is selected.
func (s *Session) ActiveFile() (f ActiveFile, ok bool, err error) {
	st := s.store.Snapshot()
	if st.Artifact == nil {
		return ActiveFile{}, false, nesterrors.ErrNoArtifact
	}
	if st.ActiveFilePath == "" {
		return ActiveFile{}, false, nil
	}
	content, _ := st.Artifact.Content(st.ActiveFilePath)
	return ActiveFile{
		Path:     st.ActiveFilePath,
		Language: filetree.Language(st.ActiveFilePath),
		Content:  content,
	}, true, nil
}

// Tree projects the current artifact.
func (s *Session) Tree() (*filetree.Node, error) {
	st := s.store.Snapshot()
	if st.Artifact == nil {
		return nil, nesterrors.ErrNoArtifact
	}
	return filetree.Build(st.Artifact.Paths()), nil
}

// Rows is the visible part of the tree under the session's expand state.
func (s *Session) Rows() ([]filetree.Row, error) {
	root, err := s.Tree()
	if err != nil {
		return nil, err
	}
	return filetree.Rows(root, s.expand), nil
}

// ToggleFolder flips a folder and returns its new state. Expand state is
// keyed by path and survives regeneration.
func (s *Session) ToggleFolder(p string) bool {
	return s.expand.Toggle(p)
}

// Download stores the archive of the current artifact in the blob store
// under projects/<id>/<name>-<framework>.zip.
func (s *Session) Download(ctx context.Context) (blob.Object, error) {
	if s.downloader == nil || s.blobs == nil {
		return blob.Object{}, nesterrors.Wrap(nesterrors.ErrDownload, "downloads are not configured")
	}
	st := s.store.Snapshot()
	if st.Artifact == nil {
		return blob.Object{}, nesterrors.ErrNoArtifact
	}
	a := st.Artifact
	rc, err := s.downloader.DownloadArtifact(ctx, a.ID)
	if err != nil {
		return blob.Object{}, err
	}
	defer rc.Close() //nolint:errcheck // read side

	obj, err := s.blobs.Put(path.Join("projects", a.ID, a.ArchiveName()), rc)
	if err != nil {
		return blob.Object{}, nesterrors.Mark(err, nesterrors.ErrDownload)
	}
	s.logger.Info().Str("key", obj.Key).Int64("size", obj.Size).Msg("archive stored")
	return obj, nil
}

// Archive returns the stored archive of the current artifact.
func (s *Session) Archive() (local string, name string, err error) {
	if s.blobs == nil {
		return "", "", nesterrors.Wrap(nesterrors.ErrDownload, "downloads are not configured")
	}
	st := s.store.Snapshot()
	if st.Artifact == nil {
		return "", "", nesterrors.ErrNoArtifact
	}
	a := st.Artifact
	local, err = s.blobs.Path(path.Join("projects", a.ID, a.ArchiveName()))
	if err != nil {
		return "", "", nesterrors.Mark(err, nesterrors.ErrDownload)
	}
	return local, a.ArchiveName(), nil
}
