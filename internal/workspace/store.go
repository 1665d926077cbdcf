// Package workspace holds the editing session: the current specification,
// the generated artifact, the selected file and the generation flag.
package workspace

import (
	"sync"

	"github.com/rs/zerolog"

	"infranest/internal/artifact"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
)

// State is a read-only snapshot. ActiveFilePath is "" when nothing is
// selected; it is cleared whenever Artifact changes.
type State struct {
	Specification  *dsl.Specification   `json:"specification"`
	Artifact       *artifact.Artifact   `json:"artifact"`
	ActiveFilePath string               `json:"active_file_path,omitempty"`
	IsGenerating   bool                 `json:"is_generating"`
	History        []*artifact.Artifact `json:"project_history"`
}

// Store is the single owner of workspace state. Every mutation is one
// assignment under the lock; no method holds the lock across I/O.
type Store struct {
	mu     sync.RWMutex
	state  State
	specs  uint64
	gens   uint64
	logger zerolog.Logger
}

// NewStore returns an empty store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		state:  State{History: []*artifact.Artifact{}},
		logger: logger.With().Str("component", "workspace").Logger(),
	}
}

// Snapshot returns a copy of the state. The specification and artifacts
// are immutable values and are shared.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.History = make([]*artifact.Artifact, len(s.state.History))
	copy(st.History, s.state.History)
	return st
}

// Specification returns the current specification.
func (s *Store) Specification() (dsl.Specification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Specification == nil {
		return dsl.Specification{}, false
	}
	return *s.state.Specification, true
}

// SetSpecification replaces the specification and leaves everything else
// alone. It returns the specification revision.
func (s *Store) SetSpecification(spec dsl.Specification) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Specification = &spec
	s.specs++
	return s.specs
}

// SetSpecificationIf replaces the specification only when the revision is
// still expected, so a client that read revision N cannot overwrite edits
// made after it.
func (s *Store) SetSpecificationIf(expected uint64, spec dsl.Specification) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.specs != expected {
		return s.specs, nesterrors.Wrapf(nesterrors.ErrStaleRevision, "have %d, got %d", s.specs, expected)
	}
	s.state.Specification = &spec
	s.specs++
	return s.specs, nil
}

// Current returns the specification together with its revision.
func (s *Store) Current() (dsl.Specification, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Specification == nil {
		return dsl.Specification{}, s.specs, false
	}
	return *s.state.Specification, s.specs, true
}

// SpecRevision counts SetSpecification and Edit calls.
func (s *Store) SpecRevision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.specs
}

// Edit applies fn to the current specification (an empty one if none is
// held) and stores the result under a new revision. Nothing is stored when
// fn fails.
func (s *Store) Edit(fn func(dsl.Specification) (dsl.Specification, error)) (dsl.Specification, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur dsl.Specification
	if s.state.Specification != nil {
		cur = *s.state.Specification
	}
	next, err := fn(cur)
	if err != nil {
		return cur, s.specs, err
	}
	s.state.Specification = &next
	s.specs++
	return next, s.specs, nil
}

// SetArtifact replaces the artifact and clears the file selection.
func (s *Store) SetArtifact(a *artifact.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Artifact = a
	s.state.ActiveFilePath = ""
}

// SetActiveFile selects one of the artifact's files.
func (s *Store) SetActiveFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Artifact == nil {
		return nesterrors.Wrapf(nesterrors.ErrUnknownFile, "%q: no artifact", path)
	}
	if !s.state.Artifact.Has(path) {
		return nesterrors.Wrapf(nesterrors.ErrUnknownFile, "%q", path)
	}
	s.state.ActiveFilePath = path
	return nil
}

// SetGenerating sets the generation flag directly.
func (s *Store) SetGenerating(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsGenerating = v
	if !v {
		s.gens++
	}
}

// AddToHistory appends a generated project.
func (s *Store) AddToHistory(a *artifact.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.History = append(s.state.History, a)
}

// BeginGeneration raises the generation flag. It fails with
// ErrGenerationInProgress while a generation is outstanding. The token
// identifies this generation to FinishGeneration.
func (s *Store) BeginGeneration() (token uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsGenerating {
		return 0, nesterrors.ErrGenerationInProgress
	}
	s.gens++
	s.state.IsGenerating = true
	return s.gens, nil
}

// FinishGeneration lowers the flag and, on success, stores a as the
// current artifact and appends it to the history. A failure leaves the
// previous artifact in place. Results for a token that is no longer
// current are dropped and false is returned.
func (s *Store) FinishGeneration(token uint64, a *artifact.Artifact, genErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gens || !s.state.IsGenerating {
		s.logger.Debug().Uint64("token", token).Msg("stale generation result dropped")
		return false
	}
	s.state.IsGenerating = false
	if genErr != nil || a == nil {
		return true
	}
	s.state.Artifact = a
	s.state.ActiveFilePath = ""
	s.state.History = append(s.state.History, a)
	return true
}
