package workspace_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infranest/internal/artifact"
	"infranest/internal/doc"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/workspace"
)

func project(id string, paths ...string) *artifact.Artifact {
	kv := make([]any, 0, 2*len(paths))
	for _, p := range paths {
		kv = append(kv, p, "// "+p)
	}
	return &artifact.Artifact{ID: id, Name: "blog", Framework: "django", Files: doc.Pairs(kv...)}
}

func TestStore_Empty(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())
	st := s.Snapshot()
	assert.Nil(t, st.Specification)
	assert.Nil(t, st.Artifact)
	assert.Empty(t, st.ActiveFilePath)
	assert.False(t, st.IsGenerating)
	assert.Empty(t, st.History)

	err := s.SetActiveFile("README.md")
	require.ErrorIs(t, err, nesterrors.ErrUnknownFile)
}

func TestStore_SetSpecificationLeavesArtifact(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())
	s.SetArtifact(project("p1", "README.md"))
	require.NoError(t, s.SetActiveFile("README.md"))

	rev := s.SetSpecification(dsl.DefaultSpecification())
	assert.Equal(t, uint64(1), rev)

	st := s.Snapshot()
	require.NotNil(t, st.Specification)
	assert.Equal(t, "my-api", st.Specification.Meta().Name)
	assert.Equal(t, "p1", st.Artifact.ID)
	assert.Equal(t, "README.md", st.ActiveFilePath)
}

func TestStore_SelectFileThenNewArtifact(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())
	s.SetArtifact(project("p1", "README.md", "src/main.go"))

	require.NoError(t, s.SetActiveFile("src/main.go"))
	assert.Equal(t, "src/main.go", s.Snapshot().ActiveFilePath)

	err := s.SetActiveFile("src/missing.go")
	require.ErrorIs(t, err, nesterrors.ErrUnknownFile)
	assert.Equal(t, "src/main.go", s.Snapshot().ActiveFilePath, "failed selection keeps the old one")

	s.SetArtifact(project("p2", "src/main.go"))
	assert.Empty(t, s.Snapshot().ActiveFilePath, "new artifact clears the selection")
}

func TestStore_Edit(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())

	spec, rev, err := s.Edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.AddModel(cur, "Post")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Post"}, spec.ModelNames())
	assert.Equal(t, uint64(1), rev)

	_, rev, err = s.Edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.AddModel(cur, "Post")
	})
	require.ErrorIs(t, err, nesterrors.ErrDuplicateName)
	assert.Equal(t, uint64(1), rev)

	cur, curRev, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, []string{"Post"}, cur.ModelNames())
	assert.Equal(t, uint64(1), curRev, "failed edit stores nothing")
}

func TestStore_GenerationGate(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())

	token, err := s.BeginGeneration()
	require.NoError(t, err)
	assert.True(t, s.Snapshot().IsGenerating)

	_, err = s.BeginGeneration()
	require.ErrorIs(t, err, nesterrors.ErrGenerationInProgress)

	require.True(t, s.FinishGeneration(token, project("p1", "a.go"), nil))
	st := s.Snapshot()
	assert.False(t, st.IsGenerating)
	assert.Equal(t, "p1", st.Artifact.ID)
	require.Len(t, st.History, 1)

	assert.False(t, s.FinishGeneration(token, project("late", "b.go"), nil), "token already finished")
	assert.Equal(t, "p1", s.Snapshot().Artifact.ID)
}

func TestStore_FailedGenerationKeepsArtifact(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())
	s.SetArtifact(project("good", "main.go"))
	require.NoError(t, s.SetActiveFile("main.go"))

	token, err := s.BeginGeneration()
	require.NoError(t, err)
	require.True(t, s.FinishGeneration(token, nil, errors.New("generator down")))

	st := s.Snapshot()
	assert.False(t, st.IsGenerating)
	assert.Equal(t, "good", st.Artifact.ID)
	assert.Equal(t, "main.go", st.ActiveFilePath)
	assert.Empty(t, st.History)
}

func TestStore_SetGeneratingAndHistory(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())
	s.SetGenerating(true)
	_, err := s.BeginGeneration()
	require.ErrorIs(t, err, nesterrors.ErrGenerationInProgress)
	s.SetGenerating(false)

	s.AddToHistory(project("h1"))
	snap := s.Snapshot()
	s.AddToHistory(project("h2"))
	assert.Len(t, snap.History, 1, "snapshots do not see later appends")
	assert.Len(t, s.Snapshot().History, 2)
}

func TestStore_SetSpecificationIf(t *testing.T) {
	s := workspace.NewStore(zerolog.Nop())
	rev, err := s.SetSpecificationIf(0, dsl.DefaultSpecification())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)

	_, _, err = s.Edit(func(cur dsl.Specification) (dsl.Specification, error) {
		return dsl.AddModel(cur, "Post")
	})
	require.NoError(t, err)

	rev, err = s.SetSpecificationIf(1, dsl.DefaultSpecification())
	require.ErrorIs(t, err, nesterrors.ErrStaleRevision)
	assert.Equal(t, uint64(2), rev)
	spec, _ := s.Specification()
	assert.True(t, spec.HasModel("Post"), "stale write is rejected")
}
