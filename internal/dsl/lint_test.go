package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infranest/internal/dsl"
)

func codes(issues []dsl.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func TestLint_DefaultIsClean(t *testing.T) {
	assert.Empty(t, dsl.Lint(dsl.DefaultSpecification(), dsl.WithFrameworks([]string{"django"})))
}

func TestLint_Findings(t *testing.T) {
	s, err := dsl.Parse([]byte(`
meta: {framework: laravel}
models:
  Post:
    fields:
      title: {type: varchar}
      author: {type: foreign_key}
      tags: {type: many_to_many, model: Tag}
      secret: {type: integer, hashed: true}
  Pair:
    fields:
      a: {type: uuid, primary_key: true}
      b: {type: uuid, primary_key: true}
`), dsl.FormatYAML)
	require.NoError(t, err)

	issues := dsl.Lint(s, dsl.WithFrameworks([]string{"django", "rails"}))
	assert.Equal(t, []string{
		"framework_unknown",
		"field_type_unknown",
		"relation_target_empty",
		"relation_target_unknown",
		"hashed_non_string",
		"primary_key_missing",
		"primary_key_multiple",
	}, codes(issues))
	assert.Equal(t, "Post", issues[1].Model)
	assert.Equal(t, "title", issues[1].Field)
}

func TestLint_IgnoresDanglingUserModel(t *testing.T) {
	s := dsl.RemoveModel(dsl.DefaultSpecification(), "User")
	assert.Empty(t, dsl.Lint(s))
}
