package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infranest/internal/doc"
	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/mutate"
)

func fields(t *testing.T, s dsl.Specification, model string) *doc.Map {
	t.Helper()
	v, ok := mutate.Get(s.Doc(), dsl.FieldsPath(model))
	require.True(t, ok, "model %s has no fields", model)
	m, ok := v.(*doc.Map)
	require.True(t, ok)
	return m
}

func TestAddModel(t *testing.T) {
	s := dsl.DefaultSpecification()

	out, err := dsl.AddModel(s, "Post")
	require.NoError(t, err)

	assert.Equal(t, []string{"User", "Post"}, out.ModelNames())
	assert.Equal(t, []string{"User"}, s.ModelNames(), "receiver unchanged")

	post, ok := out.Model("Post")
	require.True(t, ok)
	require.Len(t, post.Fields, 1)
	id := post.Fields[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, dsl.TypeUUID, id.Type)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoGenerated)
}

func TestAddModel_EmptySections(t *testing.T) {
	s, err := dsl.Parse([]byte("meta:\n  name: x\nmodels:\nauth:\n"), dsl.FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, s.ModelNames())

	out, err := dsl.AddModel(s, "Post")
	require.NoError(t, err)
	assert.Equal(t, []string{"Post"}, out.ModelNames())

	out, err = dsl.AddField(out, "Post", "title")
	require.NoError(t, err)
	post, ok := out.Model("Post")
	require.True(t, ok)
	assert.Len(t, post.Fields, 2)

	out, err = dsl.SetValue(out, []string{"auth", "provider"}, "jwt")
	require.NoError(t, err)
	assert.Equal(t, "jwt", out.Auth().Provider)
}

func TestAddModel_Errors(t *testing.T) {
	s := dsl.DefaultSpecification()

	_, err := dsl.AddModel(s, "User")
	require.ErrorIs(t, err, nesterrors.ErrDuplicateName)

	for _, name := range []string{"", "1abc", "has space", "dash-name"} {
		_, err = dsl.AddModel(s, name)
		require.ErrorIs(t, err, nesterrors.ErrInvalidName, "name %q", name)
	}
}

func TestAddField(t *testing.T) {
	s := dsl.DefaultSpecification()

	out, err := dsl.AddField(s, "User", "nickname")
	require.NoError(t, err)

	f := fields(t, out, "User")
	assert.Equal(t, []string{"id", "email", "password", "nickname"}, f.Keys())
	def, _ := f.Map("nickname")
	assert.True(t, def.Equal(doc.Pairs("type", "string", "required", false)))

	_, err = dsl.AddField(out, "User", "nickname")
	require.ErrorIs(t, err, nesterrors.ErrDuplicateName)

	_, err = dsl.AddField(out, "Ghost", "x")
	require.ErrorIs(t, err, nesterrors.ErrModelNotFound)
}

// Adding and removing a field leaves the model identical to a freshly
// added one.
func TestAddRemoveField_RestoresModel(t *testing.T) {
	s, err := dsl.AddModel(dsl.DefaultSpecification(), "Post")
	require.NoError(t, err)
	fresh := fields(t, s, "Post")

	s, err = dsl.AddField(s, "Post", "title")
	require.NoError(t, err)
	s = dsl.RemoveField(s, "Post", "title")

	got := fields(t, s, "Post")
	assert.True(t, got.Equal(fresh))
	want, _ := dsl.NewModelDefinition().Map("fields")
	assert.True(t, got.Equal(want))
}

func TestRemove_NoOpWhenAbsent(t *testing.T) {
	s := dsl.DefaultSpecification()

	assert.True(t, dsl.RemoveModel(s, "Ghost").Equal(s))
	assert.True(t, dsl.RemoveField(s, "Ghost", "x").Equal(s))
	assert.True(t, dsl.RemoveField(s, "User", "missing").Equal(s))
	assert.False(t, dsl.RemoveField(s, "Ghost", "x").HasModel("Ghost"), "absent model is not created")
}

func TestRemoveModel_LeavesReferences(t *testing.T) {
	s := dsl.RemoveModel(dsl.DefaultSpecification(), "User")

	assert.Empty(t, s.ModelNames())
	assert.Equal(t, "User", s.Auth().UserModel)
}

func TestSetFieldType(t *testing.T) {
	s := dsl.DefaultSpecification()

	out, err := dsl.SetFieldType(s, "User", "email", dsl.TypeEmail)
	require.NoError(t, err)
	user, _ := out.Model("User")
	email, _ := user.Field("email")
	assert.Equal(t, dsl.TypeEmail, email.Type)
	assert.True(t, email.Unique, "other attributes kept")

	_, err = dsl.SetFieldType(s, "User", "email", "varchar")
	require.ErrorIs(t, err, nesterrors.ErrInvalidFieldType)

	_, err = dsl.SetFieldType(s, "User", "missing", dsl.TypeText)
	require.ErrorIs(t, err, nesterrors.ErrInvalidPath)
}

func TestSetValue(t *testing.T) {
	s := dsl.DefaultSpecification()

	out, err := dsl.SetValue(s, []string{"meta", "framework"}, "rails")
	require.NoError(t, err)
	assert.Equal(t, "rails", out.Meta().Framework)
	assert.Equal(t, "django", s.Meta().Framework)

	_, err = dsl.SetValue(s, nil, "x")
	require.ErrorIs(t, err, nesterrors.ErrInvalidPath)
}
