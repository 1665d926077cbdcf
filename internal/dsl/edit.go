package dsl

import (
	"regexp"

	"infranest/internal/doc"
	nesterrors "infranest/internal/errors"
	"infranest/internal/mutate"
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ModelPath is the path of a model definition.
func ModelPath(model string) []string {
	return []string{SectionModels, model}
}

// FieldsPath is the path of a model's field mapping.
func FieldsPath(model string) []string {
	return []string{SectionModels, model, "fields"}
}

// FieldPath is the path of one field definition.
func FieldPath(model, field string) []string {
	return []string{SectionModels, model, "fields", field}
}

// NewModelDefinition is the definition inserted by AddModel: a single
// auto-generated uuid primary key.
func NewModelDefinition() *doc.Map {
	return doc.Pairs("fields", doc.Pairs(
		"id", doc.Pairs("type", string(TypeUUID), "primary_key", true, "auto_generated", true),
	))
}

// NewFieldDefinition is the definition inserted by AddField.
func NewFieldDefinition() *doc.Map {
	return doc.Pairs("type", string(TypeString), "required", false)
}

// SetValue replaces the value at path.
func SetValue(s Specification, path []string, value any) (Specification, error) {
	root, err := mutate.Set(s.Doc(), path, value)
	if err != nil {
		return s, err
	}
	return New(root), nil
}

// AddModel declares a model with the default primary key.
func AddModel(s Specification, name string) (Specification, error) {
	if !nameRe.MatchString(name) {
		return s, nesterrors.Wrapf(nesterrors.ErrInvalidName, "model %q", name)
	}
	if s.HasModel(name) {
		return s, nesterrors.Wrapf(nesterrors.ErrDuplicateName, "model %q", name)
	}
	return SetValue(s, ModelPath(name), NewModelDefinition())
}

// AddField adds an optional string field to an existing model.
func AddField(s Specification, model, field string) (Specification, error) {
	if !nameRe.MatchString(field) {
		return s, nesterrors.Wrapf(nesterrors.ErrInvalidName, "field %q", field)
	}
	if !s.HasModel(model) {
		return s, nesterrors.Wrapf(nesterrors.ErrModelNotFound, "model %q", model)
	}
	if _, ok := mutate.Get(s.Doc(), FieldPath(model, field)); ok {
		return s, nesterrors.Wrapf(nesterrors.ErrDuplicateName, "field %q on model %q", field, model)
	}
	return SetValue(s, FieldPath(model, field), NewFieldDefinition())
}

// RemoveModel deletes a model. Absent models are a no-op. References to
// the model elsewhere (auth.user_model, relation targets) are left alone.
func RemoveModel(s Specification, name string) Specification {
	root, err := mutate.Delete(s.Doc(), ModelPath(name))
	if err != nil {
		return s
	}
	return New(root)
}

// RemoveField deletes a field. Absent models or fields are a no-op.
func RemoveField(s Specification, model, field string) Specification {
	root, err := mutate.Delete(s.Doc(), FieldPath(model, field))
	if err != nil {
		return s
	}
	return New(root)
}

// SetFieldType changes the type of an existing field.
func SetFieldType(s Specification, model, field string, t FieldType) (Specification, error) {
	if !t.Valid() {
		return s, nesterrors.Wrapf(nesterrors.ErrInvalidFieldType, "%q", string(t))
	}
	if !s.HasModel(model) {
		return s, nesterrors.Wrapf(nesterrors.ErrModelNotFound, "model %q", model)
	}
	if _, ok := mutate.Get(s.Doc(), FieldPath(model, field)); !ok {
		return s, nesterrors.Wrapf(nesterrors.ErrInvalidPath, "field %q on model %q does not exist", field, model)
	}
	return SetValue(s, append(FieldPath(model, field), "type"), string(t))
}
