package dsl

import (
	"encoding/json"

	"infranest/internal/doc"
)

// Top-level section keys.
const (
	SectionMeta   = "meta"
	SectionAuth   = "auth"
	SectionModels = "models"
	SectionAPI    = "api"
)

// Specification is an immutable backend description. Every edit returns a
// new value; the document behind an existing value never changes, so a
// Specification may be handed to other goroutines freely.
type Specification struct {
	root *doc.Map
}

// New wraps root. A nil root is an empty specification.
func New(root *doc.Map) Specification {
	if root == nil {
		root = doc.New()
	}
	return Specification{root: root}
}

// Doc returns the underlying document.
func (s Specification) Doc() *doc.Map {
	if s.root == nil {
		return doc.New()
	}
	return s.root
}

// Equal compares two specifications structurally, key order included.
func (s Specification) Equal(o Specification) bool {
	return s.Doc().Equal(o.Doc())
}

func (s Specification) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Doc())
}

func (s *Specification) UnmarshalJSON(b []byte) error {
	m := doc.New()
	if err := m.UnmarshalJSON(b); err != nil {
		return err
	}
	s.root = m
	return nil
}

func (s Specification) MarshalYAML() (any, error) {
	return s.Doc().MarshalYAML()
}

// Meta is the `meta` section.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Framework   string `json:"framework"`
	Database    string `json:"database"`
}

// Auth is the `auth` section. UserModel is expected to name an entry of
// `models`; dangling references are left to the external validator.
type Auth struct {
	Provider       string   `json:"provider"`
	UserModel      string   `json:"user_model"`
	RequiredFields []string `json:"required_fields"`
}

// API is the `api` section. Endpoints are carried through untouched.
type API struct {
	BasePath  string `json:"base_path"`
	Endpoints []any  `json:"endpoints"`
}

// Model is a read view of one entry of `models`.
type Model struct {
	Name   string
	Fields []Field
}

// Field is a read view of a field definition.
type Field struct {
	Name          string
	Type          FieldType
	PrimaryKey    bool
	Unique        bool
	Required      bool
	Hashed        bool
	AutoGenerated bool
	Default       any
	HasDefault    bool
	// Model is the relation target for foreign_key and many_to_many.
	Model string
}

// Field returns the named field.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Specification) section(name string) *doc.Map {
	m, _ := s.Doc().Map(name)
	return m
}

func (s Specification) Meta() Meta {
	m := s.section(SectionMeta)
	return Meta{
		Name:        m.String("name"),
		Description: m.String("description"),
		Version:     scalarString(m, "version"),
		Framework:   m.String("framework"),
		Database:    m.String("database"),
	}
}

func (s Specification) Auth() Auth {
	m := s.section(SectionAuth)
	return Auth{
		Provider:       m.String("provider"),
		UserModel:      m.String("user_model"),
		RequiredFields: stringList(m, "required_fields"),
	}
}

func (s Specification) API() API {
	m := s.section(SectionAPI)
	a := API{BasePath: m.String("base_path")}
	if v, ok := m.Get("endpoints"); ok {
		a.Endpoints, _ = v.([]any)
	}
	return a
}

// ModelNames lists models in declaration order.
func (s Specification) ModelNames() []string {
	return s.section(SectionModels).Keys()
}

// HasModel reports whether name is declared.
func (s Specification) HasModel(name string) bool {
	return s.section(SectionModels).Has(name)
}

// Model returns the typed view of one model.
func (s Specification) Model(name string) (Model, bool) {
	def, ok := s.section(SectionModels).Map(name)
	if !ok {
		return Model{}, false
	}
	out := Model{Name: name}
	fields, _ := def.Map("fields")
	fields.Range(func(fname string, v any) bool {
		fd, _ := v.(*doc.Map)
		out.Fields = append(out.Fields, decodeField(fname, fd))
		return true
	})
	return out, true
}

// Models returns all models in declaration order.
func (s Specification) Models() []Model {
	names := s.ModelNames()
	out := make([]Model, 0, len(names))
	for _, n := range names {
		if m, ok := s.Model(n); ok {
			out = append(out, m)
		}
	}
	return out
}

func decodeField(name string, m *doc.Map) Field {
	f := Field{
		Name:          name,
		Type:          FieldType(m.String("type")),
		PrimaryKey:    m.Bool("primary_key"),
		Unique:        m.Bool("unique"),
		Required:      m.Bool("required"),
		Hashed:        m.Bool("hashed"),
		AutoGenerated: m.Bool("auto_generated"),
		Model:         m.String("model"),
	}
	f.Default, f.HasDefault = m.Get("default")
	return f
}

func stringList(m *doc.Map, key string) []string {
	v, _ := m.Get(key)
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// scalarString renders numbers too, since an unquoted `version: 1.0` in
// YAML decodes as a float.
func scalarString(m *doc.Map, key string) string {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
