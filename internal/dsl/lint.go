package dsl

import "fmt"

// Issue is an advisory finding. Lint issues never decide validity; that is
// the external validator's call.
type Issue struct {
	Model   string `json:"model,omitempty"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type lintConfig struct {
	frameworks map[string]bool
}

// LintOption tunes Lint.
type LintOption func(*lintConfig)

// WithFrameworks enables the meta.framework check against known catalog ids.
func WithFrameworks(ids []string) LintOption {
	return func(c *lintConfig) {
		c.frameworks = make(map[string]bool, len(ids))
		for _, id := range ids {
			c.frameworks[id] = true
		}
	}
}

// Lint reports basic contradictions in the models, in declaration order.
func Lint(s Specification, opts ...LintOption) []Issue {
	var cfg lintConfig
	for _, o := range opts {
		o(&cfg)
	}
	var issues []Issue

	if fw := s.Meta().Framework; cfg.frameworks != nil && fw != "" && !cfg.frameworks[fw] {
		issues = append(issues, Issue{
			Code:    "framework_unknown",
			Message: fmt.Sprintf("framework %q is not in the catalog", fw),
		})
	}

	for _, m := range s.Models() {
		if !nameRe.MatchString(m.Name) {
			issues = append(issues, Issue{Model: m.Name, Code: "name_not_identifier",
				Message: "model name is not a valid identifier"})
		}
		pk := 0
		for _, f := range m.Fields {
			if f.PrimaryKey {
				pk++
			}
			if !nameRe.MatchString(f.Name) {
				issues = append(issues, Issue{Model: m.Name, Field: f.Name, Code: "name_not_identifier",
					Message: "field name is not a valid identifier"})
			}
			if !f.Type.Valid() {
				issues = append(issues, Issue{Model: m.Name, Field: f.Name, Code: "field_type_unknown",
					Message: fmt.Sprintf("unknown field type %q", string(f.Type))})
				continue
			}
			if f.Type.IsRelation() {
				switch {
				case f.Model == "":
					issues = append(issues, Issue{Model: m.Name, Field: f.Name, Code: "relation_target_empty",
						Message: fmt.Sprintf("%s field has no target model", f.Type)})
				case !s.HasModel(f.Model):
					issues = append(issues, Issue{Model: m.Name, Field: f.Name, Code: "relation_target_unknown",
						Message: fmt.Sprintf("target model %q is not declared", f.Model)})
				}
			}
			if f.Hashed && f.Type != TypeString && f.Type != TypeText {
				issues = append(issues, Issue{Model: m.Name, Field: f.Name, Code: "hashed_non_string",
					Message: "only string and text fields can be hashed"})
			}
		}
		switch {
		case pk == 0:
			issues = append(issues, Issue{Model: m.Name, Code: "primary_key_missing",
				Message: "model has no primary key field"})
		case pk > 1:
			issues = append(issues, Issue{Model: m.Name, Code: "primary_key_multiple",
				Message: fmt.Sprintf("model declares %d primary key fields", pk)})
		}
	}
	return issues
}
