package dsl

import "infranest/internal/doc"

// DefaultSpecification is the starting document of the builder: a JWT
// protected API with a single User model.
func DefaultSpecification() Specification {
	return New(doc.Pairs(
		SectionMeta, doc.Pairs(
			"name", "my-api",
			"description", "Generated API",
			"version", "1.0.0",
			"framework", "django",
			"database", "postgresql",
		),
		SectionAuth, doc.Pairs(
			"provider", "jwt",
			"user_model", "User",
			"required_fields", []any{"email", "password"},
		),
		SectionModels, doc.Pairs(
			"User", doc.Pairs("fields", doc.Pairs(
				"id", doc.Pairs("type", string(TypeUUID), "primary_key", true, "auto_generated", true),
				"email", doc.Pairs("type", string(TypeString), "unique", true, "required", true),
				"password", doc.Pairs("type", string(TypeString), "required", true, "hashed", true),
			)),
		),
		SectionAPI, doc.Pairs(
			"base_path", "/api/v1",
			"endpoints", []any{},
		),
	))
}
