// Package catalog holds the target frameworks code can be generated for.
package catalog

// Framework is one generation target.
type Framework struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Language    string   `yaml:"language" json:"language"`
	Description string   `yaml:"description,omitempty" json:"description"`
	Features    []string `yaml:"features,omitempty" json:"features"`
}

// Builtin returns the frameworks known without any catalog directory.
func Builtin() []Framework {
	return []Framework{
		{
			ID:          "django",
			Name:        "Django + DRF",
			Language:    "Python",
			Description: "Python web framework with Django REST Framework",
			Features:    []string{"ORM", "Admin Panel", "Authentication", "REST API"},
		},
		{
			ID:          "go-fiber",
			Name:        "Go Fiber + GORM",
			Language:    "Go",
			Description: "High-performance Go web framework with GORM ORM",
			Features:    []string{"High Performance", "ORM", "Middleware", "REST API"},
		},
		{
			ID:          "rails",
			Name:        "Ruby on Rails",
			Language:    "Ruby",
			Description: "Convention over configuration web framework",
			Features:    []string{"ActiveRecord", "Scaffolding", "Authentication", "REST API"},
		},
	}
}
