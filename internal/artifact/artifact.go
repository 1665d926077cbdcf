// Package artifact describes generated projects.
package artifact

import (
	"encoding/json"
	"fmt"

	"infranest/internal/doc"
)

// Artifact is a generated project. Files maps slash-separated repository
// paths to contents; its order is the listing order of the project.
type Artifact struct {
	ID        string
	Name      string
	Framework string
	Files     *doc.Map
}

type wire struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Framework string   `json:"framework"`
	Files     *doc.Map `json:"files"`
}

func (a Artifact) MarshalJSON() ([]byte, error) {
	files := a.Files
	if files == nil {
		files = doc.New()
	}
	return json.Marshal(wire{ID: a.ID, Name: a.Name, Framework: a.Framework, Files: files})
}

// UnmarshalJSON decodes an artifact and checks that every file content is
// a string.
func (a *Artifact) UnmarshalJSON(b []byte) error {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Files == nil {
		w.Files = doc.New()
	}
	var bad string
	w.Files.Range(func(k string, v any) bool {
		if _, ok := v.(string); !ok {
			bad = k
			return false
		}
		return true
	})
	if bad != "" {
		return fmt.Errorf("artifact file %q: content is not a string", bad)
	}
	*a = Artifact{ID: w.ID, Name: w.Name, Framework: w.Framework, Files: w.Files}
	return nil
}

// Paths lists the file paths in order.
func (a *Artifact) Paths() []string {
	if a == nil {
		return nil
	}
	return a.Files.Keys()
}

// Has reports whether path is one of the files.
func (a *Artifact) Has(path string) bool {
	return a != nil && a.Files.Has(path)
}

// Content returns the content of path.
func (a *Artifact) Content(path string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.Files.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ArchiveName is the download file name, <name>-<framework>.zip.
func (a *Artifact) ArchiveName() string {
	return fmt.Sprintf("%s-%s.zip", a.Name, a.Framework)
}
