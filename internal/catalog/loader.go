package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	nesterrors "infranest/internal/errors"
)

// LoadDir reads one framework per .yaml/.yml file in dir, sorted by file
// name. A missing id falls back to the file name without extension.
func LoadDir(dir string) ([]Framework, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nesterrors.Mark(err, nesterrors.ErrCatalog)
	}

	var out []Framework
	seen := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nesterrors.Mark(err, nesterrors.ErrCatalog)
		}
		var fw Framework
		if err := yaml.Unmarshal(data, &fw); err != nil {
			return nil, nesterrors.Wrapf(nesterrors.Mark(err, nesterrors.ErrCatalog), "parse %s", path)
		}
		if fw.ID == "" {
			fw.ID = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if fw.Name == "" {
			fw.Name = fw.ID
		}
		if prev, ok := seen[fw.ID]; ok {
			return nil, nesterrors.Wrapf(nesterrors.ErrCatalog, "framework %q defined in %s and %s", fw.ID, prev, path)
		}
		seen[fw.ID] = path
		out = append(out, fw)
	}
	return out, nil
}
