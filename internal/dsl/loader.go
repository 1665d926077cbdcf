package dsl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"infranest/internal/doc"
	nesterrors "infranest/internal/errors"
)

// Format is a specification file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the encoding from a file extension. Anything that is not
// .json is read as YAML, which also accepts JSON documents.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

func isSpecFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Parse decodes a specification document. The top level must be a mapping.
func Parse(data []byte, f Format) (Specification, error) {
	var (
		v   any
		err error
	)
	if f == FormatJSON {
		v, err = doc.DecodeJSON(data)
	} else {
		v, err = doc.DecodeYAML(data)
	}
	if err != nil {
		return Specification{}, nesterrors.Mark(err, nesterrors.ErrSpecFile)
	}
	root, ok := v.(*doc.Map)
	if !ok {
		return Specification{}, nesterrors.Wrapf(nesterrors.ErrSpecFile, "top level is %T, want a mapping", v)
	}
	return New(root), nil
}

// Encode renders s in the given format. JSON output is indented.
func Encode(s Specification, f Format) ([]byte, error) {
	if f == FormatJSON {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}
	return doc.EncodeYAML(s.Doc())
}

// LoadFile reads one specification file.
func LoadFile(path string) (Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Specification{}, nesterrors.Mark(err, nesterrors.ErrSpecFile)
	}
	s, err := Parse(data, FormatOf(path))
	if err != nil {
		return Specification{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// WriteFile stores s at path, encoded by the path's extension.
func WriteFile(path string, s Specification) error {
	data, err := Encode(s, FormatOf(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDir walks root and loads every .yaml, .yml and .json file, keyed by
// meta.name. Two files with the same name are an error.
func LoadDir(root string) (map[string]Specification, error) {
	result := make(map[string]Specification)
	origin := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isSpecFile(d.Name()) {
			return nil
		}
		s, err := LoadFile(path)
		if err != nil {
			return err
		}
		name := s.Meta().Name
		if name == "" {
			return nesterrors.Wrapf(nesterrors.ErrSpecFile, "%s has no meta.name", path)
		}
		if prev, exists := origin[name]; exists {
			return nesterrors.Wrapf(nesterrors.ErrDuplicateName, "specification %q in %s (already in %s)", name, path, prev)
		}
		result[name] = s
		origin[name] = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
