// Package mutate applies path-addressed updates to immutable documents.
package mutate

import (
	"strings"

	"infranest/internal/doc"
	nesterrors "infranest/internal/errors"
)

// Set returns a copy of root with the value at path replaced by value.
//
// Only the mappings along path are copied; every sibling is shared with
// root. Missing or null intermediate mappings are created empty. The final segment
// is replaced, never merged. Removing a key is expressed by setting its
// parent to parent.Without(key).
func Set(root *doc.Map, path []string, value any) (*doc.Map, error) {
	if len(path) == 0 {
		return nil, nesterrors.Wrap(nesterrors.ErrInvalidPath, "empty path")
	}
	return setIn(root, path, 0, value)
}

func setIn(m *doc.Map, path []string, i int, value any) (*doc.Map, error) {
	key := path[i]
	if i == len(path)-1 {
		return m.With(key, value), nil
	}
	var child *doc.Map
	if v, ok := m.Get(key); ok && v != nil {
		c, isMap := v.(*doc.Map)
		if !isMap {
			return nil, nesterrors.Wrapf(nesterrors.ErrInvalidPath,
				"%s is not a mapping", Join(path[:i+1]))
		}
		child = c
	}
	next, err := setIn(child, path, i+1, value)
	if err != nil {
		return nil, err
	}
	return m.With(key, next), nil
}

// Get returns the value at path. An empty path yields root itself.
func Get(root *doc.Map, path []string) (any, bool) {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(*doc.Map)
		if !ok {
			return nil, false
		}
		if cur, ok = m.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// Delete returns a copy of root without the entry at path. It is a no-op,
// returning root, when the entry does not exist.
func Delete(root *doc.Map, path []string) (*doc.Map, error) {
	if len(path) == 0 {
		return nil, nesterrors.Wrap(nesterrors.ErrInvalidPath, "empty path")
	}
	parentPath, key := path[:len(path)-1], path[len(path)-1]
	v, ok := Get(root, parentPath)
	if !ok {
		return root, nil
	}
	parent, ok := v.(*doc.Map)
	if !ok || !parent.Has(key) {
		return root, nil
	}
	if len(parentPath) == 0 {
		return parent.Without(key), nil
	}
	return Set(root, parentPath, parent.Without(key))
}

// Split parses a dotted path such as "models.User.fields".
func Split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// Join renders path in dotted form for messages.
func Join(path []string) string {
	return strings.Join(path, ".")
}
