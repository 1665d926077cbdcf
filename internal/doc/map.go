// Package doc implements the ordered, immutable mapping that backs
// specifications and artifact file listings.
//
// A *Map never changes after construction. With and Without return shallow
// copies: untouched values are shared with the receiver. Values are one of
// nil, string, bool, int, float64, []any or *Map.
package doc

import "reflect"

// Map is an insertion-ordered string-keyed mapping. The zero value and nil
// both read as empty.
type Map struct {
	keys []string
	vals map[string]any
}

// New returns an empty mapping.
func New() *Map {
	return &Map{keys: []string{}, vals: map[string]any{}}
}

// Pairs builds a mapping from alternating key, value arguments. It panics
// on an odd argument count or a non-string key, so it is meant for literals.
func Pairs(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("doc.Pairs: odd argument count")
	}
	m := &Map{keys: make([]string, 0, len(kv)/2), vals: make(map[string]any, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("doc.Pairs: non-string key")
		}
		m.put(k, kv[i+1])
	}
	return m
}

// put mutates m and is only used while m is still private to its builder.
func (m *Map) put(k string, v any) {
	if _, exists := m.vals[k]; !exists {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return []string{}
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under k.
func (m *Map) Get(k string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[k]
	return v, ok
}

// Has reports whether k is present.
func (m *Map) Has(k string) bool {
	_, ok := m.Get(k)
	return ok
}

// Map returns the value under k if it is a mapping.
func (m *Map) Map(k string) (*Map, bool) {
	v, ok := m.Get(k)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Map)
	return child, ok
}

// String returns the value under k if it is a string, "" otherwise.
func (m *Map) String(k string) string {
	v, _ := m.Get(k)
	s, _ := v.(string)
	return s
}

// Bool returns the value under k if it is a bool, false otherwise.
func (m *Map) Bool(k string) bool {
	v, _ := m.Get(k)
	b, _ := v.(bool)
	return b
}

// Range calls fn for each entry in order until fn returns false.
func (m *Map) Range(fn func(k string, v any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// With returns a copy of m with k set to v. An existing key keeps its
// position; a new key is appended.
func (m *Map) With(k string, v any) *Map {
	out := m.clone(1)
	out.put(k, v)
	return out
}

// Without returns a copy of m without k. If k is absent m itself is returned.
func (m *Map) Without(k string) *Map {
	if !m.Has(k) {
		if m == nil {
			return New()
		}
		return m
	}
	out := &Map{keys: make([]string, 0, len(m.keys)-1), vals: make(map[string]any, len(m.vals)-1)}
	for _, key := range m.keys {
		if key == k {
			continue
		}
		out.keys = append(out.keys, key)
		out.vals[key] = m.vals[key]
	}
	return out
}

func (m *Map) clone(extra int) *Map {
	n := m.Len()
	out := &Map{keys: make([]string, n, n+extra), vals: make(map[string]any, n+extra)}
	if m == nil {
		return out
	}
	copy(out.keys, m.keys)
	for k, v := range m.vals {
		out.vals[k] = v
	}
	return out
}

// Equal reports whether m and o hold the same keys in the same order with
// equal values.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	if m.Len() == 0 {
		return true
	}
	for i, k := range m.keys {
		if o.keys[i] != k {
			return false
		}
		if !Equal(m.vals[k], o.vals[k]) {
			return false
		}
	}
	return true
}

// Equal compares two document values. Mappings compare with order.
// Numbers compare by value, so int 1 equals float64 1.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	if af, ok := number(a); ok {
		bf, ok := number(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
