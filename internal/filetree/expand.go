package filetree

import "sync"

// ExpandState records which folders are open, keyed by accumulated folder
// path. Folders default to collapsed; the root ("") is always expanded.
// The zero value is ready to use.
type ExpandState struct {
	mu   sync.RWMutex
	open map[string]bool
}

func NewExpandState() *ExpandState {
	return &ExpandState{}
}

func (s *ExpandState) IsExpanded(path string) bool {
	if path == "" {
		return true
	}
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open[path]
}

// Toggle flips a folder and returns its new state.
func (s *ExpandState) Toggle(path string) bool {
	if path == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open[path] {
		delete(s.open, path)
		return false
	}
	if s.open == nil {
		s.open = make(map[string]bool)
	}
	s.open[path] = true
	return true
}

func (s *ExpandState) Expand(path string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		s.open = make(map[string]bool)
	}
	s.open[path] = true
}

func (s *ExpandState) Collapse(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, path)
}

// ExpandAll opens every folder under root.
func (s *ExpandState) ExpandAll(root *Node) {
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind != KindFolder {
			return
		}
		s.Expand(n.Path)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
}
