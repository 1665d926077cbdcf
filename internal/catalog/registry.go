package catalog

import "sync"

// Registry is the set of frameworks accepted for generation. It is
// refreshed from the upstream catalog and otherwise seeded locally.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Framework
}

// NewRegistry returns a registry holding fws.
func NewRegistry(fws []Framework) *Registry {
	r := &Registry{}
	r.Replace(fws)
	return r
}

// Replace swaps the whole set. Later duplicates of an id win but keep the
// first position.
func (r *Registry) Replace(fws []Framework) {
	order := make([]string, 0, len(fws))
	byID := make(map[string]Framework, len(fws))
	for _, fw := range fws {
		if _, ok := byID[fw.ID]; !ok {
			order = append(order, fw.ID)
		}
		byID[fw.ID] = fw
	}
	r.mu.Lock()
	r.order, r.byID = order, byID
	r.mu.Unlock()
}

// Merge adds or overrides frameworks without dropping the others.
func (r *Registry) Merge(fws []Framework) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = make(map[string]Framework)
	}
	for _, fw := range fws {
		if _, ok := r.byID[fw.ID]; !ok {
			r.order = append(r.order, fw.ID)
		}
		r.byID[fw.ID] = fw
	}
}

func (r *Registry) List() []Framework {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Framework, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Lookup(id string) (Framework, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fw, ok := r.byID[id]
	return fw, ok
}

func (r *Registry) Has(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IDs lists the ids in order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
