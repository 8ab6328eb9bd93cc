package worker

import (
	"fmt"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

// Registry is an immutable name -> Worker map. It is built once and is safe
// for concurrent reads.
type Registry struct {
	order   []string
	workers map[string]Worker
}

// NewRegistry creates a registry. Names must be unique and non-empty.
func NewRegistry(workers ...Worker) (*Registry, error) {
	r := &Registry{workers: make(map[string]Worker, len(workers))}
	for _, w := range workers {
		if w == nil {
			return nil, fmt.Errorf("worker is nil")
		}
		name := w.Name()
		if name == "" {
			return nil, fmt.Errorf("worker name is required")
		}
		if _, exists := r.workers[name]; exists {
			return nil, fmt.Errorf("worker already registered: %s", name)
		}
		r.workers[name] = w
		r.order = append(r.order, name)
	}
	return r, nil
}

// Get returns the worker registered under name.
func (r *Registry) Get(name string) (Worker, error) {
	w, ok := r.workers[name]
	if !ok {
		return nil, &domain.UnknownWorkerError{Name: name, Known: r.Names()}
	}
	return w, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.workers[name]
	return ok
}

// Names returns worker names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors returns worker descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		w := r.workers[name]
		d := Descriptor{Name: name, Description: w.Description()}
		if tw, ok := w.(interface{ ToolNames() []string }); ok {
			d.Tools = tw.ToolNames()
		}
		out = append(out, d)
	}
	return out
}
