package template

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrTemplateNotFound = errors.New("template not found")

// Registry holds the process-wide template set. It is constructed explicitly
// and injected into the engine rather than living as a package-level
// singleton, so tests and tenants get isolated instances. All methods are
// safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*record
	defaultID string
}

type record struct {
	tmpl      Template
	successes int
}

// NewRegistry creates a registry seeded with the built-in templates. The
// writer persona selects which built-in is the default; unknown personas
// fall back to the director persona.
func NewRegistry(persona string) *Registry {
	r := &Registry{templates: make(map[string]*record)}
	for _, t := range builtinTemplates() {
		r.Register(t)
	}
	r.defaultID = defaultTemplateID(persona)
	return r
}

// Get returns a snapshot of the template with the given id.
func (r *Registry) Get(id string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return rec.tmpl, nil
}

// Default returns the template selected by the writer-persona configuration.
func (r *Registry) Default() Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[r.defaultID].tmpl
}

// Register inserts or overwrites a template by id, stamping UpdatedAt.
// Usage aggregates belong to the id and survive an overwrite. There is no
// deletion operation.
func (r *Registry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.templates[t.ID]; ok {
		t.CreatedAt = existing.tmpl.CreatedAt
		t.UsageCount = existing.tmpl.UsageCount
		t.SuccessRate = existing.tmpl.SuccessRate
		t.UpdatedAt = now
		existing.tmpl = t
		return
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	r.templates[t.ID] = &record{tmpl: t}
}

// List returns snapshots of all registered templates, sorted by id.
func (r *Registry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.templates))
	for _, rec := range r.templates {
		out = append(out, rec.tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordAttempt updates the usage aggregates for one logged generation
// attempt. Unknown ids are ignored so telemetry for unregistered templates
// does not panic the engine.
func (r *Registry) RecordAttempt(id string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.templates[id]
	if !ok {
		return
	}
	rec.tmpl.UsageCount++
	if success {
		rec.successes++
	}
	rec.tmpl.SuccessRate = float64(rec.successes) / float64(rec.tmpl.UsageCount)
	rec.tmpl.UpdatedAt = time.Now()
}
