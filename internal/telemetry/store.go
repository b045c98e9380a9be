// Package telemetry records every generation attempt in a bounded,
// process-wide performance store. Entries are append-only; the store keeps a
// ring buffer of recent entries while running aggregates (global and
// per-template) survive eviction.
package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds the ring buffer when no capacity is configured.
const DefaultCapacity = 1000

// Entry is an immutable record of one generation attempt.
type Entry struct {
	ID           string        `json:"id"`
	TemplateID   string        `json:"template_id"`
	PromptHash   string        `json:"prompt_hash"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
	Success      bool          `json:"success"`
	SchemaValid  bool          `json:"schema_valid"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Stats aggregates attempts for the whole store or a single template.
type Stats struct {
	Attempts    int           `json:"attempts"`
	Successes   int           `json:"successes"`
	SuccessRate float64       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
}

type counter struct {
	attempts     int
	successes    int
	totalLatency time.Duration
}

func (c *counter) stats() Stats {
	s := Stats{Attempts: c.attempts, Successes: c.successes}
	if c.attempts > 0 {
		s.SuccessRate = float64(c.successes) / float64(c.attempts)
		s.AvgLatency = c.totalLatency / time.Duration(c.attempts)
	}
	return s
}

// Store is the injected, concurrency-safe performance log. The optional
// record hook fires under the store lock, so appending an entry and updating
// the owning template's aggregates are atomic with respect to concurrent
// writes.
type Store struct {
	mu          sync.Mutex
	entries     []Entry
	next        int
	filled      bool
	global      counter
	perTemplate map[string]*counter
	onRecord    func(templateID string, success bool)
}

// NewStore creates a store with the given ring capacity; non-positive values
// select DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries:     make([]Entry, 0, capacity),
		perTemplate: make(map[string]*counter),
	}
}

// OnRecord installs a hook invoked for every appended entry, typically the
// template registry's RecordAttempt.
func (s *Store) OnRecord(fn func(templateID string, success bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRecord = fn
}

// Append records one attempt. A missing ID or timestamp is filled in. The
// stored entry is returned.
func (s *Store) Append(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) < cap(s.entries) {
		s.entries = append(s.entries, e)
	} else {
		s.entries[s.next] = e
		s.next = (s.next + 1) % cap(s.entries)
		s.filled = true
	}

	s.global.attempts++
	s.global.totalLatency += e.Latency
	if e.Success {
		s.global.successes++
	}

	c, ok := s.perTemplate[e.TemplateID]
	if !ok {
		c = &counter{}
		s.perTemplate[e.TemplateID] = c
	}
	c.attempts++
	c.totalLatency += e.Latency
	if e.Success {
		c.successes++
	}

	if s.onRecord != nil {
		s.onRecord(e.TemplateID, e.Success)
	}
	return e
}

// Entries returns the retained entries in chronological order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filled {
		out := make([]Entry, len(s.entries))
		copy(out, s.entries)
		return out
	}

	out := make([]Entry, 0, cap(s.entries))
	out = append(out, s.entries[s.next:]...)
	out = append(out, s.entries[:s.next]...)
	return out
}

// Stats returns global aggregates across every appended entry, including
// evicted ones.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global.stats()
}

// TemplateStats returns aggregates for one template id.
func (s *Store) TemplateStats(templateID string) (Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.perTemplate[templateID]
	if !ok {
		return Stats{}, false
	}
	return c.stats(), true
}

// TemplateIDs lists every template id that has at least one entry.
func (s *Store) TemplateIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.perTemplate))
	for id := range s.perTemplate {
		ids = append(ids, id)
	}
	return ids
}
