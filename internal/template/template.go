// Package template manages named, versioned prompt templates and compiles
// them into final prompt text. Templates carry {{variable}} placeholders; the
// compiler substitutes them from a typed context with an explicit required
// vs. defaulted declaration per variable. The registry is an injected object
// shared across requests and safe for concurrent use.
package template

import "time"

// Template is a parameterized prompt used to instruct the completion
// service. Usage counters are aggregates recomputed on every logged attempt
// for the template.
type Template struct {
	// ID is the stable identity used for lookup and telemetry.
	ID string `json:"id"`

	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Content is the template body with {{variable}} placeholders.
	Content string `json:"content"`

	// Variables lists the placeholder names the body references, in the
	// order they are documented.
	Variables []string `json:"variables"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UsageCount is the number of generation attempts logged against this
	// template.
	UsageCount int `json:"usage_count"`

	// SuccessRate is the fraction of logged attempts that produced a
	// schema-valid script.
	SuccessRate float64 `json:"success_rate"`
}
