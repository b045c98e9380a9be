// Package engine drives script generation end to end: it compiles a prompt
// from the template registry, invokes the completion client inside a bounded
// retry loop with exponential backoff, validates each response in two
// phases, records every terminal outcome in the performance store, and falls
// back to a deterministic offline generator when the service cannot produce
// a valid script.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seika-studio/scriptforge/internal/exemplar"
	"github.com/seika-studio/scriptforge/internal/llm"
	"github.com/seika-studio/scriptforge/internal/script"
	"github.com/seika-studio/scriptforge/internal/telemetry"
	"github.com/seika-studio/scriptforge/internal/template"
)

// ErrRetriesExhausted wraps the last underlying error once every attempt has
// failed.
var ErrRetriesExhausted = errors.New("generation retries exhausted")

// DefaultMaxRetries is the number of additional attempts after the first.
const DefaultMaxRetries = 2

// MaxBeatCount bounds the requested beat count.
const MaxBeatCount = 20

const systemPrompt = "You are a professional video script writer. " +
	"You always respond with a single valid JSON object and nothing else: no markdown, no commentary."

// Story is the caller-supplied input.
type Story struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Options tunes one generation call. The zero value selects every
// documented default except MaxRetries, where a negative value selects the
// configured default and zero disables retries.
type Options struct {
	TemplateID        string
	TargetDurationSec int
	Style             string
	Language          string
	BeatCount         int
	MaxRetries        int
	EnableCaptions    bool
	CaptionStyles     []string
	FixedScenes       []template.Scene
}

// DefaultOptions returns the documented defaults for a generation call.
func DefaultOptions() Options {
	return Options{
		TargetDurationSec: template.DefaultDurationSec,
		Style:             template.DefaultStyle,
		Language:          template.DefaultLanguage,
		BeatCount:         template.DefaultBeatCount,
		MaxRetries:        -1,
	}
}

// Metadata mirrors the telemetry entry for the caller.
type Metadata struct {
	TemplateID   string        `json:"template_id"`
	PromptHash   string        `json:"prompt_hash"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
	Model        string        `json:"model,omitempty"`

	// Retries is the number of retries actually consumed (attempts - 1).
	Retries int `json:"retries"`
}

// Result is the outcome of one generation call.
type Result struct {
	Success      bool           `json:"success"`
	Script       *script.Script `json:"script,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     Metadata       `json:"metadata"`
}

// Engine coordinates the registry, the completion client, the validator and
// the performance store. Construct one per process (or per tenant) and share
// it across requests; all dependencies are concurrency-safe.
type Engine struct {
	registry  *template.Registry
	store     *telemetry.Store
	client    llm.Client
	logger    *zap.Logger
	retriever *exemplar.Retriever

	maxRetries   int
	exemplarTopK int

	// sleep is swapped out in tests so backoff does not slow the suite.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an engine. The store's record hook is pointed at the registry so
// appending a telemetry entry and updating the owning template's aggregates
// happen atomically.
func New(registry *template.Registry, store *telemetry.Store, client llm.Client, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	store.OnRecord(registry.RecordAttempt)

	return &Engine{
		registry:     registry,
		store:        store,
		client:       client,
		logger:       logger,
		maxRetries:   DefaultMaxRetries,
		exemplarTopK: 3,
		sleep:        sleepContext,
	}
}

// SetMaxRetries changes the default retry budget used when Options leaves
// MaxRetries negative.
func (e *Engine) SetMaxRetries(n int) {
	if n >= 0 {
		e.maxRetries = n
	}
}

// SetRetriever enables few-shot exemplar enrichment. A nil retriever leaves
// generation unchanged.
func (e *Engine) SetRetriever(r *exemplar.Retriever) {
	e.retriever = r
}

// GenerateScript runs the full invoke/validate loop and returns a validated
// script or an exhausted-retries failure. Template and context errors fail
// fast without consuming a retry or writing a telemetry entry.
func (e *Engine) GenerateScript(ctx context.Context, story Story, opts Options) (*Result, error) {
	tmpl, err := e.resolveTemplate(opts.TemplateID)
	if err != nil {
		return nil, err
	}

	tctx := template.Context{
		StoryTitle:        story.Title,
		StoryText:         story.Text,
		TargetDurationSec: opts.TargetDurationSec,
		Style:             opts.Style,
		Language:          opts.Language,
		BeatCount:         clampBeatCount(opts.BeatCount),
		EnableCaptions:    opts.EnableCaptions,
		CaptionStyles:     opts.CaptionStyles,
		FixedScenes:       opts.FixedScenes,
	}

	if e.retriever != nil {
		notes, err := e.retriever.Retrieve(ctx, story.Text, e.exemplarTopK)
		if err != nil {
			e.logger.Warn("exemplar retrieval failed, continuing without",
				zap.String("story_id", story.ID), zap.Error(err))
		} else {
			tctx.ExemplarNotes = notes
		}
	}

	compiled, err := template.Compile(tmpl, tctx)
	if err != nil {
		return nil, err
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = e.maxRetries
	}

	var (
		lastErr     error
		lastResp    *llm.Response
		lastLatency time.Duration
		attempts    int
	)

	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		attempts = attempt

		attemptStart := time.Now()
		resp, err := e.client.Complete(ctx, llm.Request{
			System: systemPrompt,
			Prompt: compiled.Prompt,
		})
		lastLatency = time.Since(attemptStart)

		if err != nil {
			lastErr = err
		} else {
			lastResp = resp
			s, err := script.Validate(resp.Text)
			if err != nil {
				lastErr = err
			} else {
				return e.succeed(ctx, story, compiled, resp, s, lastLatency, attempt), nil
			}
		}

		e.logger.Warn("generation attempt failed",
			zap.String("template_id", compiled.TemplateID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		if attempt <= maxRetries {
			if err := e.sleep(ctx, backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	meta := Metadata{
		TemplateID:  compiled.TemplateID,
		PromptHash:  compiled.PromptHash,
		InputTokens: compiled.EstimatedTokens,
		Latency:     lastLatency,
		Retries:     attempts - 1,
	}
	if lastResp != nil {
		meta.InputTokens = lastResp.PromptTokens
		meta.OutputTokens = lastResp.OutputTokens
		meta.Model = lastResp.Model
	}

	e.store.Append(telemetry.Entry{
		TemplateID:   meta.TemplateID,
		PromptHash:   meta.PromptHash,
		InputTokens:  meta.InputTokens,
		OutputTokens: meta.OutputTokens,
		Latency:      meta.Latency,
		Success:      false,
		SchemaValid:  false,
		ErrorMessage: lastErr.Error(),
	})

	return &Result{
		Success:      false,
		ErrorMessage: lastErr.Error(),
		Metadata:     meta,
	}, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

// GenerateWithFallback calls GenerateScript and, on any failure, returns the
// deterministic offline script instead. The boolean reports whether the
// completion service produced the result. This method never fails.
func (e *Engine) GenerateWithFallback(ctx context.Context, story Story, opts Options) (*script.Script, bool) {
	res, err := e.GenerateScript(ctx, story, opts)
	if err == nil && res != nil && res.Success {
		return res.Script, true
	}

	e.logger.Warn("completion service unavailable, using fallback generator",
		zap.String("story_id", story.ID),
		zap.Error(err))
	return Fallback(story, opts), false
}

func (e *Engine) succeed(ctx context.Context, story Story, compiled *template.Compiled, resp *llm.Response, s *script.Script, latency time.Duration, attempt int) *Result {
	e.store.Append(telemetry.Entry{
		TemplateID:   compiled.TemplateID,
		PromptHash:   compiled.PromptHash,
		InputTokens:  resp.PromptTokens,
		OutputTokens: resp.OutputTokens,
		Latency:      latency,
		Success:      true,
		SchemaValid:  true,
	})

	if e.retriever != nil && story.ID != "" && len(s.Beats) > 0 {
		// Best effort: index the opening beat as a future few-shot exemplar.
		if err := e.retriever.Index(ctx, story.ID, story.Text, s.Beats[0].Text); err != nil {
			e.logger.Warn("exemplar indexing failed",
				zap.String("story_id", story.ID), zap.Error(err))
		}
	}

	return &Result{
		Success: true,
		Script:  s,
		Metadata: Metadata{
			TemplateID:   compiled.TemplateID,
			PromptHash:   compiled.PromptHash,
			InputTokens:  resp.PromptTokens,
			OutputTokens: resp.OutputTokens,
			Latency:      latency,
			Model:        resp.Model,
			Retries:      attempt - 1,
		},
	}
}

func (e *Engine) resolveTemplate(id string) (template.Template, error) {
	if id == "" {
		return e.registry.Default(), nil
	}
	tmpl, err := e.registry.Get(id)
	if err != nil {
		return template.Template{}, fmt.Errorf("template %q: %w", id, err)
	}
	return tmpl, nil
}

// backoff returns 2^attempt seconds, attempt starting at 1.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func clampBeatCount(n int) int {
	switch {
	case n <= 0:
		return template.DefaultBeatCount
	case n > MaxBeatCount:
		return MaxBeatCount
	default:
		return n
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
