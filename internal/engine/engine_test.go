package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seika-studio/scriptforge/internal/llm"
	"github.com/seika-studio/scriptforge/internal/telemetry"
	"github.com/seika-studio/scriptforge/internal/template"
)

const validFiveBeatResponse = `{
	"format": "scriptforge/1",
	"title": "Cafe Dream",
	"lang": "ja",
	"speechParams": {
		"provider": "openai",
		"speakers": {
			"Narrator": {"voiceId": "alloy", "displayName": {"en": "Narrator"}},
			"Mika": {"voiceId": "nova", "displayName": {"en": "Mika"}}
		}
	},
	"beats": [
		{"speaker": "Narrator", "text": "beat one", "imagePrompt": "a quiet cafe at dawn"},
		{"speaker": "Mika", "text": "beat two"},
		{"speaker": "Narrator", "text": "beat three"},
		{"speaker": "Mika", "text": "beat four"},
		{"speaker": "Narrator", "text": "beat five"}
	]
}`

func testStory() Story {
	return Story{
		ID:    "story-1",
		Title: "Cafe Dream",
		Text:  "A barista discovers her espresso machine brews memories.",
	}
}

func newTestEngine(client llm.Client) (*Engine, *telemetry.Store, *template.Registry) {
	registry := template.NewRegistry(template.PersonaDirector)
	store := telemetry.NewStore(100)
	e := New(registry, store, client, nil)
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e, store, registry
}

func TestGenerateScript_Success(t *testing.T) {
	mock := llm.NewMock(validFiveBeatResponse)
	e, store, registry := newTestEngine(mock)

	opts := DefaultOptions()
	opts.BeatCount = 5
	opts.Style = "dramatic"
	opts.Language = "ja"

	res, err := e.GenerateScript(context.Background(), testStory(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Script.Beats) != 5 {
		t.Fatalf("expected 5 beats, got %d", len(res.Script.Beats))
	}
	// Beats stay in narrative order.
	if res.Script.Beats[0].Text != "beat one" || res.Script.Beats[4].Text != "beat five" {
		t.Errorf("beat order changed: %+v", res.Script.Beats)
	}
	if res.Metadata.Retries != 0 {
		t.Errorf("expected 0 retries consumed, got %d", res.Metadata.Retries)
	}
	if res.Metadata.TemplateID != template.DirectorTemplateID {
		t.Errorf("unexpected template id %q", res.Metadata.TemplateID)
	}
	if res.Metadata.PromptHash == "" {
		t.Error("metadata missing prompt hash")
	}
	if mock.Calls() != 1 {
		t.Errorf("expected 1 invocation, got %d", mock.Calls())
	}

	// One successful telemetry entry, aggregated onto the template.
	entries := store.Entries()
	if len(entries) != 1 || !entries[0].Success || !entries[0].SchemaValid {
		t.Errorf("unexpected telemetry entries: %+v", entries)
	}
	tmpl, _ := registry.Get(template.DirectorTemplateID)
	if tmpl.UsageCount != 1 || tmpl.SuccessRate != 1.0 {
		t.Errorf("template aggregates not updated: count=%d rate=%f", tmpl.UsageCount, tmpl.SuccessRate)
	}
}

func TestGenerateScript_SendsTwoMessagePrompt(t *testing.T) {
	mock := llm.NewMock(validFiveBeatResponse)
	e, _, _ := newTestEngine(mock)

	if _, err := e.GenerateScript(context.Background(), testStory(), DefaultOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := mock.LastRequest()
	if req.System == "" {
		t.Error("request missing system message")
	}
	if req.Prompt == "" {
		t.Error("request missing compiled prompt")
	}
}

func TestGenerateScript_RetriesExhausted(t *testing.T) {
	mock := llm.NewMockWithError(llm.ErrTransport)
	e, store, _ := newTestEngine(mock)

	var backoffs []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		backoffs = append(backoffs, d)
		return nil
	}

	opts := DefaultOptions()
	opts.MaxRetries = 2

	res, err := e.GenerateScript(context.Background(), testStory(), opts)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, llm.ErrTransport) {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
	if res.Success {
		t.Error("expected failure result")
	}
	if res.ErrorMessage == "" {
		t.Error("failure result missing error message")
	}
	if res.Metadata.Retries != 2 {
		t.Errorf("expected 2 retries consumed, got %d", res.Metadata.Retries)
	}

	// maxRetries+1 total attempts.
	if mock.Calls() != 3 {
		t.Errorf("expected 3 invocation attempts, got %d", mock.Calls())
	}

	// Exponential backoff: 2^1 then 2^2 seconds.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(backoffs) != len(want) {
		t.Fatalf("expected %d backoff sleeps, got %d", len(want), len(backoffs))
	}
	for i := range want {
		if backoffs[i] != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, backoffs[i], want[i])
		}
	}

	// Exactly one failed telemetry entry for the whole loop.
	entries := store.Entries()
	if len(entries) != 1 || entries[0].Success {
		t.Errorf("unexpected telemetry entries: %+v", entries)
	}
}

func TestGenerateScript_RecoversAfterInvalidResponse(t *testing.T) {
	mock := &llm.Mock{
		Sequence: []llm.MockResult{
			{Text: "not json at all"},
			{Text: validFiveBeatResponse},
		},
	}
	e, _, _ := newTestEngine(mock)

	res, err := e.GenerateScript(context.Background(), testStory(), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success after retry")
	}
	if res.Metadata.Retries != 1 {
		t.Errorf("expected 1 retry consumed, got %d", res.Metadata.Retries)
	}
	if mock.Calls() != 2 {
		t.Errorf("expected 2 invocations, got %d", mock.Calls())
	}
}

func TestGenerateScript_EmptyResponseIsRetryable(t *testing.T) {
	mock := &llm.Mock{
		Sequence: []llm.MockResult{
			{Err: llm.ErrEmptyResponse},
			{Text: validFiveBeatResponse},
		},
	}
	e, _, _ := newTestEngine(mock)

	res, err := e.GenerateScript(context.Background(), testStory(), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Metadata.Retries != 1 {
		t.Errorf("expected recovery after empty response, got %+v", res)
	}
}

func TestGenerateScript_TemplateNotFoundFailsFast(t *testing.T) {
	mock := llm.NewMock(validFiveBeatResponse)
	e, store, _ := newTestEngine(mock)

	opts := DefaultOptions()
	opts.TemplateID = "no-such-template"

	_, err := e.GenerateScript(context.Background(), testStory(), opts)
	if !errors.Is(err, template.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("invoker called despite config error: %d calls", mock.Calls())
	}
	if len(store.Entries()) != 0 {
		t.Error("telemetry entry written for config error")
	}
}

func TestGenerateScript_MissingContextFailsFast(t *testing.T) {
	mock := llm.NewMock(validFiveBeatResponse)
	e, _, _ := newTestEngine(mock)

	_, err := e.GenerateScript(context.Background(), Story{Title: "no text"}, DefaultOptions())
	if !errors.Is(err, template.ErrMissingContext) {
		t.Fatalf("expected ErrMissingContext, got %v", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("invoker called despite caller error: %d calls", mock.Calls())
	}
}

func TestGenerateScript_CancelledDuringBackoff(t *testing.T) {
	mock := llm.NewMockWithError(llm.ErrTransport)
	e, _, _ := newTestEngine(mock)
	e.sleep = sleepContext // real context-aware sleep

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.MaxRetries = 2

	_, err := e.GenerateScript(ctx, testStory(), opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	// The loop must stop after the first attempt once the context is gone.
	if mock.Calls() != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", mock.Calls())
	}
}

func TestGenerateWithFallback_ServiceSucceeds(t *testing.T) {
	mock := llm.NewMock(validFiveBeatResponse)
	e, _, _ := newTestEngine(mock)

	opts := DefaultOptions()
	opts.BeatCount = 5

	s, fromService := e.GenerateWithFallback(context.Background(), testStory(), opts)
	if !fromService {
		t.Fatal("expected generatedByService=true")
	}
	if len(s.Beats) != 5 {
		t.Errorf("expected 5 beats, got %d", len(s.Beats))
	}
}

func TestGenerateWithFallback_ServiceAlwaysFails(t *testing.T) {
	mock := llm.NewMockWithError(llm.ErrTransport)
	e, store, _ := newTestEngine(mock)

	opts := DefaultOptions()
	opts.BeatCount = 5
	opts.MaxRetries = 2

	s, fromService := e.GenerateWithFallback(context.Background(), testStory(), opts)
	if fromService {
		t.Fatal("expected generatedByService=false")
	}
	if s == nil {
		t.Fatal("fallback returned nil script")
	}
	if len(s.Beats) != 5 {
		t.Errorf("expected 5 fallback beats, got %d", len(s.Beats))
	}
	if mock.Calls() != 3 {
		t.Errorf("expected maxRetries+1 attempts, got %d", mock.Calls())
	}
	entries := store.Entries()
	if len(entries) != 1 || entries[0].Success {
		t.Errorf("expected exactly one failed telemetry entry, got %+v", entries)
	}
	// Roster only covers speakers actually used.
	for id := range s.SpeechParams.Speakers {
		found := false
		for _, b := range s.Beats {
			if b.Speaker == id {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("roster declares unused speaker %q", id)
		}
	}
}

func TestGenerateWithFallback_ConfigErrorStillFallsBack(t *testing.T) {
	mock := llm.NewMock(validFiveBeatResponse)
	e, _, _ := newTestEngine(mock)

	opts := DefaultOptions()
	opts.TemplateID = "no-such-template"

	s, fromService := e.GenerateWithFallback(context.Background(), testStory(), opts)
	if fromService {
		t.Error("expected generatedByService=false for config error")
	}
	if s == nil {
		t.Fatal("expected fallback script despite config error")
	}
}

func TestGenerateScript_ZeroRetriesHonored(t *testing.T) {
	mock := llm.NewMockWithError(llm.ErrTransport)
	e, _, _ := newTestEngine(mock)

	opts := DefaultOptions()
	opts.MaxRetries = 0

	_, err := e.GenerateScript(context.Background(), testStory(), opts)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("expected single attempt with zero retries, got %d", mock.Calls())
	}
}
