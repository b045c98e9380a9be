package template

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMissingContext indicates a required context field (story title or
// story text) was absent. This is a caller error and is never retried.
var ErrMissingContext = errors.New("missing required context")

// Style preferences accepted by the engine.
var Styles = []string{"dramatic", "comedic", "adventure", "romantic", "mystery"}

// Compiler defaults for optional context fields.
const (
	DefaultDurationSec = 20
	DefaultStyle       = "dramatic"
	DefaultLanguage    = "ja"
	DefaultBeatCount   = 5
)

// DefaultCaptionStyles is the CSS-like style list used when captions are
// requested without explicit styles.
var DefaultCaptionStyles = []string{
	"font-size: 48px",
	"color: white",
	"text-shadow: 2px 2px 4px rgba(0,0,0,0.8)",
}

// Scene is an externally fixed scene heading that constrains beat count and
// order when present.
type Scene struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Context carries the per-request variables substituted into a template.
// StoryTitle and StoryText are required; every other field falls back to a
// documented default.
type Context struct {
	StoryTitle        string
	StoryText         string
	TargetDurationSec int
	Style             string
	Language          string
	BeatCount         int
	EnableCaptions    bool
	CaptionStyles     []string
	FixedScenes       []Scene
	ExemplarNotes     []string
}

// Compiled is the result of filling a template from a context.
type Compiled struct {
	Prompt     string
	TemplateID string
	Context    Context
	CompiledAt time.Time

	// EstimatedTokens is a coarse len/4 heuristic, advisory only.
	EstimatedTokens int

	// PromptHash is a stable 16-hex-char digest of the prompt text.
	PromptHash string
}

// NormalizeStyle maps a style preference onto the fixed enumeration,
// defaulting unknown or empty values to "dramatic".
func NormalizeStyle(style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	for _, s := range Styles {
		if style == s {
			return s
		}
	}
	return DefaultStyle
}

// Compile fills every {{name}} placeholder of the template with the
// stringified context value. Placeholders the compiler does not know are
// left untouched; that is an authoring defect, not a runtime error.
func Compile(t Template, ctx Context) (*Compiled, error) {
	var missing []string
	if strings.TrimSpace(ctx.StoryTitle) == "" {
		missing = append(missing, "story_title")
	}
	if strings.TrimSpace(ctx.StoryText) == "" {
		missing = append(missing, "story_text")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingContext, strings.Join(missing, ", "))
	}

	duration := ctx.TargetDurationSec
	if duration <= 0 {
		duration = DefaultDurationSec
	}
	language := ctx.Language
	if language == "" {
		language = DefaultLanguage
	}
	beats := ctx.BeatCount
	if beats <= 0 {
		beats = DefaultBeatCount
	}
	if len(ctx.FixedScenes) > 0 {
		beats = len(ctx.FixedScenes)
	}

	values := map[string]string{
		"story_title":          ctx.StoryTitle,
		"story_text":           ctx.StoryText,
		"target_duration":      strconv.Itoa(duration),
		"style":                NormalizeStyle(ctx.Style),
		"language":             language,
		"beat_count":           strconv.Itoa(beats),
		"caption_instructions": captionFragment(ctx, language),
		"scene_constraints":    sceneFragment(ctx.FixedScenes),
		"exemplar_notes":       exemplarFragment(ctx.ExemplarNotes),
	}

	prompt := t.Content
	for name, value := range values {
		prompt = strings.ReplaceAll(prompt, "{{"+name+"}}", value)
	}

	sum := sha256.Sum256([]byte(prompt))

	return &Compiled{
		Prompt:          prompt,
		TemplateID:      t.ID,
		Context:         ctx,
		CompiledAt:      time.Now(),
		EstimatedTokens: len(prompt) / 4,
		PromptHash:      hex.EncodeToString(sum[:8]),
	}, nil
}

// captionFragment emits caption instructions only when captions were
// requested.
func captionFragment(ctx Context, language string) string {
	if !ctx.EnableCaptions {
		return ""
	}

	styles := ctx.CaptionStyles
	if len(styles) == 0 {
		styles = DefaultCaptionStyles
	}

	var b strings.Builder
	b.WriteString("# Captions\n\n")
	b.WriteString(fmt.Sprintf("Include a captionParams object with lang %q and these styles:\n", language))
	for _, s := range styles {
		b.WriteString(fmt.Sprintf("- %s\n", s))
	}
	b.WriteString("\n")
	return b.String()
}

// sceneFragment enumerates externally fixed scene headings. When present
// they pin both beat count and order.
func sceneFragment(scenes []Scene) string {
	if len(scenes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Fixed scenes\n\n")
	b.WriteString("The script must follow these scene headings, one beat per scene, in this order:\n")
	for _, s := range scenes {
		b.WriteString(fmt.Sprintf("scene %d: %s\n", s.Number, s.Title))
	}
	b.WriteString("\n")
	return b.String()
}

// exemplarFragment embeds excerpts of previously validated scripts as
// few-shot guidance.
func exemplarFragment(notes []string) string {
	if len(notes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Reference excerpts\n\n")
	b.WriteString("Excerpts from previous well-received scripts, for tone only:\n")
	for _, n := range notes {
		b.WriteString(fmt.Sprintf("- %s\n", n))
	}
	b.WriteString("\n")
	return b.String()
}
