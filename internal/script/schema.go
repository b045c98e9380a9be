package script

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaError reports strict-schema violations for a structurally sound
// response object.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Violations, "; "))
}

// Coerce re-validates a parsed response against the full strict schema and
// produces the canonical typed Script. Defaults are coerced on the way
// through: empty provider becomes "openai", an empty beat speaker becomes
// "Presenter", and caption language defaults to "ja". Callers run
// ValidateStructure first; Coerce still verifies full type correctness so it
// stands alone for synthetic inputs.
func Coerce(obj map[string]any) (*Script, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, &SchemaError{Violations: []string{fmt.Sprintf("response not serializable: %v", err)}}
	}

	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &SchemaError{Violations: []string{fmt.Sprintf("response does not match script schema: %v", err)}}
	}

	var violations []string

	if s.Format != FormatTag {
		violations = append(violations, fmt.Sprintf("format must be the literal %q, got %q", FormatTag, s.Format))
	}

	if s.SpeechParams.Provider == "" {
		s.SpeechParams.Provider = DefaultProvider
	}
	if !validProvider(s.SpeechParams.Provider) {
		violations = append(violations, fmt.Sprintf("speechParams.provider %q is not one of %s", s.SpeechParams.Provider, strings.Join(Providers, ", ")))
	}
	if len(s.SpeechParams.Speakers) == 0 {
		violations = append(violations, "speechParams.speakers must declare at least one speaker")
	}
	for id, sp := range s.SpeechParams.Speakers {
		if sp.VoiceID == "" {
			violations = append(violations, fmt.Sprintf("speaker %q missing voiceId", id))
		}
	}

	if len(s.Beats) == 0 {
		violations = append(violations, "beats must be a non-empty array")
	}
	for i := range s.Beats {
		b := &s.Beats[i]
		if b.Speaker == "" {
			b.Speaker = DefaultSpeaker
		}
		if _, ok := s.SpeechParams.Speakers[b.Speaker]; !ok {
			violations = append(violations, fmt.Sprintf("beats[%d] speaker %q not declared in speechParams.speakers", i, b.Speaker))
		}
		if b.Text == "" {
			violations = append(violations, fmt.Sprintf("beats[%d] text must be non-empty", i))
		}
		if b.Duration < 0 {
			violations = append(violations, fmt.Sprintf("beats[%d] duration must not be negative", i))
		}
	}

	if s.ImageParams != nil && s.ImageParams.CanvasSize != nil {
		cs := s.ImageParams.CanvasSize
		if cs.Width <= 0 || cs.Height <= 0 {
			violations = append(violations, "imageParams.canvasSize width and height must be positive")
		}
	}

	if s.AudioParams != nil {
		if s.AudioParams.BGMVolume < 0 || s.AudioParams.BGMVolume > 1 {
			violations = append(violations, "audioParams.bgmVolume must be within [0, 1]")
		}
		if s.AudioParams.AudioVolume < 0 || s.AudioParams.AudioVolume > 1 {
			violations = append(violations, "audioParams.audioVolume must be within [0, 1]")
		}
	}

	if s.CaptionParams != nil && s.CaptionParams.Lang == "" {
		s.CaptionParams.Lang = DefaultCaptionLang
	}

	if len(violations) > 0 {
		return nil, &SchemaError{Violations: violations}
	}
	return &s, nil
}

// Validate runs both validation phases on a raw completion text and returns
// the coerced script. Structural validation runs first and short-circuits;
// schema violations are only reported for structurally sound payloads.
func Validate(raw string) (*Script, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateStructure(obj); err != nil {
		return nil, err
	}
	return Coerce(obj)
}
