package script

import (
	"fmt"
	"strings"
)

// StructuralError reports every shape violation found in a parsed response,
// in document order. The validator never stops at the first defect.
type StructuralError struct {
	Violations []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural validation failed: %s", strings.Join(e.Violations, "; "))
}

// ValidateStructure checks a parsed response object against the minimal
// shape the schema requires: format marker, speaker roster, non-empty beats,
// per-beat field types, and referential integrity between beat speakers and
// the declared roster. All violations are collected; the returned error is
// nil only when the list is empty.
func ValidateStructure(obj map[string]any) error {
	var violations []string

	if _, ok := obj["format"].(string); !ok {
		violations = append(violations, "missing or non-string format marker")
	}

	roster := map[string]bool{}
	speech, ok := obj["speechParams"].(map[string]any)
	if !ok {
		violations = append(violations, "missing speechParams object")
	} else {
		if _, ok := speech["provider"].(string); !ok {
			violations = append(violations, "speechParams missing provider")
		}
		speakers, ok := speech["speakers"].(map[string]any)
		if !ok || len(speakers) == 0 {
			violations = append(violations, "speechParams.speakers must be a non-empty object")
		} else {
			for id := range speakers {
				roster[id] = true
			}
		}
	}

	beats, ok := obj["beats"].([]any)
	if !ok || len(beats) == 0 {
		violations = append(violations, "beats must be a non-empty array")
	}

	for i, raw := range beats {
		beat, ok := raw.(map[string]any)
		if !ok {
			violations = append(violations, fmt.Sprintf("beats[%d] is not an object", i))
			continue
		}

		speaker, ok := beat["speaker"].(string)
		switch {
		case !ok || speaker == "":
			violations = append(violations, fmt.Sprintf("beats[%d] missing speaker", i))
		case !roster[speaker]:
			// Checked even when the roster itself failed above: an absent
			// roster declares no speakers, so every reference is dangling.
			violations = append(violations, fmt.Sprintf("beats[%d] speaker %q not declared in speechParams.speakers", i, speaker))
		}

		if _, ok := beat["text"].(string); !ok {
			violations = append(violations, fmt.Sprintf("beats[%d] missing text", i))
		}
		if v, present := beat["imagePrompt"]; present {
			if _, ok := v.(string); !ok {
				violations = append(violations, fmt.Sprintf("beats[%d] imagePrompt must be a string", i))
			}
		}
		if v, present := beat["lang"]; present {
			if _, ok := v.(string); !ok {
				violations = append(violations, fmt.Sprintf("beats[%d] lang must be a string", i))
			}
		}
		if v, present := beat["imageParams"]; present {
			if _, ok := v.(map[string]any); !ok {
				violations = append(violations, fmt.Sprintf("beats[%d] imageParams must be an object", i))
			}
		}
	}

	if len(violations) > 0 {
		return &StructuralError{Violations: violations}
	}
	return nil
}
