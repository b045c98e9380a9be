package script

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoValidJSON indicates the raw completion text contained no parseable
// top-level JSON object.
var ErrNoValidJSON = errors.New("no valid JSON object in response")

// ExtractObject parses the raw completion text into a generic JSON object.
// Markdown code fences are stripped first. If the whole text does not parse,
// the first top-level {...} span is tried instead, so prose-wrapped responses
// still extract.
func ExtractObject(raw string) (map[string]any, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}

	span, ok := firstObjectSpan(text)
	if !ok {
		return nil, ErrNoValidJSON
	}
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, ErrNoValidJSON
	}
	return obj, nil
}

// stripCodeFence removes a single wrapping ```lang ... ``` fence if present.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if idx := strings.Index(body, "\n"); idx >= 0 {
		// Drop the info string ("json", "JSON", ...) on the opening line.
		body = body[idx+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// firstObjectSpan returns the substring from the first '{' to its matching
// closing brace, tracking string literals so braces inside values do not
// unbalance the scan.
func firstObjectSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
