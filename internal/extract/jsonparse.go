package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a model response contains no parseable JSON
// object, even after cleanup and the per-key fallback.
var ErrNoJSON = errors.New("no JSON object found in model response")

var (
	fenceRe         = regexp.MustCompile("```(?:json)?\\s*")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSONObject locates and parses the first well-formed JSON object in
// a model response. Models frequently wrap JSON in prose or markdown code
// fences, add trailing commas, or truncate output, so parsing is layered:
//
//  1. strip code fences and trailing commas, scan for the first balanced
//     {...} block and unmarshal it;
//  2. on failure, fall back to per-key regex extraction against the
//     expected keys, salvaging whatever fields are individually intact.
func extractJSONObject(response string, expectedKeys []string) (map[string]any, error) {
	cleaned := fenceRe.ReplaceAllString(response, "")
	cleaned = trailingCommaRe.ReplaceAllString(cleaned, "$1")

	if candidate := firstBalancedObject(cleaned); candidate != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed, nil
		}
	}

	if parsed := regexFallback(response, expectedKeys); len(parsed) > 0 {
		return parsed, nil
	}

	return nil, ErrNoJSON
}

// firstBalancedObject returns the first {...} block with balanced braces,
// tracking string literals so braces inside values don't break the scan.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return s[start : i+1]
			}
		}
	}
	return ""
}

// regexFallback extracts each expected key individually from broken JSON.
// Handles string, number, null, boolean and array values.
func regexFallback(raw string, expectedKeys []string) map[string]any {
	result := make(map[string]any)
	for _, key := range expectedKeys {
		pattern := regexp.MustCompile(
			`"` + regexp.QuoteMeta(key) + `"\s*:\s*("(?:[^"\\]|\\.)*"|-?\d+(?:\.\d+)?|null|true|false|\[[^\]]*\])`)
		m := pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(m[1]), &value); err != nil {
			value = strings.Trim(m[1], `"`)
		}
		result[key] = value
	}
	return result
}
