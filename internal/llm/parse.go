package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseObject decodes a JSON object of field values. When content is not a
// bare object, the first balanced top-level {...} span inside it is used.
// Non-scalar and blank values are dropped; numbers and booleans become
// strings.
func ParseObject(content string) (map[string]string, error) {
	raw, err := decodeObject(content)
	if err != nil {
		return nil, err
	}

	// Some services wrap the fields: {"success": true, "data": {...}}.
	if inner, ok := raw["data"].(map[string]any); ok {
		raw = inner
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if s, ok := scalarString(v); ok {
			if s = strings.TrimSpace(s); s != "" {
				out[key] = s
			}
		}
	}
	return out, nil
}

func decodeObject(content string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err == nil && raw != nil {
		return raw, nil
	}

	span, ok := FirstObjectSpan(content)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in content", ErrUnparseable)
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return raw, nil
}

// FirstObjectSpan returns the first balanced {...} span, ignoring braces
// inside JSON strings.
func FirstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
