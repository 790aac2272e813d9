package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnsuccessful = errors.New("ai response was not successful")
	ErrParse        = errors.New("failed to parse AI response")
	ErrIncomplete   = errors.New("ai response is missing required fields")
)

// ExtractJSON strips markdown fences and any prose around the outermost
// object in text. Text without braces is returned with only fences removed.
func ExtractJSON(text string) string {
	text = strings.TrimPrefix(text, "```json")
	text = trimFenceEdges(text)

	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			return text[start : end+1]
		}
	}
	return text
}

func trimFenceEdges(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimLeft(s, " \t\r\n")

	trimmed := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(trimmed, "```") {
		s = strings.TrimRight(strings.TrimSuffix(trimmed, "```"), " \t\r\n")
	}
	return s
}

// ParseResponse decodes the JSON embedded in a successful response. It
// returns nil and an error when the call failed, carried no text, or the
// text holds no valid JSON.
func ParseResponse(resp Response) (any, error) {
	if !resp.Success || resp.Data == "" {
		return nil, ErrUnsuccessful
	}

	var out any
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Data)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return out, nil
}

// ValidateResponse reports whether every dotted path in fields resolves in v.
// Path segments index objects by key and arrays by position; a present key
// holding null still counts as present.
func ValidateResponse(v any, fields ...string) bool {
	if _, ok := v.(map[string]any); !ok {
		if _, ok := v.([]any); !ok {
			return false
		}
	}

	for _, field := range fields {
		if !hasPath(v, strings.Split(field, ".")) {
			return false
		}
	}
	return true
}

func hasPath(cur any, keys []string) bool {
	for _, key := range keys {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return false
			}
			cur = node[i]
		default:
			return false
		}
	}
	return true
}

// ParseRequired parses resp and checks the required dotted paths. The parsed
// value is returned untouched, so keys and value types are whatever the model
// sent.
func ParseRequired(resp Response, required ...string) (any, error) {
	raw, err := ParseResponse(resp)
	if err != nil {
		return nil, err
	}
	if !ValidateResponse(raw, required...) {
		return nil, ErrIncomplete
	}
	return raw, nil
}
