package service

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// decodeModelJSON extracts a JSON object from a model response and decodes it
// into T. Models wrap JSON in markdown fences or prose often enough that a
// direct parse is not sufficient; three strategies are tried in order:
// direct parse, fenced code block, first brace-delimited object. Returns
// ok=false when none yields valid JSON.
func decodeModelJSON[T any](response string) (T, bool) {
	var out T

	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return out, false
	}

	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, true
	}

	if m := fencedJSONPattern.FindStringSubmatch(trimmed); m != nil {
		var fenced T
		if err := json.Unmarshal([]byte(m[1]), &fenced); err == nil {
			return fenced, true
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		var bare T
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &bare); err == nil {
			return bare, true
		}
	}

	var zero T
	return zero, false
}
