package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON recovers a JSON object from a provider reply. Providers are
// asked for bare JSON but sometimes wrap it in markdown fences or prose.
// Recovery order: direct parse, fenced block, first brace-delimited span.
func ExtractJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty response body", ErrMalformedResponse)
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	if fenced := extractFenced(raw); fenced != "" {
		if err := json.Unmarshal([]byte(fenced), v); err == nil {
			return nil
		}
	}

	if span := extractBraceSpan(raw); span != "" {
		if err := json.Unmarshal([]byte(span), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: no parseable JSON object in response", ErrMalformedResponse)
}

// extractFenced returns the contents of the first ```json or ``` fenced
// block, or "" when none closes properly.
func extractFenced(raw string) string {
	start := strings.Index(raw, "```")
	if start == -1 {
		return ""
	}
	rest := raw[start+3:]
	// Skip an optional language tag on the opening fence line
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "json" || firstLine == "" {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// extractBraceSpan returns the span from the first '{' to the last '}'.
func extractBraceSpan(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
