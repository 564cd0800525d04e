package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseModelJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding prose.
func ParseModelJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty model output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	var lastErr error
	for _, candidate := range candidates {
		var doc any
		if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
			lastErr = err
			continue
		}
		// Re-marshal so callers get normalized JSON regardless of fences
		// or prose in the raw output.
		normalized, err := json.Marshal(doc)
		if err != nil {
			lastErr = err
			continue
		}
		return normalized, nil
	}
	return nil, fmt.Errorf("no parseable JSON in model output: %w", lastErr)
}

// stripCodeFences removes a leading/trailing markdown code fence, with or
// without a language tag.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		// Drop a language tag like "json" on the fence line.
		first := strings.TrimSpace(trimmed[:i])
		if first == "" || !strings.ContainsAny(first, "{[") {
			trimmed = trimmed[i+1:]
		}
	}
	if end := strings.LastIndex(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}

// extractJSONCandidate pulls the outermost JSON object or array out of
// surrounding prose.
func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)

	objStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	var start int
	var closeChar string
	switch {
	case objStart >= 0 && (arrayStart < 0 || objStart < arrayStart):
		start = objStart
		closeChar = "}"
	case arrayStart >= 0:
		start = arrayStart
		closeChar = "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}
