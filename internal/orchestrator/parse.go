package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

var jsonFence = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*(\{.*\})\s*` + "```")

// jsonTypes is the set of prompt types whose output is a JSON object; the
// rest (connection explanations) are plain text.
var jsonTypes = map[domain.PromptType]bool{
	domain.PromptGraphGeneration: true,
	domain.PromptQuizGeneration:  true,
}

// extractData pulls the LLM's structured payload out of raw output for
// the response's Data field and for cache storage. Returns (nil, false)
// when typ expects JSON but none could be parsed; Execute treats that as
// a parse error and retries the same model with strict-JSON feedback,
// before the output reaches the validator.
func extractData(raw string, typ domain.PromptType) (any, bool) {
	if !jsonTypes[typ] {
		return strings.TrimSpace(raw), true
	}
	jsonText, ok := extractJSONObject(raw)
	if !ok {
		return nil, false
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func extractJSONObject(raw string) (string, bool) {
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed, true
	}
	return "", false
}
