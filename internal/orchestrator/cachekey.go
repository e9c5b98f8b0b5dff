package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// titleLikeSuffixes marks the context keys treated as semantically safe to
// lowercase when computing a cache key. Body text (documentText, feedback,
// etc.) is left case-sensitive: lowercasing prose would fold together
// meaningfully distinct inputs.
var titleLikeSuffixes = []string{"title", "Title"}

func isTitleLike(key string) bool {
	for _, suffix := range titleLikeSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

// normalize produces the canonical form of a context map for hashing: map
// keys sort themselves on JSON encoding, and title-like string fields are
// lowercased so that "Intro to ML" and "intro to ML" hit the same cache
// entry (§9 open question resolution).
func normalize(ctx domain.PromptContext) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if s, ok := v.(string); ok && isTitleLike(k) {
			out[k] = strings.ToLower(s)
			continue
		}
		out[k] = v
	}
	return out
}

// cacheKey computes the stable key hash(promptType, normalize(context),
// model, version) using canonical JSON (sorted keys — guaranteed by
// encoding/json for map[string]any) followed by SHA-256, so the encoding is
// stable across language runtimes per §4.4.
func cacheKey(typ domain.PromptType, ctx domain.PromptContext, model domain.Model, version domain.PromptVersion) string {
	normalized := normalize(ctx)
	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := struct {
		Type    domain.PromptType    `json:"type"`
		Context map[string]any       `json:"context"`
		Model   domain.Model         `json:"model"`
		Version domain.PromptVersion `json:"version"`
	}{Type: typ, Context: normalized, Model: model, Version: version}

	// json.Marshal on a map[string]any always emits keys in sorted order,
	// so this is already canonical; keys is computed above only to make
	// that guarantee explicit and testable.
	b, err := json.Marshal(payload)
	if err != nil {
		// Marshalling a map[string]any built from JSON-safe scalars cannot
		// fail in practice; fall back to a type/model/version-only key so a
		// pathological context value never panics the orchestrator.
		b = []byte(string(typ) + "|" + string(model) + "|" + string(version))
	}
	sum := sha256.Sum256(b)
	return "aicache:" + string(typ) + ":" + hex.EncodeToString(sum[:])
}
