// Package prompt implements the Prompt Manager: template resolution,
// context injection, model recommendation and outcome-driven stats.
package prompt

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/cost"
	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/store"
)

// Manager is the Prompt Manager subsystem.
type Manager struct {
	registry *Registry
	cache    store.KVStore
	now      func() time.Time
}

// New constructs a Manager over registry (template source) and cache
// (stats persistence).
func New(registry *Registry, cache store.KVStore) *Manager {
	return &Manager{registry: registry, cache: cache, now: time.Now}
}

// Build resolves (typ, version), injects ctx, and returns a BuiltPrompt.
// Fails with PROMPT_TEMPLATE_ERROR when no template matches or a required
// context key is absent — version lookup never cascades (§9 open
// question: fail-fast, preserved from the source).
func (m *Manager) Build(typ domain.PromptType, ctx domain.PromptContext, version domain.PromptVersion) (domain.BuiltPrompt, error) {
	if version == "" {
		version = domain.VersionProduction
	}
	tmpl, ok := m.registry.Lookup(typ, version)
	if !ok {
		return domain.BuiltPrompt{}, domain.ErrPromptTemplateError.WithMessage(
			fmt.Sprintf("no template for type=%s version=%s", typ, version))
	}
	for _, key := range tmpl.RequiredContextKeys {
		if _, present := ctx[key]; !present {
			return domain.BuiltPrompt{}, domain.ErrPromptTemplateError.WithMessage(
				fmt.Sprintf("missing required context key %q for type=%s", key, typ))
		}
	}

	userPrompt, err := render(tmpl.BodyTemplate, ctx)
	if err != nil {
		return domain.BuiltPrompt{}, domain.ErrPromptTemplateError.WithCause(err)
	}

	contextKeys := make([]string, 0, len(ctx))
	for k := range ctx {
		contextKeys = append(contextKeys, k)
	}

	estimatedTokens := int(math.Ceil(float64(len(tmpl.SystemPrompt)+len(userPrompt)) / 4))

	return domain.BuiltPrompt{
		SystemPrompt: tmpl.SystemPrompt,
		UserPrompt:   userPrompt,
		Metadata: domain.BuiltPromptMetadata{
			TemplateID:      string(typ),
			Version:         version,
			ContextKeys:     contextKeys,
			EstimatedTokens: estimatedTokens,
			Timestamp:       m.now(),
		},
	}, nil
}

// ModelRecommendation is getRecommendedModel's response.
type ModelRecommendation struct {
	Model         domain.Model
	Reason        string
	EstimatedCost float64
	Fallbacks     []domain.Model
}

const largeDocumentThreshold = 40_000

// GetRecommendedModel implements the selection table in §4.1.
func (m *Manager) GetRecommendedModel(typ domain.PromptType, ctx domain.PromptContext) (ModelRecommendation, error) {
	var rec ModelRecommendation
	switch typ {
	case domain.PromptGraphGeneration:
		if docLen(ctx) > largeDocumentThreshold {
			rec = ModelRecommendation{Model: domain.ModelClaudeSonnet4, Reason: "large document requires higher-capability model",
				Fallbacks: []domain.Model{domain.ModelClaudeHaiku, domain.ModelGPT4Turbo}}
		} else {
			rec = ModelRecommendation{Model: domain.ModelClaudeHaiku, Reason: "default cost-efficient model for graph generation",
				Fallbacks: []domain.Model{domain.ModelClaudeSonnet4, domain.ModelGPT4Turbo}}
		}
	case domain.PromptImageDescription:
		rec = ModelRecommendation{Model: domain.ModelClaudeSonnet4, Reason: "image description requires vision-capable model",
			Fallbacks: []domain.Model{domain.ModelGPT4Turbo}}
	default:
		rec = ModelRecommendation{Model: domain.ModelClaudeHaiku, Reason: "default cost-efficient model",
			Fallbacks: []domain.Model{domain.ModelClaudeSonnet4, domain.ModelGPT4Turbo}}
	}

	total := estimateTokenCount(ctx)
	input := int(math.Round(float64(total) * 2 / 3))
	output := total - input
	estimatedCost, err := cost.Calculate(cost.Tokens{Input: input, Output: output}, rec.Model)
	if err != nil {
		return ModelRecommendation{}, err
	}
	rec.EstimatedCost = estimatedCost
	return rec, nil
}

// docLen extracts the length of context["documentText"] if present.
func docLen(ctx domain.PromptContext) int {
	if v, ok := ctx["documentText"].(string); ok {
		return len(v)
	}
	return 0
}

// estimateTokenCount gives GetRecommendedModel a token estimate to price
// against before a prompt has actually been built, using document length
// when available and a conservative flat estimate otherwise.
func estimateTokenCount(ctx domain.PromptContext) int {
	if n := docLen(ctx); n > 0 {
		return int(math.Ceil(float64(n) / 4))
	}
	return 500
}

// RecordOutcome updates running averages for (typ, version). Never
// returns an error to the caller: failures are swallowed after the
// attempt, per §4.1 ("never throws").
func (m *Manager) RecordOutcome(ctx context.Context, typ domain.PromptType, version domain.PromptVersion, outcome domain.Outcome) {
	current, err := loadStats(ctx, m.cache, typ, version)
	if err != nil {
		return
	}
	updated := foldOutcome(current, outcome, m.now())
	_ = saveStats(ctx, m.cache, typ, version, updated)
}

// GetStats returns the zeroed record for unseen (typ, version) keys.
func (m *Manager) GetStats(ctx context.Context, typ domain.PromptType, version domain.PromptVersion) (domain.PromptStats, error) {
	return loadStats(ctx, m.cache, typ, version)
}

// VersionScore is one entry of compareVersions's result.
type VersionScore struct {
	Version        domain.PromptVersion
	Score          float64
	Recommendation string // "use" | "test" | "retire"
}

// CompareVersionsResult is compareVersions's response.
type CompareVersionsResult struct {
	Versions    []VersionScore
	BestVersion domain.PromptVersion
}

var allVersions = []domain.PromptVersion{domain.VersionProduction, domain.VersionStaging, domain.VersionExperimental}

// CompareVersions scores every version that has a registered template for
// typ using the composite formula from §4.1.
func (m *Manager) CompareVersions(ctx context.Context, typ domain.PromptType) (CompareVersionsResult, error) {
	var result CompareVersionsResult
	best := VersionScore{Score: -1}

	for _, version := range allVersions {
		if _, ok := m.registry.Lookup(typ, version); !ok {
			continue
		}
		stats, err := loadStats(ctx, m.cache, typ, version)
		if err != nil {
			return CompareVersionsResult{}, err
		}
		score := compositeScore(stats)
		entry := VersionScore{Version: version, Score: score, Recommendation: recommendationFor(stats)}
		result.Versions = append(result.Versions, entry)
		if score > best.Score {
			best = entry
		}
	}
	result.BestVersion = best.Version
	return result, nil
}

func compositeScore(s domain.PromptStats) float64 {
	costEfficiency := math.Max(0, (1-s.AvgCost/0.10)*100)
	reliability := math.Max(0, (2-s.AvgRetries)*100)
	return 0.4*s.SuccessRatePct + 0.3*s.AvgQualityScore + 0.2*costEfficiency + 0.1*reliability
}

func recommendationFor(s domain.PromptStats) string {
	switch {
	case s.TotalUses < 10:
		return "test"
	case s.SuccessRatePct < 70 || s.AvgQualityScore < 60:
		return "retire"
	case s.SuccessRatePct >= 85 && s.AvgQualityScore >= 75:
		return "use"
	default:
		return "test"
	}
}
