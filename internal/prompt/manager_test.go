package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/store"
)

func newTestManager() *Manager {
	return New(NewRegistry(DefaultTemplates()...), store.NewMemKVStore())
}

func TestBuild_SubstitutesVariablesAndConditional(t *testing.T) {
	m := newTestManager()
	built, err := m.Build(domain.PromptGraphGeneration, domain.PromptContext{
		"documentTitle": "Intro to ML",
		"documentText":  "Machine learning is a subset of AI.",
	}, domain.VersionProduction)
	require.NoError(t, err)
	require.Contains(t, built.UserPrompt, "Intro to ML")
	require.NotContains(t, built.UserPrompt, "Previous attempt")

	built, err = m.Build(domain.PromptGraphGeneration, domain.PromptContext{
		"documentTitle": "Intro to ML",
		"documentText":  "text",
		"feedback":      "add more nodes",
	}, domain.VersionProduction)
	require.NoError(t, err)
	require.Contains(t, built.UserPrompt, "Previous attempt had issues:\nadd more nodes")
}

func TestBuild_MissingRequiredKeyFails(t *testing.T) {
	m := newTestManager()
	_, err := m.Build(domain.PromptGraphGeneration, domain.PromptContext{"documentTitle": "x"}, domain.VersionProduction)
	require.ErrorIs(t, err, domain.ErrPromptTemplateError)
}

func TestBuild_UnknownVersionDoesNotCascade(t *testing.T) {
	m := newTestManager()
	_, err := m.Build(domain.PromptGraphGeneration, domain.PromptContext{
		"documentTitle": "x", "documentText": "y",
	}, domain.VersionExperimental)
	require.ErrorIs(t, err, domain.ErrPromptTemplateError)
}

func TestGetRecommendedModel_LargeDocumentEscalates(t *testing.T) {
	m := newTestManager()
	big := make([]byte, 40_001)
	rec, err := m.GetRecommendedModel(domain.PromptGraphGeneration, domain.PromptContext{"documentText": string(big)})
	require.NoError(t, err)
	require.Equal(t, domain.ModelClaudeSonnet4, rec.Model)
	require.Greater(t, rec.EstimatedCost, 0.0)
}

func TestGetRecommendedModel_SmallDocumentUsesHaiku(t *testing.T) {
	m := newTestManager()
	rec, err := m.GetRecommendedModel(domain.PromptGraphGeneration, domain.PromptContext{"documentText": "short"})
	require.NoError(t, err)
	require.Equal(t, domain.ModelClaudeHaiku, rec.Model)
	require.Equal(t, []domain.Model{domain.ModelClaudeSonnet4, domain.ModelGPT4Turbo}, rec.Fallbacks)
}

func TestRecordOutcomeThenGetStats_ReflectsRunningAverages(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	stats, err := m.GetStats(ctx, domain.PromptGraphGeneration, domain.VersionProduction)
	require.NoError(t, err)
	require.Zero(t, stats.TotalUses)

	m.RecordOutcome(ctx, domain.PromptGraphGeneration, domain.VersionProduction, domain.Outcome{Success: true, QualityScore: 90, Cost: 0.05, Attempts: 1})
	m.RecordOutcome(ctx, domain.PromptGraphGeneration, domain.VersionProduction, domain.Outcome{Success: false, QualityScore: 40, Cost: 0.05, Attempts: 3})

	stats, err = m.GetStats(ctx, domain.PromptGraphGeneration, domain.VersionProduction)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalUses)
	require.InDelta(t, 50, stats.SuccessRatePct, 1e-9)
	require.InDelta(t, 65, stats.AvgQualityScore, 1e-9)
}

func TestCompareVersions_OnlyRegisteredVersionsScored(t *testing.T) {
	m := newTestManager()
	result, err := m.CompareVersions(context.Background(), domain.PromptGraphGeneration)
	require.NoError(t, err)
	require.Len(t, result.Versions, 1)
	require.Equal(t, domain.VersionProduction, result.BestVersion)
}
