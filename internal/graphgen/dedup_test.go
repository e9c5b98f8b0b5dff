package graphgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

func TestDeduplicate_ExactTitleMatchMerges(t *testing.T) {
	nodes := []domain.GraphNode{
		{ID: "1", Title: "Machine Learning", Description: "short"},
		{ID: "2", Title: "machine learning", Description: "a much longer description of the concept"},
		{ID: "3", Title: "Neural Networks"},
	}

	result, err := Deduplicate(nodes, DedupOptions{})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	require.Equal(t, 1, result.Statistics.MergesByPhase.Exact)
	require.Equal(t, result.Mapping["1"], result.Mapping["2"])
	// The richer description wins representative selection.
	for _, n := range result.Nodes {
		if n.ID == result.Mapping["1"] {
			require.Equal(t, "2", n.ID)
		}
	}
}

func TestDeduplicate_AcronymMatchesExpansion(t *testing.T) {
	nodes := []domain.GraphNode{
		{ID: "1", Title: "Natural Language Processing"},
		{ID: "2", Title: "NLP"},
	}

	result, err := Deduplicate(nodes, DedupOptions{})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 1)
	require.Equal(t, 1, result.Statistics.MergesByPhase.Acronym)
}

func TestDeduplicate_FuzzyMatchRequiresBothLevenshteinAndJaccard(t *testing.T) {
	nodes := []domain.GraphNode{
		{ID: "1", Title: "Supervised Learning Methods"},
		{ID: "2", Title: "Supervized Learning Methods"}, // one-letter typo, 2 of 4 distinct words shared (Jaccard 0.5)
		{ID: "3", Title: "Unsupervised Learning"},
	}

	result, err := Deduplicate(nodes, DedupOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Statistics.MergesByPhase.Fuzzy)
	require.Len(t, result.Nodes, 2)
}

func TestDeduplicate_DissimilarTitlesStayDistinct(t *testing.T) {
	nodes := []domain.GraphNode{
		{ID: "1", Title: "Gradient Descent"},
		{ID: "2", Title: "Decision Trees"},
	}

	result, err := Deduplicate(nodes, DedupOptions{})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	require.Equal(t, 0, result.Statistics.MergedCount)
}

func TestDeduplicate_EmptyInputReturnsDeduplicationFailed(t *testing.T) {
	_, err := Deduplicate(nil, DedupOptions{})
	require.ErrorIs(t, err, domain.ErrDeduplicationFailed)
}

func TestDeduplicate_NodeMissingTitleReturnsDeduplicationFailed(t *testing.T) {
	_, err := Deduplicate([]domain.GraphNode{{ID: "1"}}, DedupOptions{})
	require.ErrorIs(t, err, domain.ErrDeduplicationFailed)
}

func TestRewriteEdges_RemapsEndpointsThroughMapping(t *testing.T) {
	mapping := map[string]string{"1": "2", "3": "3"}
	edges := []domain.GraphEdge{
		{From: "1", To: "3", Relationship: "related-to"},
	}

	out := RewriteEdges(edges, mapping)
	require.Len(t, out, 1)
	require.Equal(t, "2", out[0].From)
	require.Equal(t, "3", out[0].To)
}

func TestLevenshtein_IdenticalStringsHaveZeroDistance(t *testing.T) {
	require.Equal(t, 0, levenshtein("abc", "abc"))
}

func TestLevenshtein_SingleSubstitution(t *testing.T) {
	require.Equal(t, 1, levenshtein("cat", "bat"))
}

func TestJaccardWords_FullOverlapIsOne(t *testing.T) {
	require.InDelta(t, 1.0, jaccardWords("deep learning", "learning deep"), 0.001)
}

func TestJaccardWords_NoOverlapIsZero(t *testing.T) {
	require.InDelta(t, 0.0, jaccardWords("foo bar", "baz qux"), 0.001)
}
