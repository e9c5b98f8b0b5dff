package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

const validGraphJSON = `{
  "nodes": [
    {"id":"1","title":"Machine Learning"},{"id":"2","title":"AI"},
    {"id":"3","title":"Neural Networks"},{"id":"4","title":"Deep Learning"},
    {"id":"5","title":"Supervised Learning"},{"id":"6","title":"Unsupervised Learning"},
    {"id":"7","title":"Reinforcement Learning"}
  ],
  "edges": [
    {"from":"1","to":"2","relationship":"subset-of"},
    {"from":"3","to":"1","relationship":"part-of"},
    {"from":"4","to":"3","relationship":"part-of"},
    {"from":"5","to":"1","relationship":"part-of"},
    {"from":"6","to":"1","relationship":"part-of"},
    {"from":"7","to":"1","relationship":"part-of"}
  ]
}`

func TestValidate_GraphGeneration_HappyPath(t *testing.T) {
	res, err := Validate(validGraphJSON, domain.PromptGraphGeneration, Options{})
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.Equal(t, 100, res.Score)
}

func TestValidate_GraphGeneration_TooFewNodesIsHighSeverityButNotBlocking(t *testing.T) {
	res, err := Validate(`{"nodes":[{"id":"1","title":"A"}],"edges":[]}`, domain.PromptGraphGeneration, Options{})
	require.NoError(t, err)
	require.Equal(t, 100-15-5, res.Score) // node-count-out-of-range (high) + disconnected-nodes (medium)
	// passed <-> score >= threshold AND no critical issues: a high-severity
	// issue deducts score but does not block on its own.
	require.True(t, res.Passed)
}

func TestValidate_GraphGeneration_CriticalIssueBlocksRegardlessOfScore(t *testing.T) {
	// A low threshold means the score check alone would pass (100-50=50 >=
	// 1); the critical issue must still block it, per "passed <-> score >=
	// threshold AND no critical issues".
	res, err := Validate(`{"edges":[]}`, domain.PromptGraphGeneration, Options{Threshold: 1})
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Score, 1)
	require.False(t, res.Passed)
	require.Len(t, res.Issues, 1)
	require.Equal(t, "missing-nodes", res.Issues[0].Type)
	require.Equal(t, SeverityCritical, res.Issues[0].Severity)
}

func TestValidate_GraphGeneration_UnparseableIsCriticalAndFails(t *testing.T) {
	res, err := Validate("not json at all", domain.PromptGraphGeneration, Options{})
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Equal(t, 50, res.Score)
	require.NotEmpty(t, FixStrings(res.Issues))
}

func TestValidate_ConnectionExplanation_LengthBounds(t *testing.T) {
	res, err := Validate("too short", domain.PromptConnectionExplain, Options{})
	require.NoError(t, err)
	require.False(t, res.Passed)

	long := ""
	for i := 0; i < 10; i++ {
		long += "This explanation connects the two concepts in detail. "
	}
	res, err = Validate(long, domain.PromptConnectionExplain, Options{})
	require.NoError(t, err)
	require.True(t, res.Passed)
}

func TestValidate_QuizGeneration_RequiresFourOptionsAndValidIndex(t *testing.T) {
	bad := `{"questions":[{"options":["a","b","c"],"correctAnswerIndex":5,"explanation":"","difficulty":"impossible"}]}`
	res, err := Validate(bad, domain.PromptQuizGeneration, Options{})
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Len(t, res.Issues, 4)
}
