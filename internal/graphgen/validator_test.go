package graphgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

func makeValidGraph(n int) domain.GraphData {
	nodes := make([]domain.GraphNode, n)
	for i := range nodes {
		nodes[i] = domain.GraphNode{ID: itoa(i), Title: "node " + itoa(i)}
	}
	edges := make([]domain.GraphEdge, 0, n-1)
	for i := 1; i < n; i++ {
		edges = append(edges, domain.GraphEdge{From: itoa(0), To: itoa(i), Relationship: "related-to"})
	}
	return domain.GraphData{Nodes: nodes, Edges: edges, MermaidCode: regenerateMermaid(domain.GraphData{Nodes: nodes, Edges: edges})}
}

func itoa(i int) string {
	return string(rune('a' + i))
}

func TestValidate_WellFormedGraphIsValid(t *testing.T) {
	data := makeValidGraph(8)
	result, err := Validate(data, GraphValidateOptions{MinNodes: 7, MaxNodes: 15})
	require.NoError(t, err)
	require.True(t, result.IsValid)
	require.Empty(t, result.Errors)
}

func TestValidate_DuplicateNodeIDIsStructuralFailure(t *testing.T) {
	data := domain.GraphData{Nodes: []domain.GraphNode{{ID: "a", Title: "A"}, {ID: "a", Title: "A2"}}}
	_, err := Validate(data, GraphValidateOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidGraphStruct)
}

func TestValidate_OrphanedEdgeWithoutAutoFixReturnsError(t *testing.T) {
	data := makeValidGraph(8)
	data.Edges = append(data.Edges, domain.GraphEdge{From: "a", To: "missing", Relationship: "x"})
	result, err := Validate(data, GraphValidateOptions{MinNodes: 7, MaxNodes: 15, AutoFix: false})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.Contains(t, result.Errors[0], "ORPHANED_EDGES")
}

func TestValidate_AutoFixRemovesOrphanedEdges(t *testing.T) {
	data := makeValidGraph(8)
	data.Edges = append(data.Edges, domain.GraphEdge{From: "a", To: "missing", Relationship: "x"})
	result, err := Validate(data, GraphValidateOptions{MinNodes: 7, MaxNodes: 15, AutoFix: true})
	require.NoError(t, err)
	require.True(t, result.IsValid)
	require.NotNil(t, result.FixedGraph)
	require.NotEmpty(t, result.Fixes)
	for _, e := range result.FixedGraph.Edges {
		require.NotEqual(t, "missing", e.To)
	}
}

func TestValidate_AutoFixTrimsToMaxNodesByDegree(t *testing.T) {
	data := makeValidGraph(20)
	result, err := Validate(data, GraphValidateOptions{MinNodes: 7, MaxNodes: 15, AutoFix: true})
	require.NoError(t, err)
	require.True(t, result.IsValid)
	require.LessOrEqual(t, len(result.FixedGraph.Nodes), 15)
}

func TestValidate_TooFewNodesWithoutAutoFixReturnsError(t *testing.T) {
	data := makeValidGraph(3)
	result, err := Validate(data, GraphValidateOptions{MinNodes: 7, MaxNodes: 15, AutoFix: false})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.Contains(t, result.Errors[0], "TOO_FEW_NODES")
}

func TestValidate_SelfReferencingEdgeIsCollected(t *testing.T) {
	data := makeValidGraph(8)
	data.Edges = append(data.Edges, domain.GraphEdge{From: "a", To: "a", Relationship: "x"})
	result, err := Validate(data, GraphValidateOptions{MinNodes: 7, MaxNodes: 15, AutoFix: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Statistics.SelfReferences)
	require.True(t, result.IsValid)
}

func TestValidate_InvalidMermaidIsRegeneratedByAutoFix(t *testing.T) {
	data := makeValidGraph(8)
	data.MermaidCode = "not a graph at all ["
	result, err := Validate(data, GraphValidateOptions{MinNodes: 7, MaxNodes: 15, AutoFix: true})
	require.NoError(t, err)
	require.True(t, result.IsValid)
	require.True(t, validMermaid(result.FixedGraph.MermaidCode))
}
