package graphgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/emit"
	"github.com/waynewangyuxuan/graphex-aicore/internal/orchestrator"
)

type fakeOrchestrator struct {
	responses []orchestrator.Response
	errs      []error
	calls     int
}

func (f *fakeOrchestrator) Execute(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return orchestrator.Response{}, err
	}
	return f.responses[i], nil
}

func chunkGraphResponse(nodes, edges []map[string]any) orchestrator.Response {
	nodesAny := make([]any, len(nodes))
	for i, n := range nodes {
		nodesAny[i] = n
	}
	edgesAny := make([]any, len(edges))
	for i, e := range edges {
		edgesAny[i] = e
	}
	return orchestrator.Response{Data: map[string]any{"nodes": nodesAny, "edges": edgesAny}}
}

func TestGenerateGraph_SingleChunkAssemblesAndValidates(t *testing.T) {
	nodes := []map[string]any{
		{"id": "1", "title": "Machine Learning"},
		{"id": "2", "title": "AI"},
		{"id": "3", "title": "Neural Networks"},
		{"id": "4", "title": "Deep Learning"},
		{"id": "5", "title": "Supervised Learning"},
		{"id": "6", "title": "Unsupervised Learning"},
		{"id": "7", "title": "Reinforcement Learning"},
	}
	edges := []map[string]any{
		{"from": "1", "to": "2", "relationship": "subset-of"},
		{"from": "3", "to": "1", "relationship": "part-of"},
		{"from": "4", "to": "3", "relationship": "part-of"},
		{"from": "5", "to": "1", "relationship": "part-of"},
		{"from": "6", "to": "1", "relationship": "part-of"},
		{"from": "7", "to": "1", "relationship": "part-of"},
	}

	orch := &fakeOrchestrator{responses: []orchestrator.Response{chunkGraphResponse(nodes, edges)}}
	p := NewPipeline(orch)

	var stages []string
	progress := func(pr emit.Progress) { stages = append(stages, pr.Stage) }

	result, err := p.GenerateGraph(context.Background(), GenerateGraphRequest{
		UserID:        "user-1",
		DocumentID:    "doc-1",
		DocumentTitle: "Intro to ML",
		DocumentText:  "a short document that fits in one chunk",
	}, progress)

	require.NoError(t, err)
	require.Len(t, result.Nodes, 7)
	require.NotEmpty(t, result.MermaidCode)
	require.Equal(t, false, result.Metadata["degraded"])
	require.Contains(t, stages, emit.StageEstimating)
	require.Contains(t, stages, emit.StageSaving)
}

func TestGenerateGraph_MergesDuplicateNodesAcrossChunks(t *testing.T) {
	chunkA := []map[string]any{
		{"id": "1", "title": "Machine Learning"},
		{"id": "2", "title": "AI"},
		{"id": "3", "title": "Neural Networks"},
		{"id": "4", "title": "Deep Learning"},
	}
	chunkB := []map[string]any{
		{"id": "1", "title": "machine learning"}, // duplicate of chunk A's node 1 once normalized
		{"id": "2", "title": "Supervised Learning"},
		{"id": "3", "title": "Unsupervised Learning"},
		{"id": "4", "title": "Reinforcement Learning"},
	}
	edgesA := []map[string]any{
		{"from": "3", "to": "1", "relationship": "part-of"},
		{"from": "4", "to": "3", "relationship": "part-of"},
	}
	edgesB := []map[string]any{
		{"from": "2", "to": "1", "relationship": "part-of"},
		{"from": "3", "to": "1", "relationship": "part-of"},
		{"from": "4", "to": "1", "relationship": "part-of"},
	}

	orch := &fakeOrchestrator{responses: []orchestrator.Response{
		chunkGraphResponse(chunkA, edgesA),
		chunkGraphResponse(chunkB, edgesB),
	}}
	p := NewPipeline(orch)

	longText := make([]byte, 30_000)
	for i := range longText {
		longText[i] = 'a'
	}

	result, err := p.GenerateGraph(context.Background(), GenerateGraphRequest{
		UserID:        "user-1",
		DocumentID:    "doc-1",
		DocumentTitle: "Intro to ML",
		DocumentText:  string(longText),
		Config:        PipelineConfig{ChunkSize: 20_000, ChunkOverlap: 500},
	}, nil)

	require.NoError(t, err)
	require.Equal(t, 2, orch.calls)
	// 8 nodes generated across 2 chunks, one pair merged by exact title match.
	require.Len(t, result.Nodes, 7)
}

func TestGenerateGraph_ChunkExhaustionDegradesToStructuralFallback(t *testing.T) {
	orch := &fakeOrchestrator{errs: []error{domain.ErrAIValidationFailed}}
	p := NewPipeline(orch)

	text := "Overview\n\nThis document covers the basics.\n\nDetails\n\nMore content here."
	result, err := p.GenerateGraph(context.Background(), GenerateGraphRequest{
		UserID:        "user-1",
		DocumentID:    "doc-1",
		DocumentTitle: "Overview Doc",
		DocumentText:  text,
	}, nil)

	require.NoError(t, err)
	require.Equal(t, true, result.Metadata["degraded"])
	require.NotEmpty(t, result.Nodes)
}

func TestGenerateGraph_MalformedChunkPayloadDegrades(t *testing.T) {
	orch := &fakeOrchestrator{responses: []orchestrator.Response{{Data: "not a map"}}}
	p := NewPipeline(orch)

	result, err := p.GenerateGraph(context.Background(), GenerateGraphRequest{
		UserID:        "user-1",
		DocumentID:    "doc-1",
		DocumentTitle: "Doc",
		DocumentText:  "short text",
	}, nil)

	require.NoError(t, err)
	require.Equal(t, true, result.Metadata["degraded"])
}
