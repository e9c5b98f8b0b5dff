package graphgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/emit"
	"github.com/waynewangyuxuan/graphex-aicore/internal/orchestrator"
)

// OrchestratorClient is the subset of *orchestrator.Orchestrator the
// pipeline calls through, kept as an interface so tests can substitute a
// fake without constructing real cost/prompt/LLM dependencies.
type OrchestratorClient interface {
	Execute(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error)
}

// PipelineConfig tunes the chunker, deduplicator, validator and the
// per-chunk orchestrator call.
type PipelineConfig struct {
	ChunkSize            int
	ChunkOverlap         int
	MinNodes             int
	MaxNodes             int
	FuzzyThreshold       float64
	WordOverlapThreshold float64
	Orchestrator         orchestrator.Config
}

// Pipeline is the Graph Assembly Pipeline: generateGraph composing the
// Chunker, Orchestrator, Deduplicator and Graph Validator (§4.6).
type Pipeline struct {
	orch OrchestratorClient
}

// NewPipeline constructs a Pipeline over an orchestrator client.
func NewPipeline(orch OrchestratorClient) *Pipeline {
	return &Pipeline{orch: orch}
}

// GenerateGraph chunks documentText, generates a sub-graph per chunk via
// the Orchestrator, merges and deduplicates nodes across chunks, then
// validates and auto-fixes the assembled graph. If any chunk exhausts its
// retries, the pipeline degrades to a structural-only graph derived from
// the document's paragraph headings rather than failing outright.
//
// progress updates are delivered through an emit.ProgressReporter: a slow
// or absent consumer never blocks generation, since the reporter drops
// stale updates in favor of the latest one rather than queuing.
func (p *Pipeline) GenerateGraph(ctx context.Context, req GenerateGraphRequest, progress emit.ProgressFunc) (domain.GraphData, error) {
	cfg := req.Config
	if cfg.MinNodes == 0 {
		cfg.MinNodes = 7
	}
	if cfg.MaxNodes == 0 {
		cfg.MaxNodes = 15
	}

	subCtx, stopReporting := context.WithCancel(ctx)
	defer stopReporting()
	reporter := emit.NewProgressReporter()
	report := func(stage string, pct float64, msg string, processed, total *int) {
		if progress == nil {
			return
		}
		reporter.Report(subCtx, emit.Progress{Stage: stage, Percentage: pct, Message: msg, ChunksProcessed: processed, TotalChunks: total})
	}
	if progress != nil {
		emit.Subscribe(subCtx, reporter, progress)
	}

	report(emit.StageEstimating, 2, "estimating document size", nil, nil)

	chunks := ChunkDocument(req.DocumentText, ChunkerOptions{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap})
	report(emit.StageChunking, 8, fmt.Sprintf("split into %d chunk(s)", len(chunks)), nil, nil)

	var allNodes []domain.GraphNode
	var allEdges []domain.GraphEdge
	degraded := false

	for i, chunk := range chunks {
		processed, total := i, len(chunks)
		pct := 10 + (float64(i)/float64(len(chunks)))*60
		report(emit.StageGenerating, pct, fmt.Sprintf("generating graph for chunk %d/%d", i+1, len(chunks)), &processed, &total)

		resp, err := p.orch.Execute(ctx, orchestrator.Request{
			UserID:     req.UserID,
			DocumentID: req.DocumentID,
			PromptType: domain.PromptGraphGeneration,
			Context: domain.PromptContext{
				"documentTitle": req.DocumentTitle,
				"documentText":  chunk.Text,
				"minNodes":      cfg.MinNodes,
				"maxNodes":      cfg.MaxNodes,
			},
			Config: cfg.Orchestrator,
		})
		if err != nil {
			degraded = true
			break
		}

		nodes, edges, parseErr := parseGraphPayload(resp.Data)
		if parseErr != nil {
			degraded = true
			break
		}
		prefixed := prefixIDs(nodes, edges, chunk.Index)
		allNodes = append(allNodes, prefixed.nodes...)
		allEdges = append(allEdges, prefixed.edges...)
	}

	if degraded {
		fallback := structuralFallback(req.DocumentText, req.DocumentTitle)
		fallback.Metadata = map[string]any{"degraded": true, "reason": "one or more chunks exhausted retries"}
		report(emit.StageSaving, 100, "degraded success: structural fallback graph", nil, nil)
		return fallback, nil
	}

	report(emit.StageMerging, 75, "deduplicating nodes across chunks", nil, nil)
	dedup, err := Deduplicate(allNodes, DedupOptions{FuzzyThreshold: cfg.FuzzyThreshold, WordOverlapThreshold: cfg.WordOverlapThreshold})
	if err != nil {
		return domain.GraphData{}, err
	}
	mergedEdges := RewriteEdges(allEdges, dedup.Mapping)

	report(emit.StageValidating, 90, "validating assembled graph", nil, nil)
	assembled := domain.GraphData{Nodes: dedup.Nodes, Edges: mergedEdges}
	valResult, err := Validate(assembled, GraphValidateOptions{MinNodes: cfg.MinNodes, MaxNodes: cfg.MaxNodes, AutoFix: true})
	if err != nil {
		return domain.GraphData{}, err
	}

	final := assembled
	if valResult.FixedGraph != nil {
		final = *valResult.FixedGraph
	}
	final.MermaidCode = regenerateMermaid(final)
	final.Metadata = map[string]any{
		"degraded":      false,
		"dedupStats":    dedup.Statistics,
		"validateFixes": valResult.Fixes,
	}

	report(emit.StageSaving, 100, "graph ready", nil, nil)
	return final, nil
}

// GenerateGraphRequest is GenerateGraph's input.
type GenerateGraphRequest struct {
	UserID        string
	DocumentID    string
	DocumentTitle string
	DocumentText  string
	Config        PipelineConfig
}

type prefixedGraph struct {
	nodes []domain.GraphNode
	edges []domain.GraphEdge
}

// prefixIDs namespaces a chunk's node/edge ids with its chunk index so
// identically-named-but-distinct concepts from different chunks don't
// collide before deduplication runs.
func prefixIDs(nodes []domain.GraphNode, edges []domain.GraphEdge, chunkIndex int) prefixedGraph {
	mapping := make(map[string]string, len(nodes))
	out := prefixedGraph{nodes: make([]domain.GraphNode, len(nodes)), edges: make([]domain.GraphEdge, len(edges))}
	for i, n := range nodes {
		newID := fmt.Sprintf("%d_%s", chunkIndex, n.ID)
		mapping[n.ID] = newID
		n.ID = newID
		out.nodes[i] = n
	}
	for i, e := range edges {
		if v, ok := mapping[e.From]; ok {
			e.From = v
		}
		if v, ok := mapping[e.To]; ok {
			e.To = v
		}
		out.edges[i] = e
	}
	return out
}

// parseGraphPayload extracts nodes/edges from the Orchestrator's validated
// response Data, which for graph-generation is a map[string]any parsed
// from the model's JSON by internal/orchestrator's extractData.
func parseGraphPayload(data any) ([]domain.GraphNode, []domain.GraphEdge, error) {
	payload, ok := data.(map[string]any)
	if !ok {
		return nil, nil, domain.ErrInvalidGraphStruct.WithMessage("orchestrator response was not a JSON object")
	}

	var nodes []domain.GraphNode
	if raw, ok := payload["nodes"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			nodes = append(nodes, domain.GraphNode{
				ID:          stringField(m, "id"),
				Title:       stringField(m, "title"),
				Description: stringField(m, "description"),
				NodeType:    stringField(m, "nodeType"),
				Summary:     stringField(m, "summary"),
			})
		}
	}

	var edges []domain.GraphEdge
	if raw, ok := payload["edges"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			edges = append(edges, domain.GraphEdge{
				From:         stringField(m, "from"),
				To:           stringField(m, "to"),
				Relationship: stringField(m, "relationship"),
			})
		}
	}

	if len(nodes) == 0 {
		return nil, nil, domain.ErrInvalidGraphStruct.WithMessage("chunk produced no nodes")
	}
	return nodes, edges, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// structuralFallback derives a minimal graph from the document's
// paragraph-heading-shaped lines (a line of at most 80 characters not
// ending in '.' or ',', with a blank line or the start/end of the text on
// both sides) when a chunk's generation exhausts retries.
func structuralFallback(documentText, documentTitle string) domain.GraphData {
	headings := extractHeadings(documentText)
	if len(headings) == 0 {
		headings = []string{documentTitle}
	}

	nodes := make([]domain.GraphNode, 0, len(headings))
	for i, h := range headings {
		nodes = append(nodes, domain.GraphNode{ID: fmt.Sprintf("fallback_%d", i), Title: h, NodeType: "heading"})
	}
	edges := make([]domain.GraphEdge, 0, max(0, len(nodes)-1))
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, domain.GraphEdge{From: nodes[0].ID, To: nodes[i].ID, Relationship: "related-to"})
	}

	data := domain.GraphData{Nodes: nodes, Edges: edges}
	data.MermaidCode = regenerateMermaid(data)
	return data
}

func extractHeadings(text string) []string {
	var headings []string
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) > 80 {
			continue
		}
		if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, ",") {
			continue
		}
		isBlankBefore := i == 0 || strings.TrimSpace(lines[i-1]) == ""
		isBlankAfter := i == len(lines)-1 || strings.TrimSpace(lines[i+1]) == ""
		if isBlankBefore && isBlankAfter {
			headings = append(headings, trimmed)
		}
	}
	return headings
}
