package graphgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// GraphValidateOptions configures Validate.
type GraphValidateOptions struct {
	MinNodes             int
	MaxNodes             int
	AutoFix              bool
	RemoveIsolatedNodes  bool
}

func (o GraphValidateOptions) withDefaults() GraphValidateOptions {
	if o.MinNodes == 0 {
		o.MinNodes = 7
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = 15
	}
	return o
}

// GraphValidateResult is Validate's response.
type GraphValidateResult struct {
	IsValid    bool
	Errors     []string
	Warnings   []string
	FixedGraph *domain.GraphData
	Fixes      []string
	Statistics GraphValidateStatistics
}

// GraphValidateStatistics reports the collect phase's findings on the
// input graph, before any auto-fix pass.
type GraphValidateStatistics struct {
	OrphanedEdges  int
	DuplicateEdges int
	SelfReferences int
	IsolatedNodes  int
}

// Validate implements the structural/collect/mermaid/node-count phases of
// spec §4.5, with an iterated auto-fix pass when opts.AutoFix is set.
func Validate(data domain.GraphData, opts GraphValidateOptions) (GraphValidateResult, error) {
	opts = opts.withDefaults()

	if structErrs := structuralErrors(data); len(structErrs) > 0 {
		return GraphValidateResult{}, domain.ErrInvalidGraphStruct.WithMessage(strings.Join(structErrs, "; "))
	}

	result := GraphValidateResult{IsValid: true}
	current := data

	for pass := 0; ; pass++ {
		issues, stats := collect(current)
		if pass == 0 {
			result.Statistics = stats
		}

		var errs []string
		if len(current.Nodes) < opts.MinNodes {
			errs = append(errs, fmt.Sprintf("TOO_FEW_NODES: have %d, need at least %d", len(current.Nodes), opts.MinNodes))
		}
		if len(current.Nodes) > opts.MaxNodes {
			errs = append(errs, fmt.Sprintf("TOO_MANY_NODES: have %d, allow at most %d", len(current.Nodes), opts.MaxNodes))
		}
		mermaidOK := current.MermaidCode == "" || validMermaid(current.MermaidCode)
		if !mermaidOK {
			errs = append(errs, "INVALID_MERMAID: mermaidCode must start with \"graph\" and have balanced brackets")
		}

		allClean := len(issues.orphaned) == 0 && len(issues.duplicate) == 0 && len(issues.selfRef) == 0 && len(errs) == 0
		if allClean {
			result.Errors = nil
			break
		}
		if !opts.AutoFix {
			result.Errors = append(collectMessages(issues), errs...)
			result.IsValid = false
			return result, nil
		}

		fixed, appliedFixes := autoFix(current, issues, opts, !mermaidOK)
		if len(appliedFixes) == 0 {
			// Nothing left this iteration can fix (e.g. node count still out
			// of bounds after all edge/node repairs); surface the residue.
			result.Errors = append(collectMessages(issues), errs...)
			if len(result.Errors) > 0 {
				result.IsValid = false
			}
			break
		}
		result.Fixes = append(result.Fixes, appliedFixes...)
		current = fixed
	}

	if len(result.Errors) == 0 {
		result.IsValid = true
		result.FixedGraph = &current
	} else if opts.AutoFix {
		result.FixedGraph = &current
	}
	return result, nil
}

func structuralErrors(data domain.GraphData) []string {
	var errs []string
	seen := make(map[string]bool)
	for i, n := range data.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Sprintf("node[%d] has empty id", i))
			continue
		}
		if seen[n.ID] {
			errs = append(errs, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}
	for i, e := range data.Edges {
		if e.From == "" || e.To == "" || e.Relationship == "" {
			errs = append(errs, fmt.Sprintf("edge[%d] missing from/to/relationship", i))
		}
	}
	return errs
}

type collectedIssues struct {
	orphaned []int // edge indices
	duplicate []int
	selfRef   []int
	isolated  []string // node ids
}

func collect(data domain.GraphData) (collectedIssues, GraphValidateStatistics) {
	ids := make(map[string]bool, len(data.Nodes))
	for _, n := range data.Nodes {
		ids[n.ID] = true
	}

	var issues collectedIssues
	seenEdge := make(map[string]bool)
	incident := make(map[string]bool, len(data.Nodes))

	for i, e := range data.Edges {
		if !ids[e.From] || !ids[e.To] {
			issues.orphaned = append(issues.orphaned, i)
			continue
		}
		if e.From == e.To {
			issues.selfRef = append(issues.selfRef, i)
			continue
		}
		key := e.From + "|" + e.To + "|" + e.Relationship
		if seenEdge[key] {
			issues.duplicate = append(issues.duplicate, i)
			continue
		}
		seenEdge[key] = true
		incident[e.From] = true
		incident[e.To] = true
	}

	for _, n := range data.Nodes {
		if !incident[n.ID] {
			issues.isolated = append(issues.isolated, n.ID)
		}
	}

	return issues, GraphValidateStatistics{
		OrphanedEdges:  len(issues.orphaned),
		DuplicateEdges: len(issues.duplicate),
		SelfReferences: len(issues.selfRef),
		IsolatedNodes:  len(issues.isolated),
	}
}

func collectMessages(issues collectedIssues) []string {
	var msgs []string
	if n := len(issues.orphaned); n > 0 {
		msgs = append(msgs, fmt.Sprintf("ORPHANED_EDGES: %d edge(s) reference a missing node", n))
	}
	if n := len(issues.duplicate); n > 0 {
		msgs = append(msgs, fmt.Sprintf("DUPLICATE_EDGES: %d duplicate edge(s)", n))
	}
	if n := len(issues.selfRef); n > 0 {
		msgs = append(msgs, fmt.Sprintf("SELF_REFERENCES: %d self-referencing edge(s)", n))
	}
	return msgs
}

func validMermaid(code string) bool {
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "graph") {
		return false
	}
	depth := 0
	for _, r := range code {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// autoFix applies one round of the ordered auto-fix procedure: drop bad
// edges, trim to maxNodes by degree, regenerate Mermaid if needed.
func autoFix(data domain.GraphData, issues collectedIssues, opts GraphValidateOptions, mermaidBad bool) (domain.GraphData, []string) {
	var fixes []string

	bad := make(map[int]bool, len(issues.orphaned)+len(issues.duplicate)+len(issues.selfRef))
	for _, i := range issues.orphaned {
		bad[i] = true
	}
	for _, i := range issues.duplicate {
		bad[i] = true
	}
	for _, i := range issues.selfRef {
		bad[i] = true
	}
	if len(bad) > 0 {
		edges := make([]domain.GraphEdge, 0, len(data.Edges)-len(bad))
		for i, e := range data.Edges {
			if !bad[i] {
				edges = append(edges, e)
			}
		}
		data.Edges = edges
		fixes = append(fixes, fmt.Sprintf("removed %d orphaned/duplicate/self-referencing edge(s)", len(bad)))
	}

	if opts.RemoveIsolatedNodes && len(issues.isolated) > 0 {
		isolated := make(map[string]bool, len(issues.isolated))
		for _, id := range issues.isolated {
			isolated[id] = true
		}
		nodes := make([]domain.GraphNode, 0, len(data.Nodes))
		for _, n := range data.Nodes {
			if !isolated[n.ID] {
				nodes = append(nodes, n)
			}
		}
		data.Nodes = nodes
		fixes = append(fixes, fmt.Sprintf("removed %d isolated node(s)", len(isolated)))
	}

	if len(data.Nodes) > opts.MaxNodes {
		data.Nodes, data.Edges = trimToMostConnected(data.Nodes, data.Edges, opts.MaxNodes)
		fixes = append(fixes, fmt.Sprintf("trimmed graph to the %d most-connected nodes", opts.MaxNodes))
	}

	if mermaidBad || (data.MermaidCode != "" && !validMermaid(data.MermaidCode)) {
		data.MermaidCode = regenerateMermaid(data)
		fixes = append(fixes, "regenerated mermaidCode")
	}

	return data, fixes
}

// trimToMostConnected keeps the maxNodes highest-degree nodes, breaking
// ties by original index for determinism, then drops edges referencing
// removed nodes.
func trimToMostConnected(nodes []domain.GraphNode, edges []domain.GraphEdge, maxNodes int) ([]domain.GraphNode, []domain.GraphEdge) {
	degree := make(map[string]int, len(nodes))
	for _, e := range edges {
		degree[e.From]++
		degree[e.To]++
	}

	type scored struct {
		idx    int
		degree int
	}
	ranked := make([]scored, len(nodes))
	for i, n := range nodes {
		ranked[i] = scored{idx: i, degree: degree[n.ID]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].degree > ranked[j].degree })

	if len(ranked) > maxNodes {
		ranked = ranked[:maxNodes]
	}
	keepIdx := make(map[int]bool, len(ranked))
	for _, r := range ranked {
		keepIdx[r.idx] = true
	}

	kept := make([]domain.GraphNode, 0, maxNodes)
	keptIDs := make(map[string]bool, maxNodes)
	for i, n := range nodes {
		if keepIdx[i] {
			kept = append(kept, n)
			keptIDs[n.ID] = true
		}
	}

	filteredEdges := make([]domain.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if keptIDs[e.From] && keptIDs[e.To] {
			filteredEdges = append(filteredEdges, e)
		}
	}
	return kept, filteredEdges
}

var mermaidSanitizer = strings.NewReplacer("[", "", "]", "", "|", "", "\"", "")

func sanitizeMermaid(s string) string {
	return strings.TrimSpace(mermaidSanitizer.Replace(s))
}

func regenerateMermaid(data domain.GraphData) string {
	titles := make(map[string]string, len(data.Nodes))
	for _, n := range data.Nodes {
		titles[n.ID] = n.Title
	}

	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, e := range data.Edges {
		fmt.Fprintf(&b, "  %s[%s] -->|%s| %s[%s]\n",
			e.From, sanitizeMermaid(titles[e.From]),
			sanitizeMermaid(e.Relationship),
			e.To, sanitizeMermaid(titles[e.To]))
	}
	return strings.TrimRight(b.String(), "\n")
}
