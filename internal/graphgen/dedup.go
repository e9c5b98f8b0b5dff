package graphgen

import (
	"strings"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// DedupOptions tunes the fuzzy-merge phase.
type DedupOptions struct {
	FuzzyThreshold       float64 // default 0.20: merge when Levenshtein distance/maxlen <= this
	WordOverlapThreshold float64 // default 0.50: Jaccard word-overlap gate
}

func (o DedupOptions) withDefaults() DedupOptions {
	if o.FuzzyThreshold == 0 {
		o.FuzzyThreshold = 0.20
	}
	if o.WordOverlapThreshold == 0 {
		o.WordOverlapThreshold = 0.50
	}
	return o
}

// MergesByPhase counts how many union operations each phase performed.
type MergesByPhase struct {
	Exact   int
	Acronym int
	Fuzzy   int
}

// DedupStatistics summarizes one Deduplicate call.
type DedupStatistics struct {
	OriginalCount int
	FinalCount    int
	MergedCount   int
	MergesByPhase MergesByPhase
}

// DedupResult is Deduplicate's response.
type DedupResult struct {
	Nodes      []domain.GraphNode
	Mapping    map[string]string // original id -> canonical id
	Statistics DedupStatistics
}

// unionFind is a standard union-by-rank, path-compressed disjoint-set over
// node indices.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	return true
}

// Deduplicate merges equivalent nodes across chunk-local title collisions
// using the three-phase union-find in spec §4.5: exact normalized-title
// match, acronym-to-expansion match, then a Levenshtein+Jaccard fuzzy gate.
func Deduplicate(nodes []domain.GraphNode, opts DedupOptions) (DedupResult, error) {
	opts = opts.withDefaults()
	if len(nodes) == 0 {
		return DedupResult{}, domain.ErrDeduplicationFailed.WithMessage("no nodes to deduplicate")
	}
	for _, n := range nodes {
		if n.ID == "" || n.Title == "" {
			return DedupResult{}, domain.ErrDeduplicationFailed.WithMessage("node missing id or title")
		}
	}

	uf := newUnionFind(len(nodes))
	var phases MergesByPhase

	// Phase 1: exact normalized-title match.
	byNormalized := make(map[string]int, len(nodes))
	for i, n := range nodes {
		key := normalizeTitle(n.Title)
		if j, ok := byNormalized[key]; ok {
			if uf.union(i, j) {
				phases.Exact++
			}
			continue
		}
		byNormalized[key] = i
	}

	// Phase 2: acronym match — a 2-5 letter all-uppercase title paired with
	// a multi-word node whose initials spell it.
	for i, a := range nodes {
		if !isAcronym(a.Title) {
			continue
		}
		for j, b := range nodes {
			if i == j || uf.find(i) == uf.find(j) {
				continue
			}
			if initialsMatch(b.Title, a.Title) {
				if uf.union(i, j) {
					phases.Acronym++
				}
			}
		}
	}

	// Phase 3: fuzzy match on remaining unmerged pairs.
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if uf.find(i) == uf.find(j) {
				continue
			}
			a, b := normalizeTitle(nodes[i].Title), normalizeTitle(nodes[j].Title)
			maxLen := max(len(a), len(b))
			if maxLen == 0 {
				continue
			}
			l := 1 - float64(levenshtein(a, b))/float64(maxLen)
			jac := jaccardWords(a, b)
			if l >= 1-opts.FuzzyThreshold && jac >= opts.WordOverlapThreshold {
				if uf.union(i, j) {
					phases.Fuzzy++
				}
			}
		}
	}

	// Assemble: pick the highest-quality-score representative per group.
	groups := make(map[int][]int)
	for i := range nodes {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	mapping := make(map[string]string, len(nodes))
	result := make([]domain.GraphNode, 0, len(groups))
	for _, members := range groups {
		best := members[0]
		for _, m := range members[1:] {
			if qualityScore(nodes[m]) > qualityScore(nodes[best]) {
				best = m
			}
		}
		rep := nodes[best]
		canonicalID := rep.ID
		for _, m := range members {
			mapping[nodes[m].ID] = canonicalID
		}
		result = append(result, rep)
	}

	return DedupResult{
		Nodes:   result,
		Mapping: mapping,
		Statistics: DedupStatistics{
			OriginalCount: len(nodes),
			FinalCount:    len(result),
			MergedCount:   len(nodes) - len(result),
			MergesByPhase: phases,
		},
	}, nil
}

// RewriteEdges rewrites edge endpoints through a Deduplicate mapping,
// dropping edges that collapse into a self-loop as a result.
func RewriteEdges(edges []domain.GraphEdge, mapping map[string]string) []domain.GraphEdge {
	out := make([]domain.GraphEdge, 0, len(edges))
	for _, e := range edges {
		from, to := e.From, e.To
		if v, ok := mapping[from]; ok {
			from = v
		}
		if v, ok := mapping[to]; ok {
			to = v
		}
		if from == to {
			continue
		}
		e.From, e.To = from, to
		out = append(out, e)
	}
	return out
}

func qualityScore(n domain.GraphNode) float64 {
	return float64(len(n.Title)) + 2*float64(len(n.Description)) + 2.5*float64(len(n.Summary))
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isAcronym(s string) bool {
	if len(s) < 2 || len(s) > 5 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func initialsMatch(phrase, acronym string) bool {
	words := strings.Fields(phrase)
	if len(words) != len(acronym) {
		return false
	}
	var initials strings.Builder
	for _, w := range words {
		initials.WriteString(strings.ToUpper(w[:1]))
	}
	return initials.String() == acronym
}

func jaccardWords(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
