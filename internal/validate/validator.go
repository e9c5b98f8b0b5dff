// Package validate implements the Output Validator: structural and
// semantic checks on LLM output producing a quality score and
// actionable, retry-usable feedback.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// Severity is the issue severity, each deducting a fixed amount from the
// starting score of 100.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityDeduction = map[Severity]int{
	SeverityCritical: 50,
	SeverityHigh:     15,
	SeverityMedium:   5,
	SeverityLow:      1,
}

// Issue is one structural or semantic defect found in the output.
type Issue struct {
	Severity Severity
	Type     string
	Message  string
	Fix      string // imperative instruction, concatenated into retry prompts
	Metadata map[string]any
}

// Mode controls how thorough validation is: quick checks structure only,
// full additionally computes grounding/snippet checks that require
// SourceDocument.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeFull  Mode = "full"
)

// Options configures one Validate call.
type Options struct {
	Threshold      int // default 60
	Mode           Mode
	SourceDocument string
	MinNodes       int // default 7
	MaxNodes       int // default 15
}

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = 60
	}
	if o.Mode == "" {
		o.Mode = ModeQuick
	}
	if o.MinNodes == 0 {
		o.MinNodes = 7
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = 15
	}
	return o
}

// Result is Validate's response.
type Result struct {
	Passed   bool
	Score    int
	Issues   []Issue
	Warnings []string
	Metadata map[string]any
}

// Validate scores output against the checks registered for typ.
func Validate(output string, typ domain.PromptType, opts Options) (Result, error) {
	opts = opts.withDefaults()

	var issues []Issue
	metadata := map[string]any{}

	switch typ {
	case domain.PromptGraphGeneration:
		issues, metadata = validateGraphGeneration(output, opts)
	case domain.PromptConnectionExplain:
		issues, metadata = validateConnectionExplanation(output, opts)
	case domain.PromptQuizGeneration:
		issues, metadata = validateQuizGeneration(output, opts)
	default:
		// No type-specific checks registered: structural presence only.
		if strings.TrimSpace(output) == "" {
			issues = append(issues, Issue{Severity: SeverityCritical, Type: "empty-output",
				Message: "model returned empty output", Fix: "Return a non-empty response."})
		}
	}

	score := scoreFromIssues(issues)
	hasCritical := false
	for _, iss := range issues {
		if iss.Severity == SeverityCritical {
			hasCritical = true
			break
		}
	}

	return Result{
		Passed:   score >= opts.Threshold && !hasCritical,
		Score:    score,
		Issues:   issues,
		Warnings: nil,
		Metadata: metadata,
	}, nil
}

func scoreFromIssues(issues []Issue) int {
	score := 100
	for _, iss := range issues {
		score -= severityDeduction[iss.Severity]
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// FixStrings extracts the imperative fix instructions the Orchestrator
// concatenates into a retry prompt.
func FixStrings(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, iss := range issues {
		if iss.Fix != "" {
			out = append(out, iss.Fix)
		}
	}
	return out
}

// --- graph-generation ---

type graphPayload struct {
	Nodes       []nodePayload `json:"nodes"`
	Edges       []edgePayload `json:"edges"`
	MermaidCode string        `json:"mermaidCode"`
}

type nodePayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type edgePayload struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Relationship string `json:"relationship"`
}

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// extractJSON pulls a JSON object out of raw LLM output, tolerating a
// markdown code fence around it.
func extractJSON(raw string) (string, bool) {
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed, true
	}
	return "", false
}

func validateGraphGeneration(raw string, opts Options) ([]Issue, map[string]any) {
	meta := map[string]any{}
	jsonText, ok := extractJSON(raw)
	if !ok {
		return []Issue{{Severity: SeverityCritical, Type: "parse-error", Message: "no JSON object found in output",
			Fix: "Return strict JSON only, with no surrounding prose."}}, meta
	}

	var payload graphPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return []Issue{{Severity: SeverityCritical, Type: "parse-error", Message: fmt.Sprintf("invalid JSON: %v", err),
			Fix: "Return strict, valid JSON only."}}, meta
	}

	var issues []Issue
	if payload.Nodes == nil {
		issues = append(issues, Issue{Severity: SeverityCritical, Type: "missing-nodes", Message: "nodes array missing",
			Fix: "Include a non-empty \"nodes\" array."})
	}
	if payload.Edges == nil {
		issues = append(issues, Issue{Severity: SeverityCritical, Type: "missing-edges", Message: "edges array missing",
			Fix: "Include an \"edges\" array (may be empty)."})
	}
	if len(issues) > 0 {
		return issues, meta
	}

	meta["nodeCount"] = len(payload.Nodes)
	meta["edgeCount"] = len(payload.Edges)

	if len(payload.Nodes) < opts.MinNodes || len(payload.Nodes) > opts.MaxNodes {
		issues = append(issues, Issue{Severity: SeverityHigh, Type: "node-count-out-of-range",
			Message: fmt.Sprintf("node count %d outside [%d,%d]", len(payload.Nodes), opts.MinNodes, opts.MaxNodes),
			Fix:     fmt.Sprintf("Return between %d and %d nodes.", opts.MinNodes, opts.MaxNodes)})
	}

	ids := make(map[string]bool, len(payload.Nodes))
	incident := make(map[string]bool, len(payload.Nodes))
	for _, n := range payload.Nodes {
		ids[n.ID] = true
	}
	for _, e := range payload.Edges {
		if !ids[e.From] || !ids[e.To] {
			issues = append(issues, Issue{Severity: SeverityHigh, Type: "orphan-edge",
				Message: fmt.Sprintf("edge %s->%s references a missing node", e.From, e.To),
				Fix:     "Only reference node ids that exist in the nodes array."})
			continue
		}
		incident[e.From] = true
		incident[e.To] = true
	}

	orphanNodeCount := 0
	for id := range ids {
		if !incident[id] {
			orphanNodeCount++
		}
	}
	if orphanNodeCount > 0 {
		issues = append(issues, Issue{Severity: SeverityMedium, Type: "disconnected-nodes",
			Message: fmt.Sprintf("%d node(s) have no edges", orphanNodeCount),
			Fix:     "Ensure every node participates in at least one relationship."})
	}

	if payload.MermaidCode != "" {
		if !strings.HasPrefix(strings.TrimSpace(payload.MermaidCode), "graph") || !balancedBrackets(payload.MermaidCode) {
			issues = append(issues, Issue{Severity: SeverityMedium, Type: "invalid-mermaid",
				Message: "mermaidCode must start with a graph directive and have balanced brackets",
				Fix:     "Start mermaidCode with \"graph TD\" and ensure every [ has a matching ]."})
		}
	}

	if opts.Mode == ModeFull && opts.SourceDocument != "" {
		grounded := 0
		normalizedSource := normalize(opts.SourceDocument)
		for _, n := range payload.Nodes {
			if strings.Contains(normalizedSource, normalize(n.Title)) {
				grounded++
			}
		}
		pct := 0.0
		if len(payload.Nodes) > 0 {
			pct = float64(grounded) / float64(len(payload.Nodes)) * 100
		}
		meta["groundingPercentage"] = pct
		if pct < 60 {
			issues = append(issues, Issue{Severity: SeverityHigh, Type: "possible-hallucination",
				Message: fmt.Sprintf("only %.1f%% of node titles are grounded in the source document", pct),
				Fix:     "Only include concepts that are explicitly present in the source document."})
		}
	}

	return issues, meta
}

func balancedBrackets(s string) bool {
	depth := 0
	for _, r := range s {
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

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// --- connection-explanation ---

type explanationPayload struct {
	Explanation string `json:"explanation"`
}

func validateConnectionExplanation(raw string, opts Options) ([]Issue, map[string]any) {
	explanation := raw
	if jsonText, ok := extractJSON(raw); ok {
		var p explanationPayload
		if err := json.Unmarshal([]byte(jsonText), &p); err == nil && p.Explanation != "" {
			explanation = p.Explanation
		}
	}
	explanation = strings.TrimSpace(explanation)

	var issues []Issue
	if explanation == "" {
		issues = append(issues, Issue{Severity: SeverityCritical, Type: "empty-explanation",
			Message: "explanation is empty", Fix: "Provide a non-empty explanation."})
		return issues, nil
	}
	if len(explanation) < 50 || len(explanation) > 2000 {
		issues = append(issues, Issue{Severity: SeverityCritical, Type: "explanation-length-out-of-range",
			Message: fmt.Sprintf("explanation length %d outside [50,2000]", len(explanation)),
			Fix:     "Write an explanation between 50 and 2000 characters."})
	}
	if opts.Mode == ModeFull && !strings.Contains(explanation, "\"") {
		issues = append(issues, Issue{Severity: SeverityLow, Type: "missing-source-snippet",
			Message: "no quoted source snippet found",
			Fix:     "Quote a short snippet from the source document to support the explanation."})
	}
	return issues, map[string]any{"length": len(explanation)}
}

// --- quiz-generation ---

type quizPayload struct {
	Questions []questionPayload `json:"questions"`
}

type questionPayload struct {
	Options             []string `json:"options"`
	CorrectAnswerIndex  int      `json:"correctAnswerIndex"`
	Explanation         string   `json:"explanation"`
	Difficulty          string   `json:"difficulty"`
}

var validDifficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

func validateQuizGeneration(raw string, opts Options) ([]Issue, map[string]any) {
	jsonText, ok := extractJSON(raw)
	if !ok {
		return []Issue{{Severity: SeverityCritical, Type: "parse-error", Message: "no JSON object found in output",
			Fix: "Return strict JSON only, with no surrounding prose."}}, nil
	}
	var payload quizPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return []Issue{{Severity: SeverityCritical, Type: "parse-error", Message: fmt.Sprintf("invalid JSON: %v", err),
			Fix: "Return strict, valid JSON only."}}, nil
	}
	if len(payload.Questions) == 0 {
		return []Issue{{Severity: SeverityCritical, Type: "no-questions", Message: "questions array is empty",
			Fix: "Include at least one question."}}, nil
	}

	var issues []Issue
	for i, q := range payload.Questions {
		if len(q.Options) != 4 {
			issues = append(issues, Issue{Severity: SeverityCritical, Type: "wrong-option-count",
				Message:  fmt.Sprintf("question %d has %d options, want 4", i, len(q.Options)),
				Fix:      "Give every question exactly 4 options.",
				Metadata: map[string]any{"question": i}})
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex > 3 {
			issues = append(issues, Issue{Severity: SeverityCritical, Type: "invalid-correct-index",
				Message:  fmt.Sprintf("question %d correctAnswerIndex %d out of range", i, q.CorrectAnswerIndex),
				Fix:      "correctAnswerIndex must be between 0 and 3.",
				Metadata: map[string]any{"question": i}})
		}
		if strings.TrimSpace(q.Explanation) == "" {
			issues = append(issues, Issue{Severity: SeverityMedium, Type: "missing-explanation",
				Message:  fmt.Sprintf("question %d has no explanation", i),
				Fix:      "Give every question a non-empty explanation.",
				Metadata: map[string]any{"question": i}})
		}
		if !validDifficulties[q.Difficulty] {
			issues = append(issues, Issue{Severity: SeverityLow, Type: "invalid-difficulty",
				Message:  fmt.Sprintf("question %d has invalid difficulty %q", i, q.Difficulty),
				Fix:      "difficulty must be one of easy, medium, hard.",
				Metadata: map[string]any{"question": i}})
		}
	}
	return issues, map[string]any{"questionCount": len(payload.Questions)}
}
