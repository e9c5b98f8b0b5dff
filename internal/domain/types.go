package domain

import "time"

// PromptType enumerates the closed set of prompt template categories.
type PromptType string

const (
	PromptGraphGeneration     PromptType = "graph-generation"
	PromptConnectionExplain   PromptType = "connection-explanation"
	PromptQuizGeneration      PromptType = "quiz-generation"
	PromptImageDescription    PromptType = "image-description"
	PromptNodeDeduplication   PromptType = "node-deduplication"
)

// PromptVersion enumerates the template channel. Lookup never cascades
// between versions: a miss on the requested version is a hard failure.
type PromptVersion string

const (
	VersionProduction  PromptVersion = "production"
	VersionStaging     PromptVersion = "staging"
	VersionExperimental PromptVersion = "experimental"
)

// Model identifies an LLM model by its canonical short name. These
// are deliberately not the providers' dated SDK model strings; internal/llm
// maps them to the wire identifier each provider expects.
type Model string

const (
	ModelClaudeHaiku   Model = "claude-haiku"
	ModelClaudeSonnet4 Model = "claude-sonnet-4"
	ModelGPT4Turbo     Model = "gpt-4-turbo"
	ModelGPT4Vision    Model = "gpt-4-vision"
)

// PromptTemplate is an immutable record keyed by (Type, Version).
type PromptTemplate struct {
	Type               PromptType
	Version            PromptVersion
	SystemPrompt       string
	BodyTemplate       string
	RequiredContextKeys []string
	OptionalContextKeys []string
	MinNodes           int
	MaxNodes           int
}

// PromptContext is a free-form substitution map. Values are string, a
// numeric/bool scalar, or a nested map/slice reachable via dot-path lookup.
type PromptContext map[string]any

// BuiltPromptMetadata is the derived, non-stored metadata of a BuiltPrompt.
type BuiltPromptMetadata struct {
	TemplateID      string
	Version         PromptVersion
	ContextKeys     []string
	EstimatedTokens int
	Timestamp       time.Time
}

// BuiltPrompt is the output of PromptManager.Build.
type BuiltPrompt struct {
	SystemPrompt string
	UserPrompt   string
	Metadata     BuiltPromptMetadata
}

// PromptStats holds running aggregates for one (Type, Version) key.
type PromptStats struct {
	TotalUses       int
	SuccessRatePct  float64
	AvgQualityScore float64
	AvgCost         float64
	AvgRetries      float64
	LastUpdated     time.Time
}

// Outcome is what PromptManager.RecordOutcome folds into PromptStats.
type Outcome struct {
	Success      bool
	QualityScore float64
	Cost         float64
	Attempts     int
}

// UsageRecord is an immutable, append-only ledger row.
type UsageRecord struct {
	ID           string
	UserID       string
	Operation    PromptType
	Model        Model
	InputTokens  int
	OutputTokens int
	Cost         float64
	QualityScore *float64
	Attempts     int
	Success      bool
	DocumentID   string
	GraphID      string
	Timestamp    time.Time
}

// BudgetLimits configures the tri-level spend ceiling.
type BudgetLimits struct {
	PerDocument    float64
	PerUserPerDay  float64
	PerUserPerMonth float64
}

// DefaultBudgetLimits returns the free-tier defaults from §6.
func DefaultBudgetLimits() BudgetLimits {
	return BudgetLimits{PerDocument: 5, PerUserPerDay: 10, PerUserPerMonth: 50}
}

const (
	DailyWarningThresholdPct   = 0.80
	MonthlyWarningThresholdPct = 0.90
)

// GraphNode is one vertex of an assembled knowledge graph.
type GraphNode struct {
	ID               string
	Title            string
	Description      string
	NodeType         string
	Summary          string
	SourceReferences []string
	Metadata         map[string]any
}

// GraphEdge is one directed relationship between two GraphNode ids.
type GraphEdge struct {
	From         string
	To           string
	Relationship string
	Explanation  string
	Strength     *float64
	Metadata     map[string]any
}

// GraphData is the pipeline's assembled output, validated by the graph
// validator before being handed to an external store.
type GraphData struct {
	Nodes      []GraphNode
	Edges      []GraphEdge
	MermaidCode string
	Metadata   map[string]any
}

// CachedResult is what the Orchestrator's result cache stores per key.
type CachedResult struct {
	Data         any
	CachedAt     time.Time
	QualityScore float64
	Model        Model
}
