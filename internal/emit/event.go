// Package emit carries observability out of the orchestration core: retry
// decisions, cache hits, budget denials, and per-stage pipeline progress.
package emit

// Event is one observability event raised during an orchestrator call or
// pipeline run.
type Event struct {
	RunID  string
	NodeID string // e.g. the prompt type or pipeline stage that raised this
	Msg    string
	Meta   map[string]any
}

// Stage names used in Progress.Stage, matching the pipeline's weighted
// phases (§4.6).
const (
	StageEstimating = "estimating"
	StageChunking   = "chunking"
	StageGenerating = "generating"
	StageMerging    = "merging"
	StageValidating = "validating"
	StageSaving     = "saving"
)

// Progress is the payload carried across pipeline suspension points.
type Progress struct {
	Stage           string
	Percentage      float64
	Message         string
	ChunksProcessed *int
	TotalChunks     *int
}
