package contracts

// Stage represents a discovery pipeline stage.
//
// Pipeline flow:
//
//	S0 → S1 → S2 → S3 → S4
//	Fetch  Derive  Score  Select  Assemble
//
// Scoring and selection are pure computations over the fully-fetched
// snapshot; S1 never starts before S0 completes for every indicator.
type Stage string

const (
	// StageFetch S0: pull observations for all indicators from upstream.
	// Location: internal/ingest
	StageFetch Stage = "S0_FETCH"

	// StageDerive S1: compute YoY / PoP / freshness per series.
	// Location: internal/derive
	StageDerive Stage = "S1_DERIVE"

	// StageScore S2: composite viral-potential score per indicator.
	// Location: internal/scoring
	StageScore Stage = "S2_SCORE"

	// StageSelect S3: rank, apply cooldown, pick the lead story and
	// resolve related indicators. Location: internal/selection
	StageSelect Stage = "S3_SELECT"

	// StageAssemble S4: validate and freeze the StoryPackage.
	// Location: internal/assemble
	StageAssemble Stage = "S4_ASSEMBLE"
)

// String returns the stage name.
func (s Stage) String() string {
	return string(s)
}

// AllStages returns all pipeline stages in order.
func AllStages() []Stage {
	return []Stage{StageFetch, StageDerive, StageScore, StageSelect, StageAssemble}
}

// StageResult records the outcome of one stage for run diagnostics.
type StageResult struct {
	Stage       Stage  `json:"stage"`
	Success     bool   `json:"success"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}
