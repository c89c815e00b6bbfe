package contracts

import "time"

// ScoreBreakdown exposes the sub-scores behind a composite score so a
// ranking decision can always be explained after the fact.
type ScoreBreakdown struct {
	Magnitude float64 `json:"magnitude"` // from |YoY| bands
	Interest  float64 `json:"interest"`  // static audience-relevance weight
	Pain      float64 `json:"pain"`      // direct consumer-impact bonus
	Freshness float64 `json:"freshness"` // recency of the latest observation
}

// StoryScore is one indicator with its derived metrics and composite
// viral-potential score. Recomputed every run, never persisted as
// authoritative state.
type StoryScore struct {
	Indicator Indicator      `json:"indicator"`
	Metrics   DerivedMetrics `json:"metrics"`

	Composite float64        `json:"composite"` // 0..100, after cooldown penalty
	RawScore  float64        `json:"raw_score"` // 0..100, before cooldown penalty
	Breakdown ScoreBreakdown `json:"breakdown"`
	Tags      []string       `json:"tags"`

	Penalized bool `json:"penalized"` // cooldown penalty applied
	Rank      int  `json:"rank"`      // 1-based, assigned by the selector
}

// FetchOutcome classifies what happened to one indicator's upstream fetch.
type FetchOutcome string

const (
	FetchOK        FetchOutcome = "ok"
	FetchEmpty     FetchOutcome = "empty"     // fetch succeeded, no usable observations
	FetchTransient FetchOutcome = "transient" // network / rate-limit, retry next run
	FetchPermanent FetchOutcome = "permanent" // unknown series id, needs operator attention
)

// FetchStatus is the per-indicator diagnostic record for a run.
type FetchStatus struct {
	Code         string       `json:"code"`
	SeriesID     string       `json:"series_id"`
	Outcome      FetchOutcome `json:"outcome"`
	Observations int          `json:"observations"`
	FromCache    bool         `json:"from_cache,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// StoryPackage is the sole output contract to the script-writing stage.
// Created fresh each run, handed downstream, never mutated afterwards.
type StoryPackage struct {
	Lead    StoryScore   `json:"lead"`
	Related []StoryScore `json:"related"` // 2-4 entries, ordered
	Ranked  []StoryScore `json:"ranked"`  // diagnostic top slice of the full ranking

	RunAt       time.Time     `json:"run_at"`
	Episode     int           `json:"episode"`
	ConfigHash  string        `json:"config_hash"`
	Diagnostics []FetchStatus `json:"diagnostics,omitempty"`
}

// CooldownEntry records one past lead selection.
type CooldownEntry struct {
	Code    string    `json:"code"`
	Episode int       `json:"episode"`
	RunAt   time.Time `json:"run_at"`
}

// CooldownLog is the append-only history of lead selections. It is read
// at run start, passed into the selector by value, and the updated copy
// is persisted at run end; never a hidden global.
type CooldownLog []CooldownEntry

// RecentCodes returns the set of lead codes within the last window runs.
func (l CooldownLog) RecentCodes(window int) map[string]bool {
	recent := make(map[string]bool)
	if window <= 0 {
		return recent
	}
	start := len(l) - window
	if start < 0 {
		start = 0
	}
	for _, e := range l[start:] {
		recent[e.Code] = true
	}
	return recent
}

// Append returns a new log with the entry added. The receiver is not
// modified, so callers can keep the pre-run log for diagnostics.
func (l CooldownLog) Append(entry CooldownEntry) CooldownLog {
	out := make(CooldownLog, len(l), len(l)+1)
	copy(out, l)
	return append(out, entry)
}
