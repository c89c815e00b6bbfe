package storyconfig

import (
	"github.com/moneymap/moneymap/internal/contracts"
)

// Config is the full story-discovery strategy: the indicator universe,
// scoring rubric, selection policy, and relation table. Loaded once per
// run and treated as immutable input to the core.
type Config struct {
	Meta       Meta                  `yaml:"meta" json:"meta"`
	Indicators []contracts.Indicator `yaml:"indicators" json:"indicators"`
	Derive     Derive                `yaml:"derive" json:"derive"`
	Scoring    Scoring               `yaml:"scoring" json:"scoring"`
	Selection  Selection             `yaml:"selection" json:"selection"`
	Relations  map[string][]string   `yaml:"relations" json:"relations"`
}

// Meta identifies the strategy for reproducibility.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Derive controls the derived-metrics calculator.
type Derive struct {
	// YoYToleranceDays is the window around (reference - 12 months)
	// accepted as the year-ago match; tolerates monthly reporting drift.
	YoYToleranceDays int `yaml:"yoy_tolerance_days" json:"yoy_tolerance_days"`

	// FreshnessHalfLifeDays controls the freshness decay: a series this
	// many days old scores 0.5 freshness.
	FreshnessHalfLifeDays int `yaml:"freshness_half_life_days" json:"freshness_half_life_days"`
}

// Band awards points once |YoY %| exceeds a threshold. Bands are checked
// in declared order; the first match wins, so declare them descending.
type Band struct {
	MinAbsPct float64 `yaml:"min_abs_pct" json:"min_abs_pct"`
	Points    float64 `yaml:"points" json:"points"`
	Tag       string  `yaml:"tag" json:"tag"`
}

// FreshBand awards points when the latest observation is recent enough.
// First match wins; declare ascending by max_days.
type FreshBand struct {
	MaxDays int     `yaml:"max_days" json:"max_days"`
	Points  float64 `yaml:"points" json:"points"`
	Tag     string  `yaml:"tag" json:"tag"`
}

// Pain configures the consumer-pain bonus.
type Pain struct {
	Points     float64 `yaml:"points" json:"points"`
	TriggerPct float64 `yaml:"trigger_pct" json:"trigger_pct"`
}

// Scoring is the viral-potential rubric. Fixed configuration, not
// learned: same inputs and weights always produce the same score.
type Scoring struct {
	MagnitudeBands []Band      `yaml:"magnitude_bands" json:"magnitude_bands"`
	FreshnessBands []FreshBand `yaml:"freshness_bands" json:"freshness_bands"`
	Pain           Pain        `yaml:"pain" json:"pain"`
	MaxScore       float64     `yaml:"max_score" json:"max_score"`
}

// Selection is the lead-story selection policy.
type Selection struct {
	// CooldownWindow counts runs: an indicator that led within the last
	// N runs is penalized, never hard-excluded.
	CooldownWindow  int     `yaml:"cooldown_window" json:"cooldown_window"`
	CooldownPenalty float64 `yaml:"cooldown_penalty" json:"cooldown_penalty"` // multiplier in (0,1]

	// ViabilityFloor is the minimum lead composite for a run to produce
	// a package at all.
	ViabilityFloor float64 `yaml:"viability_floor" json:"viability_floor"`

	RankedSize int `yaml:"ranked_size" json:"ranked_size"` // diagnostic slice length
	RelatedMin int `yaml:"related_min" json:"related_min"`
	RelatedMax int `yaml:"related_max" json:"related_max"`
}

// IndicatorByCode returns the configured indicator for a code.
func (c *Config) IndicatorByCode(code string) (contracts.Indicator, bool) {
	for _, ind := range c.Indicators {
		if ind.Code == code {
			return ind, true
		}
	}
	return contracts.Indicator{}, false
}
