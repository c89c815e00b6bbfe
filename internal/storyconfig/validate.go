package storyconfig

import (
	"fmt"

	"github.com/moneymap/moneymap/internal/contracts"
)

// Validate checks the strategy config. Any failure here is fatal at
// startup: the run must not begin with a rubric that can produce
// nondeterministic or nonsensical selections.
func Validate(cfg *Config) error {
	if len(cfg.Indicators) == 0 {
		return fmt.Errorf("no indicators configured")
	}

	seen := make(map[string]bool, len(cfg.Indicators))
	for i, ind := range cfg.Indicators {
		if ind.Code == "" {
			return fmt.Errorf("indicator %d: code is required", i)
		}
		if seen[ind.Code] {
			return fmt.Errorf("duplicate indicator code: %s", ind.Code)
		}
		seen[ind.Code] = true

		if ind.SeriesID == "" {
			return fmt.Errorf("indicator %s: series_id is required", ind.Code)
		}
		if ind.InterestWeight < 0 {
			return fmt.Errorf("indicator %s: interest_weight must be >= 0", ind.Code)
		}
		switch ind.PainDirection {
		case contracts.PainWhenUp, contracts.PainWhenDown, contracts.PainNeutral:
		default:
			return fmt.Errorf("indicator %s: invalid pain_direction %q", ind.Code, ind.PainDirection)
		}
	}

	if cfg.Derive.YoYToleranceDays <= 0 {
		return fmt.Errorf("derive.yoy_tolerance_days must be positive")
	}
	if cfg.Derive.FreshnessHalfLifeDays <= 0 {
		return fmt.Errorf("derive.freshness_half_life_days must be positive")
	}

	if len(cfg.Scoring.MagnitudeBands) == 0 {
		return fmt.Errorf("scoring.magnitude_bands is required")
	}
	for i := 1; i < len(cfg.Scoring.MagnitudeBands); i++ {
		if cfg.Scoring.MagnitudeBands[i].MinAbsPct >= cfg.Scoring.MagnitudeBands[i-1].MinAbsPct {
			return fmt.Errorf("scoring.magnitude_bands must be declared descending by min_abs_pct")
		}
	}
	for i := 1; i < len(cfg.Scoring.FreshnessBands); i++ {
		if cfg.Scoring.FreshnessBands[i].MaxDays <= cfg.Scoring.FreshnessBands[i-1].MaxDays {
			return fmt.Errorf("scoring.freshness_bands must be declared ascending by max_days")
		}
	}
	if cfg.Scoring.MaxScore <= 0 {
		return fmt.Errorf("scoring.max_score must be positive")
	}

	sel := cfg.Selection
	if sel.CooldownWindow < 0 {
		return fmt.Errorf("selection.cooldown_window must be >= 0")
	}
	if sel.CooldownPenalty <= 0 || sel.CooldownPenalty > 1 {
		return fmt.Errorf("selection.cooldown_penalty must be in (0, 1]")
	}
	if sel.ViabilityFloor < 0 {
		return fmt.Errorf("selection.viability_floor must be >= 0")
	}
	if sel.RelatedMin < 1 || sel.RelatedMax < sel.RelatedMin {
		return fmt.Errorf("selection.related_min/related_max out of order")
	}
	if sel.RankedSize <= 0 {
		return fmt.Errorf("selection.ranked_size must be positive")
	}

	// Relation targets must reference configured indicators; a dangling
	// code would silently shrink related-story slots.
	for code, targets := range cfg.Relations {
		if !seen[code] {
			return fmt.Errorf("relations: unknown source indicator %s", code)
		}
		for _, t := range targets {
			if !seen[t] {
				return fmt.Errorf("relations[%s]: unknown target indicator %s", code, t)
			}
			if t == code {
				return fmt.Errorf("relations[%s]: indicator cannot relate to itself", code)
			}
		}
	}

	return nil
}
