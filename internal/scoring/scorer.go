package scoring

import (
	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/storyconfig"
	"github.com/moneymap/moneymap/pkg/logger"
)

// Scorer computes the composite viral-potential score for an indicator
// from its derived metrics and static metadata. Weights are fixed
// configuration, not learned: same inputs and weights always produce
// the same score, so story selection is reproducible.
type Scorer struct {
	cfg    storyconfig.Scoring
	logger *logger.Logger
}

// NewScorer creates a scorer from the strategy rubric.
func NewScorer(cfg storyconfig.Scoring, log *logger.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: log.WithField("module", "scoring"),
	}
}

// Interest weight tagging thresholds. Tags are for explainability; the
// points come straight from the configured weight.
const (
	highInterestMin   = 20.0
	mediumInterestMin = 1.0
)

// Score produces a StoryScore. An indicator with every metric
// unavailable gets the minimum score but is still returned, so a
// "no good story this week" condition stays visible in the ranking.
func (s *Scorer) Score(ind contracts.Indicator, dm contracts.DerivedMetrics) contracts.StoryScore {
	// No usable data at all: minimum score, no static bonuses. A run
	// where every fetch failed must not clear the viability floor on
	// interest weight alone.
	if !dm.Available {
		return contracts.StoryScore{Indicator: ind, Metrics: dm}
	}

	breakdown := contracts.ScoreBreakdown{}
	var tags []string

	// Magnitude: banded transform of |YoY %|. Unavailable YoY floors the
	// sub-score at zero; it is never an error.
	if abs, ok := dm.YoYPct.Abs(); ok {
		for _, band := range s.cfg.MagnitudeBands {
			if abs > band.MinAbsPct {
				breakdown.Magnitude = band.Points
				if band.Tag != "" {
					tags = append(tags, band.Tag)
				}
				break
			}
		}
	}

	// Static audience-relevance weight.
	breakdown.Interest = ind.InterestWeight
	if ind.InterestWeight >= highInterestMin {
		tags = append(tags, "high_public_interest")
	} else if ind.InterestWeight >= mediumInterestMin {
		tags = append(tags, "medium_public_interest")
	}

	// Consumer-pain bonus: fires only when the move points the way that
	// hurts, past the trigger threshold.
	if yoy, ok := dm.YoYPct.Value(); ok {
		hurt := (ind.PainDirection == contracts.PainWhenUp && yoy > s.cfg.Pain.TriggerPct) ||
			(ind.PainDirection == contracts.PainWhenDown && yoy < -s.cfg.Pain.TriggerPct)
		if hurt {
			breakdown.Pain = s.cfg.Pain.Points
			tags = append(tags, "consumer_pain_point")
		}
	}

	// Recency bonus.
	for _, band := range s.cfg.FreshnessBands {
		if dm.DaysOld < band.MaxDays {
			breakdown.Freshness = band.Points
			if band.Tag != "" {
				tags = append(tags, band.Tag)
			}
			break
		}
	}

	composite := breakdown.Magnitude + breakdown.Interest + breakdown.Pain + breakdown.Freshness
	if composite > s.cfg.MaxScore {
		composite = s.cfg.MaxScore
	}
	if composite < 0 {
		composite = 0
	}

	return contracts.StoryScore{
		Indicator: ind,
		Metrics:   dm,
		Composite: composite,
		RawScore:  composite,
		Breakdown: breakdown,
		Tags:      tags,
	}
}

// ScoreAll scores every indicator in order. Indicators with no data at
// all are included at minimum score rather than excluded, per the edge
// case policy.
func (s *Scorer) ScoreAll(indicators []contracts.Indicator, metrics map[string]contracts.DerivedMetrics) []contracts.StoryScore {
	scores := make([]contracts.StoryScore, 0, len(indicators))
	for _, ind := range indicators {
		dm, ok := metrics[ind.Code]
		if !ok {
			dm = contracts.AllUnavailable(contracts.ReasonNoData)
		}
		scores = append(scores, s.Score(ind, dm))
	}
	return scores
}
