package selection

import (
	"fmt"
	"sort"
	"time"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/storyconfig"
	"github.com/moneymap/moneymap/pkg/logger"
)

// Selector ranks scored indicators and picks the lead story. Ordering
// is a deterministic total order: composite desc, then |YoY| desc, then
// code asc. Downstream tests assert literal winners, so no tie may ever
// resolve nondeterministically.
type Selector struct {
	policy storyconfig.Selection
	logger *logger.Logger
}

// NewSelector creates a selector.
func NewSelector(policy storyconfig.Selection, log *logger.Logger) *Selector {
	return &Selector{
		policy: policy,
		logger: log.WithField("module", "selection"),
	}
}

// Selection is the selector output: the lead, the full ranked list for
// diagnostics, and the cooldown log with this run's lead appended.
type Selection struct {
	Lead       contracts.StoryScore
	Ranked     []contracts.StoryScore
	UpdatedLog contracts.CooldownLog
}

// Select applies the cooldown penalty, ranks all scores, and picks
// exactly one lead. The cooldown log is passed in by value and returned
// updated; callers thread it between runs explicitly.
func (s *Selector) Select(scores []contracts.StoryScore, cooldown contracts.CooldownLog, episode int, runAt time.Time) (*Selection, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("no story scores to select from")
	}

	ranked := make([]contracts.StoryScore, len(scores))
	copy(ranked, scores)

	// Cooldown: a recent lead is deprioritized by a fixed factor, never
	// hard-excluded; it can still win if nothing else is competitive.
	recent := cooldown.RecentCodes(s.policy.CooldownWindow)
	for i := range ranked {
		ranked[i].Composite = ranked[i].RawScore
		ranked[i].Penalized = false
		if recent[ranked[i].Indicator.Code] {
			ranked[i].Composite = ranked[i].RawScore * s.policy.CooldownPenalty
			ranked[i].Penalized = true
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	lead := ranked[0]
	updated := cooldown.Append(contracts.CooldownEntry{
		Code:    lead.Indicator.Code,
		Episode: episode,
		RunAt:   runAt,
	})

	s.logger.WithFields(map[string]interface{}{
		"lead":      lead.Indicator.Code,
		"composite": lead.Composite,
		"penalized": lead.Penalized,
		"candidates": len(ranked),
	}).Info("Lead story selected")

	return &Selection{
		Lead:       lead,
		Ranked:     ranked,
		UpdatedLog: updated,
	}, nil
}

// less implements the total order. A defined YoY of any magnitude beats
// an unavailable one in the tie-break.
func less(a, b contracts.StoryScore) bool {
	if a.Composite != b.Composite {
		return a.Composite > b.Composite
	}

	absA, okA := a.Metrics.YoYPct.Abs()
	absB, okB := b.Metrics.YoYPct.Abs()
	if okA != okB {
		return okA
	}
	if okA && absA != absB {
		return absA > absB
	}

	return a.Indicator.Code < b.Indicator.Code
}
