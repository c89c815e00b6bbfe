package selection

import (
	"github.com/moneymap/moneymap/internal/contracts"
)

// ResolveRelated picks the indicators mentioned alongside the lead
// story: statically declared relations first, in their declared order,
// then score-based fallback from the lead's category, then from the
// rest of the ranking. Never returns the lead itself or a duplicate.
//
// Pure function over (lead, ranked list, relation table); the table is
// injected configuration, so resolution is independently testable.
func ResolveRelated(lead contracts.StoryScore, ranked []contracts.StoryScore, relations map[string][]string, min, max int) []contracts.StoryScore {
	leadCode := lead.Indicator.Code

	byCode := make(map[string]contracts.StoryScore, len(ranked))
	for _, sc := range ranked {
		byCode[sc.Indicator.Code] = sc
	}

	related := make([]contracts.StoryScore, 0, max)
	taken := map[string]bool{leadCode: true}

	add := func(sc contracts.StoryScore) bool {
		if len(related) >= max || taken[sc.Indicator.Code] {
			return false
		}
		related = append(related, sc)
		taken[sc.Indicator.Code] = true
		return true
	}

	// Declared relations, in declared order, restricted to indicators
	// actually present in this run's ranking.
	for _, code := range relations[leadCode] {
		if sc, ok := byCode[code]; ok {
			add(sc)
		}
		if len(related) >= max {
			break
		}
	}

	if len(related) >= min {
		return related
	}

	// Fallback: next-highest-scoring indicators from the lead's
	// category. The ranked list is already in selection order, so
	// iterating it keeps the fill deterministic.
	for _, sc := range ranked {
		if sc.Indicator.Category == lead.Indicator.Category {
			add(sc)
		}
		if len(related) >= min {
			return related
		}
	}

	// Category exhausted: fill from the overall ranking so a small or
	// lopsided universe still yields the minimum slot count.
	for _, sc := range ranked {
		add(sc)
		if len(related) >= min {
			break
		}
	}

	return related
}
