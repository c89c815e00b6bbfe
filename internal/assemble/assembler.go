package assemble

import (
	"fmt"
	"time"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/pkg/logger"
)

// Assembler composes the final StoryPackage: pure composition plus
// validation. The package is created fresh each run, handed downstream,
// and never mutated afterwards.
type Assembler struct {
	viabilityFloor float64
	rankedSize     int
	logger         *logger.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(viabilityFloor float64, rankedSize int, log *logger.Logger) *Assembler {
	return &Assembler{
		viabilityFloor: viabilityFloor,
		rankedSize:     rankedSize,
		logger:         log.WithField("module", "assemble"),
	}
}

// Input carries everything the assembler stamps into the package.
type Input struct {
	Lead        contracts.StoryScore
	Related     []contracts.StoryScore
	Ranked      []contracts.StoryScore
	RunAt       time.Time
	Episode     int
	ConfigHash  string
	Diagnostics []contracts.FetchStatus
}

// Assemble validates and freezes the run output. When no indicator
// clears the viability floor the run yields no package at all: that is
// a distinct condition from "low score" and tells the caller no
// sensible story exists this run (all data stale or missing).
//
// The floor is checked against pre-penalty scores, so a run is never
// declared storyless merely because its best candidate is cooling down.
func (a *Assembler) Assemble(in Input) (*contracts.StoryPackage, error) {
	if len(in.Ranked) == 0 {
		return nil, fmt.Errorf("assemble: empty ranking")
	}

	best := in.Ranked[0]
	for _, sc := range in.Ranked {
		if sc.RawScore > best.RawScore {
			best = sc
		}
	}
	if best.RawScore < a.viabilityFloor {
		return nil, &contracts.PackageIncompleteError{
			Floor:     a.viabilityFloor,
			BestScore: best.RawScore,
			BestCode:  best.Indicator.Code,
		}
	}

	if len(in.Related) == 0 {
		return nil, fmt.Errorf("assemble: no related indicators resolved for lead %s", in.Lead.Indicator.Code)
	}

	ranked := in.Ranked
	if len(ranked) > a.rankedSize {
		ranked = ranked[:a.rankedSize]
	}

	pkg := &contracts.StoryPackage{
		Lead:        in.Lead,
		Related:     append([]contracts.StoryScore(nil), in.Related...),
		Ranked:      append([]contracts.StoryScore(nil), ranked...),
		RunAt:       in.RunAt,
		Episode:     in.Episode,
		ConfigHash:  in.ConfigHash,
		Diagnostics: append([]contracts.FetchStatus(nil), in.Diagnostics...),
	}

	a.logger.WithFields(map[string]interface{}{
		"episode":   pkg.Episode,
		"lead":      pkg.Lead.Indicator.Code,
		"composite": pkg.Lead.Composite,
		"related":   len(pkg.Related),
	}).Info("Story package assembled")

	return pkg, nil
}
