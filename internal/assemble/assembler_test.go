package assemble

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/pkg/logger"
)

func newTestAssembler() *Assembler {
	return NewAssembler(15, 10, logger.NewNop())
}

func score(code string, raw float64) contracts.StoryScore {
	return contracts.StoryScore{
		Indicator: contracts.Indicator{Code: code},
		Composite: raw,
		RawScore:  raw,
	}
}

func validInput() Input {
	lead := score("gas_price", 80)
	return Input{
		Lead:       lead,
		Related:    []contracts.StoryScore{score("cpi", 55), score("oil_price", 50)},
		Ranked:     []contracts.StoryScore{lead, score("cpi", 55), score("oil_price", 50)},
		RunAt:      time.Date(2026, 1, 12, 12, 0, 0, 0, time.UTC),
		Episode:    7,
		ConfigHash: "abc123",
		Diagnostics: []contracts.FetchStatus{
			{Code: "gas_price", SeriesID: "GASREGW", Outcome: contracts.FetchOK, Observations: 104},
		},
	}
}

func TestAssembleStampsMetadata(t *testing.T) {
	in := validInput()

	pkg, err := newTestAssembler().Assemble(in)
	require.NoError(t, err)

	assert.Equal(t, "gas_price", pkg.Lead.Indicator.Code)
	assert.Equal(t, 7, pkg.Episode)
	assert.True(t, pkg.RunAt.Equal(in.RunAt))
	assert.Equal(t, "abc123", pkg.ConfigHash)
	assert.Len(t, pkg.Related, 2)
	assert.Len(t, pkg.Diagnostics, 1)
}

func TestAssemblePackageIncomplete(t *testing.T) {
	in := validInput()
	for i := range in.Ranked {
		in.Ranked[i].RawScore = 5
		in.Ranked[i].Composite = 5
	}

	_, err := newTestAssembler().Assemble(in)
	require.Error(t, err)
	assert.True(t, contracts.IsPackageIncomplete(err))

	var pie *contracts.PackageIncompleteError
	require.True(t, errors.As(err, &pie))
	assert.Equal(t, 15.0, pie.Floor)
	assert.Equal(t, 5.0, pie.BestScore)
}

func TestAssembleFloorUsesPrePenaltyScore(t *testing.T) {
	// A run whose only strong candidate is cooling down must still
	// produce a package: the floor reads RawScore, not the penalized
	// composite.
	in := validInput()
	in.Ranked = []contracts.StoryScore{
		{Indicator: contracts.Indicator{Code: "gas_price"}, Composite: 12, RawScore: 20, Penalized: true},
		{Indicator: contracts.Indicator{Code: "m2"}, Composite: 5, RawScore: 5},
	}
	in.Lead = in.Ranked[0]

	_, err := newTestAssembler().Assemble(in)
	assert.NoError(t, err)
}

func TestAssembleEmptyRanking(t *testing.T) {
	in := validInput()
	in.Ranked = nil

	_, err := newTestAssembler().Assemble(in)
	assert.Error(t, err)
	assert.False(t, contracts.IsPackageIncomplete(err))
}

func TestAssembleEmptyRelated(t *testing.T) {
	in := validInput()
	in.Related = nil

	_, err := newTestAssembler().Assemble(in)
	assert.Error(t, err)
}

func TestAssembleTruncatesRanked(t *testing.T) {
	in := validInput()
	for i := 0; i < 20; i++ {
		in.Ranked = append(in.Ranked, score("extra", 20))
	}

	pkg, err := newTestAssembler().Assemble(in)
	require.NoError(t, err)
	assert.Len(t, pkg.Ranked, 10)
}

func TestAssembleCopiesSlices(t *testing.T) {
	in := validInput()

	pkg, err := newTestAssembler().Assemble(in)
	require.NoError(t, err)

	in.Related[0].Indicator.Code = "mutated"
	in.Ranked[0].Indicator.Code = "mutated"

	assert.NotEqual(t, "mutated", pkg.Related[0].Indicator.Code,
		"package shares backing array with assembler input")
	assert.NotEqual(t, "mutated", pkg.Ranked[0].Indicator.Code)
}
