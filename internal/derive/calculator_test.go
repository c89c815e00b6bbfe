package derive

import (
	"math"
	"testing"
	"time"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/storyconfig"
	"github.com/moneymap/moneymap/pkg/logger"
)

var testOpts = storyconfig.Derive{
	YoYToleranceDays:      20,
	FreshnessHalfLifeDays: 45,
}

func newTestCalculator() *Calculator {
	return NewCalculator(testOpts, logger.NewNop())
}

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func monthly(start time.Time, values ...float64) contracts.Series {
	series := make(contracts.Series, len(values))
	for i, v := range values {
		series[i] = contracts.Observation{Date: start.AddDate(0, i, 0), Value: v}
	}
	return series
}

func TestComputeYoY(t *testing.T) {
	calc := newTestCalculator()

	// 13 monthly observations ending at the reference month; year-ago
	// value 100, latest 110.
	series := monthly(d(2025, 1, 1),
		100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 110)

	dm := calc.Compute(series, d(2026, 1, 15))

	if !dm.Available {
		t.Fatal("expected available metrics")
	}

	if v, ok := dm.LatestValue.Value(); !ok || v != 110 {
		t.Errorf("LatestValue = %v, %v, want 110", v, ok)
	}

	if v, ok := dm.PriorValue.Value(); !ok || v != 100 {
		t.Errorf("PriorValue = %v, %v, want 100", v, ok)
	}

	if v, ok := dm.YoYChange.Value(); !ok || v != 10 {
		t.Errorf("YoYChange = %v, %v, want 10", v, ok)
	}

	if pct, ok := dm.YoYPct.Value(); !ok || math.Abs(pct-10) > 1e-9 {
		t.Errorf("YoYPct = %v, %v, want 10", pct, ok)
	}

	// PoP compares Jan 2026 (110) against Dec 2025 (111)
	wantPoP := (110.0 - 111.0) / 111.0 * 100
	if pct, ok := dm.PoPPct.Value(); !ok || math.Abs(pct-wantPoP) > 1e-9 {
		t.Errorf("PoPPct = %v, %v, want %v", pct, ok, wantPoP)
	}
}

func TestComputeYoYToleranceWindow(t *testing.T) {
	calc := newTestCalculator()

	// Year-ago target is 2025-01-15. The candidate sits 18 days away:
	// inside the 20-day tolerance.
	inside := contracts.Series{
		{Date: d(2025, 1, 2), Value: 50}, // incidentally 13 days away; closest
		{Date: d(2026, 1, 10), Value: 60},
	}
	dm := calc.Compute(inside, d(2026, 1, 15))
	if !dm.YoYPct.Defined() {
		t.Errorf("expected YoY within tolerance, got reason %q", dm.YoYPct.Reason())
	}

	// Nothing within tolerance of the year-ago target.
	outside := contracts.Series{
		{Date: d(2025, 3, 1), Value: 50},
		{Date: d(2026, 1, 10), Value: 60},
	}
	dm = calc.Compute(outside, d(2026, 1, 15))
	if dm.YoYPct.Defined() {
		t.Error("expected unavailable YoY outside tolerance")
	}
	if dm.YoYPct.Reason() != contracts.ReasonNoPriorObservation {
		t.Errorf("reason = %q, want no_prior_observation", dm.YoYPct.Reason())
	}

	// The unavailable YoY must not surface as a numeric zero.
	if v, ok := dm.YoYPct.Value(); ok {
		t.Errorf("unavailable YoY surfaced a value: %v", v)
	}
}

func TestComputeZeroBase(t *testing.T) {
	calc := newTestCalculator()

	series := contracts.Series{
		{Date: d(2025, 1, 15), Value: 0},
		{Date: d(2026, 1, 10), Value: 5},
	}

	dm := calc.Compute(series, d(2026, 1, 15))

	// Absolute change is fine; percent change against zero is not.
	if v, ok := dm.YoYChange.Value(); !ok || v != 5 {
		t.Errorf("YoYChange = %v, %v, want 5", v, ok)
	}
	if dm.YoYPct.Defined() {
		t.Error("expected undefined YoY%% against zero base")
	}
	if dm.YoYPct.Reason() != contracts.ReasonDivisionUndefined {
		t.Errorf("reason = %q, want division_undefined", dm.YoYPct.Reason())
	}
}

func TestComputeNegativeBase(t *testing.T) {
	calc := newTestCalculator()

	// Percent change against a negative base divides by |base| so the
	// sign of the change is preserved.
	series := contracts.Series{
		{Date: d(2025, 1, 15), Value: -10},
		{Date: d(2026, 1, 10), Value: -5},
	}

	dm := calc.Compute(series, d(2026, 1, 15))
	if pct, ok := dm.YoYPct.Value(); !ok || math.Abs(pct-50) > 1e-9 {
		t.Errorf("YoYPct = %v, %v, want +50", pct, ok)
	}
}

func TestComputeEmptySeries(t *testing.T) {
	calc := newTestCalculator()

	dm := calc.Compute(contracts.Series{}, d(2026, 1, 15))
	if dm.Available {
		t.Error("expected unavailable metrics for empty series")
	}
	if dm.LatestValue.Reason() != contracts.ReasonNoData {
		t.Errorf("reason = %q, want no_data", dm.LatestValue.Reason())
	}
}

func TestComputeSingleObservation(t *testing.T) {
	calc := newTestCalculator()

	series := contracts.Series{{Date: d(2026, 1, 10), Value: 42}}
	dm := calc.Compute(series, d(2026, 1, 15))

	if !dm.Available {
		t.Fatal("expected available metrics")
	}
	if v, ok := dm.LatestValue.Value(); !ok || v != 42 {
		t.Errorf("LatestValue = %v, %v, want 42", v, ok)
	}
	if dm.YoYPct.Defined() || dm.PoPPct.Defined() {
		t.Error("single observation cannot yield change metrics")
	}
}

func TestComputeStaleAnnualSeries(t *testing.T) {
	calc := newTestCalculator()

	// An annual series whose latest observation is itself about a year
	// old: the latest lands inside the year-ago tolerance window and
	// must not be matched against itself as a fake 0% change.
	series := contracts.Series{
		{Date: d(2023, 9, 1), Value: 100},
		{Date: d(2024, 9, 1), Value: 110},
	}

	dm := calc.Compute(series, d(2025, 8, 29))

	if !dm.Available {
		t.Fatal("expected available metrics")
	}
	if v, ok := dm.LatestValue.Value(); !ok || v != 110 {
		t.Errorf("LatestValue = %v, %v, want 110", v, ok)
	}
	if dm.YoYPct.Defined() {
		pct, _ := dm.YoYPct.Value()
		t.Errorf("YoYPct = %v defined, want unavailable (latest would compare to itself)", pct)
	}
	if dm.YoYPct.Reason() != contracts.ReasonNoPriorObservation {
		t.Errorf("reason = %q, want no_prior_observation", dm.YoYPct.Reason())
	}
	if !dm.PriorDate.IsZero() {
		t.Errorf("PriorDate = %v, want zero", dm.PriorDate)
	}
}

func TestFreshnessDecay(t *testing.T) {
	calc := newTestCalculator()

	if f := calc.freshness(0); f != 1.0 {
		t.Errorf("freshness(0) = %v, want 1.0", f)
	}

	// Exactly one half-life old scores 0.5.
	if f := calc.freshness(testOpts.FreshnessHalfLifeDays); math.Abs(f-0.5) > 1e-9 {
		t.Errorf("freshness(half-life) = %v, want 0.5", f)
	}

	// Strictly decreasing, always positive.
	prev := 1.1
	for _, days := range []int{1, 7, 30, 45, 90, 365, 3650} {
		f := calc.freshness(days)
		if f <= 0 || f > 1 {
			t.Errorf("freshness(%d) = %v, outside (0, 1]", days, f)
		}
		if f >= prev {
			t.Errorf("freshness(%d) = %v, not strictly decreasing", days, f)
		}
		prev = f
	}
}

func TestComputeDeterministic(t *testing.T) {
	calc := newTestCalculator()
	series := monthly(d(2025, 1, 1), 100, 102, 99, 105, 108, 104, 110, 112, 111, 115, 118, 120, 119)
	ref := d(2026, 1, 20)

	a := calc.Compute(series, ref)
	b := calc.Compute(series, ref)
	if a != b {
		t.Error("Compute is not deterministic for identical inputs")
	}
}
