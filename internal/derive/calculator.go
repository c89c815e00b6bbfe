package derive

import (
	"math"
	"time"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/storyconfig"
	"github.com/moneymap/moneymap/pkg/logger"
)

// Calculator computes derived metrics for one series against a
// reference date. Pure: same series, reference date, and options always
// produce the same metrics.
type Calculator struct {
	opts   storyconfig.Derive
	logger *logger.Logger
}

// NewCalculator creates a calculator.
func NewCalculator(opts storyconfig.Derive, log *logger.Logger) *Calculator {
	return &Calculator{
		opts:   opts,
		logger: log.WithField("module", "derive"),
	}
}

// Compute derives metrics from a series. A missing year-ago match or a
// zero comparison base yields an explicitly unavailable metric, never a
// numeric zero.
func (c *Calculator) Compute(series contracts.Series, ref time.Time) contracts.DerivedMetrics {
	latest, ok := series.LatestAtOrBefore(ref)
	if !ok {
		return contracts.AllUnavailable(contracts.ReasonNoData)
	}

	daysOld := int(ref.Sub(latest.Date).Hours() / 24)

	dm := contracts.DerivedMetrics{
		LatestValue: contracts.DefinedMetric(latest.Value),
		LatestDate:  latest.Date,
		DaysOld:     daysOld,
		Freshness:   c.freshness(daysOld),
		Available:   true,
	}

	dm.PriorValue, dm.PriorDate, dm.YoYChange, dm.YoYPct = c.yearOverYear(series, latest, ref)
	dm.PoPPct = c.periodOverPeriod(series, latest)

	return dm
}

// yearOverYear matches the observation nearest to (ref - 12 months)
// within the tolerance window, tolerating monthly reporting-date drift.
func (c *Calculator) yearOverYear(series contracts.Series, latest contracts.Observation, ref time.Time) (contracts.Metric, time.Time, contracts.Metric, contracts.Metric) {
	target := ref.AddDate(-1, 0, 0)
	tolerance := time.Duration(c.opts.YoYToleranceDays) * 24 * time.Hour

	prior, ok := series.NearestWithin(target, tolerance)
	if !ok || !prior.Date.Before(latest.Date) {
		// A stale annual series can land its latest observation inside
		// the year-ago window; comparing it to itself would report a
		// defined 0% change where there is no prior at all.
		unavail := contracts.UnavailableMetric(contracts.ReasonNoPriorObservation)
		return unavail, time.Time{}, unavail, unavail
	}

	change := contracts.DefinedMetric(latest.Value - prior.Value)

	if prior.Value == 0 {
		return contracts.DefinedMetric(prior.Value), prior.Date, change,
			contracts.UnavailableMetric(contracts.ReasonDivisionUndefined)
	}

	pct := (latest.Value - prior.Value) / math.Abs(prior.Value) * 100
	return contracts.DefinedMetric(prior.Value), prior.Date, change, contracts.DefinedMetric(pct)
}

// periodOverPeriod compares the latest observation to the one before it.
func (c *Calculator) periodOverPeriod(series contracts.Series, latest contracts.Observation) contracts.Metric {
	var prev *contracts.Observation
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Date.Before(latest.Date) {
			prev = &series[i]
			break
		}
	}
	if prev == nil {
		return contracts.UnavailableMetric(contracts.ReasonNoPriorObservation)
	}
	if prev.Value == 0 {
		return contracts.UnavailableMetric(contracts.ReasonDivisionUndefined)
	}
	return contracts.DefinedMetric((latest.Value - prev.Value) / math.Abs(prev.Value) * 100)
}

// freshness decays exponentially with age: a series exactly
// half-life days old scores 0.5. Strictly decreasing in daysOld, always
// in (0, 1]. Stale series are not filtered out; the score just rewards
// recency.
func (c *Calculator) freshness(daysOld int) float64 {
	if daysOld <= 0 {
		return 1.0
	}
	halfLife := float64(c.opts.FreshnessHalfLifeDays)
	return math.Exp(-float64(daysOld) / halfLife * math.Ln2)
}
