package contracts

import (
	"encoding/json"
	"time"
)

// UnavailableReason explains why a derived metric has no value.
type UnavailableReason string

const (
	// ReasonNoData: the series has no usable observation in the run window.
	ReasonNoData UnavailableReason = "no_data"
	// ReasonNoPriorObservation: no observation within tolerance of the
	// comparison date (e.g. nothing near 12 months back).
	ReasonNoPriorObservation UnavailableReason = "no_prior_observation"
	// ReasonDivisionUndefined: the comparison base was zero.
	ReasonDivisionUndefined UnavailableReason = "division_undefined"
	// ReasonFetchFailed: the upstream fetch for the indicator failed.
	ReasonFetchFailed UnavailableReason = "fetch_failed"
)

// Metric is a tagged value: either a defined float or an explicit
// unavailable state. An unavailable metric is never coerced to zero,
// so script text downstream cannot claim a false "0% change".
type Metric struct {
	value   float64
	defined bool
	reason  UnavailableReason
}

// DefinedMetric returns a defined metric.
func DefinedMetric(v float64) Metric {
	return Metric{value: v, defined: true}
}

// UnavailableMetric returns an unavailable metric with a reason.
func UnavailableMetric(reason UnavailableReason) Metric {
	return Metric{reason: reason}
}

// Defined reports whether the metric has a value.
func (m Metric) Defined() bool {
	return m.defined
}

// Value returns the metric value and whether it is defined.
func (m Metric) Value() (float64, bool) {
	return m.value, m.defined
}

// Abs returns |value| for a defined metric, and false otherwise.
func (m Metric) Abs() (float64, bool) {
	if !m.defined {
		return 0, false
	}
	if m.value < 0 {
		return -m.value, true
	}
	return m.value, true
}

// Reason returns the unavailability reason. Empty for defined metrics.
func (m Metric) Reason() UnavailableReason {
	if m.defined {
		return ""
	}
	return m.reason
}

type metricJSON struct {
	Defined bool              `json:"defined"`
	Value   *float64          `json:"value,omitempty"`
	Reason  UnavailableReason `json:"reason,omitempty"`
}

// MarshalJSON encodes the metric so missing data stays distinguishable
// from a literal zero.
func (m Metric) MarshalJSON() ([]byte, error) {
	out := metricJSON{Defined: m.defined}
	if m.defined {
		v := m.value
		out.Value = &v
	} else {
		out.Reason = m.reason
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged form.
func (m *Metric) UnmarshalJSON(data []byte) error {
	var in metricJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Defined && in.Value != nil {
		*m = DefinedMetric(*in.Value)
	} else {
		*m = UnavailableMetric(in.Reason)
	}
	return nil
}

// DerivedMetrics holds everything computed from one indicator's series
// for a single run.
type DerivedMetrics struct {
	LatestValue Metric    `json:"latest_value"`
	LatestDate  time.Time `json:"latest_date"`

	YoYChange Metric `json:"yoy_change"` // absolute change vs ~12 months prior
	YoYPct    Metric `json:"yoy_pct"`    // percent change vs ~12 months prior
	PoPPct    Metric `json:"pop_pct"`    // percent change vs previous observation

	PriorValue Metric    `json:"prior_value"` // the matched ~12-months-back value
	PriorDate  time.Time `json:"prior_date"`

	// DaysOld counts days between the reference date and the latest
	// observation; Freshness is a monotone decay of it in (0, 1].
	DaysOld   int     `json:"days_old"`
	Freshness float64 `json:"freshness"`

	// Available is false when the series had no usable observation at all.
	Available bool `json:"available"`
}

// AllUnavailable builds metrics for an indicator whose data never arrived.
func AllUnavailable(reason UnavailableReason) DerivedMetrics {
	return DerivedMetrics{
		LatestValue: UnavailableMetric(reason),
		YoYChange:   UnavailableMetric(reason),
		YoYPct:      UnavailableMetric(reason),
		PoPPct:      UnavailableMetric(reason),
		PriorValue:  UnavailableMetric(reason),
		Available:   false,
	}
}
