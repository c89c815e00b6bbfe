package contracts

import (
	"encoding/json"
	"testing"
)

func TestMetricStates(t *testing.T) {
	defined := DefinedMetric(-4.2)
	if !defined.Defined() {
		t.Error("expected defined metric")
	}
	if v, ok := defined.Value(); !ok || v != -4.2 {
		t.Errorf("Value() = %v, %v, want -4.2, true", v, ok)
	}
	if abs, ok := defined.Abs(); !ok || abs != 4.2 {
		t.Errorf("Abs() = %v, %v, want 4.2, true", abs, ok)
	}
	if defined.Reason() != "" {
		t.Errorf("defined metric has reason %q", defined.Reason())
	}

	unavail := UnavailableMetric(ReasonNoPriorObservation)
	if unavail.Defined() {
		t.Error("expected unavailable metric")
	}
	if _, ok := unavail.Value(); ok {
		t.Error("unavailable metric returned a value")
	}
	if _, ok := unavail.Abs(); ok {
		t.Error("unavailable metric returned an abs value")
	}
	if unavail.Reason() != ReasonNoPriorObservation {
		t.Errorf("Reason() = %q, want %q", unavail.Reason(), ReasonNoPriorObservation)
	}
}

func TestMetricZeroIsNotUnavailable(t *testing.T) {
	// A literal zero change is a real value; it must stay distinguishable
	// from missing data through a JSON round trip.
	zero := DefinedMetric(0)

	data, err := json.Marshal(zero)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Metric
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !back.Defined() {
		t.Error("zero metric decoded as unavailable")
	}
	if v, _ := back.Value(); v != 0 {
		t.Errorf("decoded value = %v, want 0", v)
	}
}

func TestMetricJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
	}{
		{"defined negative", DefinedMetric(-30.8)},
		{"defined positive", DefinedMetric(7.1)},
		{"no data", UnavailableMetric(ReasonNoData)},
		{"zero division", UnavailableMetric(ReasonDivisionUndefined)},
		{"fetch failed", UnavailableMetric(ReasonFetchFailed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.metric)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var back Metric
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if back.Defined() != tt.metric.Defined() {
				t.Errorf("Defined() changed across round trip")
			}
			if v1, _ := tt.metric.Value(); true {
				if v2, _ := back.Value(); v1 != v2 {
					t.Errorf("value changed: %v -> %v", v1, v2)
				}
			}
			if back.Reason() != tt.metric.Reason() {
				t.Errorf("reason changed: %q -> %q", tt.metric.Reason(), back.Reason())
			}
		})
	}
}

func TestAllUnavailable(t *testing.T) {
	dm := AllUnavailable(ReasonFetchFailed)

	if dm.Available {
		t.Error("expected Available=false")
	}
	for name, m := range map[string]Metric{
		"latest": dm.LatestValue,
		"yoy":    dm.YoYChange,
		"yoypct": dm.YoYPct,
		"pop":    dm.PoPPct,
		"prior":  dm.PriorValue,
	} {
		if m.Defined() {
			t.Errorf("%s: expected unavailable", name)
		}
		if m.Reason() != ReasonFetchFailed {
			t.Errorf("%s: reason = %q, want fetch_failed", name, m.Reason())
		}
	}
}
