package contracts

import (
	"fmt"
	"time"
)

// Observation is a single dated value for one indicator.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is the ordered history of observations for one indicator.
// Dates are strictly increasing; spacing is irregular (monthly and
// weekly series coexist).
type Series []Observation

// Validate enforces the series invariant: strictly increasing dates,
// no duplicates.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return fmt.Errorf("series not strictly increasing at index %d: %s >= %s",
				i, s[i-1].Date.Format("2006-01-02"), s[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// LatestAtOrBefore returns the last observation dated at or before ref.
func (s Series) LatestAtOrBefore(ref time.Time) (Observation, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Date.After(ref) {
			return s[i], true
		}
	}
	return Observation{}, false
}

// NearestWithin returns the observation closest to target, provided its
// distance is within tolerance. Ties resolve to the earlier observation.
func (s Series) NearestWithin(target time.Time, tolerance time.Duration) (Observation, bool) {
	best := Observation{}
	bestDist := tolerance + 1
	found := false

	for _, obs := range s {
		dist := obs.Date.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if dist <= tolerance && (!found || dist < bestDist) {
			best = obs
			bestDist = dist
			found = true
		}
	}

	return best, found
}

// Copy returns an independent copy of the series. Downstream stages hold
// copies, never views into the store.
func (s Series) Copy() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}
