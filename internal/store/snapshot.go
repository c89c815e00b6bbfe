package store

import (
	"github.com/moneymap/moneymap/internal/contracts"
)

// Snapshot is the complete, consistent view of all indicator series for
// one run. The snapshot owns its observations; accessors hand out copies
// so scoring stages can never reach back into shared state.
type Snapshot struct {
	series   map[string]contracts.Series
	statuses map[string]contracts.FetchStatus
	order    []string // indicator codes in configured order
}

// NewSnapshot builds a snapshot. Codes fixes iteration order so every
// downstream traversal is deterministic.
func NewSnapshot(codes []string) *Snapshot {
	return &Snapshot{
		series:   make(map[string]contracts.Series, len(codes)),
		statuses: make(map[string]contracts.FetchStatus, len(codes)),
		order:    append([]string(nil), codes...),
	}
}

// Put stores the fetch result for one indicator.
func (s *Snapshot) Put(code string, series contracts.Series, status contracts.FetchStatus) {
	s.series[code] = series
	s.statuses[code] = status
}

// Series returns a copy of the stored series for a code.
func (s *Snapshot) Series(code string) (contracts.Series, bool) {
	ser, ok := s.series[code]
	if !ok || ser == nil {
		return nil, false
	}
	return ser.Copy(), true
}

// Status returns the fetch status for a code.
func (s *Snapshot) Status(code string) (contracts.FetchStatus, bool) {
	st, ok := s.statuses[code]
	return st, ok
}

// Codes returns indicator codes in configured order.
func (s *Snapshot) Codes() []string {
	return append([]string(nil), s.order...)
}

// Statuses returns all fetch statuses in configured order, for run
// diagnostics.
func (s *Snapshot) Statuses() []contracts.FetchStatus {
	out := make([]contracts.FetchStatus, 0, len(s.order))
	for _, code := range s.order {
		if st, ok := s.statuses[code]; ok {
			out = append(out, st)
		}
	}
	return out
}

// FetchedCount returns how many indicators produced usable data.
func (s *Snapshot) FetchedCount() int {
	n := 0
	for _, st := range s.statuses {
		if st.Outcome == contracts.FetchOK {
			n++
		}
	}
	return n
}
