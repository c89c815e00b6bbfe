package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/store"
	"github.com/moneymap/moneymap/internal/storyconfig"
	"github.com/moneymap/moneymap/pkg/logger"
)

// fakeCollector returns a pre-built snapshot.
type fakeCollector struct {
	snapshot *store.Snapshot
}

func (f *fakeCollector) Collect(ctx context.Context, indicators []contracts.Indicator, since time.Time) *store.Snapshot {
	return f.snapshot
}

// memStore is an in-memory Store for runner tests.
type memStore struct {
	saved    map[string]contracts.Series
	cooldown contracts.CooldownLog
	packages []*contracts.StoryPackage
	episode  int
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]contracts.Series), episode: 1}
}

func (m *memStore) SaveSeries(ctx context.Context, code string, series contracts.Series) error {
	m.saved[code] = series
	return nil
}

func (m *memStore) LoadCooldown(ctx context.Context, limit int) (contracts.CooldownLog, error) {
	return m.cooldown, nil
}

func (m *memStore) AppendCooldown(ctx context.Context, entry contracts.CooldownEntry) error {
	m.cooldown = m.cooldown.Append(entry)
	return nil
}

func (m *memStore) NextEpisode(ctx context.Context) (int, error) {
	return m.episode, nil
}

func (m *memStore) SaveStoryPackage(ctx context.Context, pkg *contracts.StoryPackage) error {
	m.packages = append(m.packages, pkg)
	return nil
}

func testStrategy() *storyconfig.Config {
	return &storyconfig.Config{
		Meta: storyconfig.Meta{StrategyID: "test", Version: "1"},
		Indicators: []contracts.Indicator{
			{Code: "gas_price", SeriesID: "GASREGW", Category: contracts.CategoryInflation,
				InterestWeight: 25, PainDirection: contracts.PainWhenUp},
			{Code: "cpi", SeriesID: "CPIAUCSL", Category: contracts.CategoryInflation,
				InterestWeight: 25, PainDirection: contracts.PainWhenUp},
			{Code: "oil_price", SeriesID: "DCOILWTICO", Category: contracts.CategoryInflation,
				InterestWeight: 15, PainDirection: contracts.PainWhenUp},
			{Code: "unemployment", SeriesID: "UNRATE", Category: contracts.CategoryEmployment,
				InterestWeight: 25, PainDirection: contracts.PainWhenUp},
		},
		Derive: storyconfig.Derive{YoYToleranceDays: 20, FreshnessHalfLifeDays: 45},
		Scoring: storyconfig.Scoring{
			MagnitudeBands: []storyconfig.Band{
				{MinAbsPct: 20, Points: 40, Tag: "dramatic_change"},
				{MinAbsPct: 10, Points: 30},
				{MinAbsPct: 2, Points: 10},
			},
			FreshnessBands: []storyconfig.FreshBand{
				{MaxDays: 30, Points: 10, Tag: "very_fresh"},
				{MaxDays: 90, Points: 5},
			},
			Pain:     storyconfig.Pain{Points: 15, TriggerPct: 5},
			MaxScore: 100,
		},
		Selection: storyconfig.Selection{
			CooldownWindow:  3,
			CooldownPenalty: 0.6,
			ViabilityFloor:  15,
			RankedSize:      10,
			RelatedMin:      2,
			RelatedMax:      4,
		},
		Relations: map[string][]string{
			"gas_price": {"oil_price", "cpi"},
		},
	}
}

var fixedNow = time.Date(2026, 1, 12, 12, 0, 0, 0, time.UTC)

// yearSeries builds 13 monthly observations ending one week before
// fixedNow, moving from start to end linearly.
func yearSeries(start, end float64) contracts.Series {
	first := fixedNow.AddDate(-1, 0, -7)
	series := make(contracts.Series, 13)
	for i := 0; i < 13; i++ {
		frac := float64(i) / 12
		series[i] = contracts.Observation{
			Date:  first.AddDate(0, i, 0),
			Value: start + (end-start)*frac,
		}
	}
	return series
}

func fullSnapshot(cfg *storyconfig.Config) *store.Snapshot {
	codes := make([]string, len(cfg.Indicators))
	for i, ind := range cfg.Indicators {
		codes[i] = ind.Code
	}
	snap := store.NewSnapshot(codes)

	data := map[string]contracts.Series{
		"gas_price":    yearSeries(3.0, 4.2), // +40% YoY
		"cpi":          yearSeries(300, 318), // +6%
		"oil_price":    yearSeries(70, 77),   // +10%
		"unemployment": yearSeries(4.0, 4.1), // +2.5%
	}
	for code, series := range data {
		snap.Put(code, series, contracts.FetchStatus{
			Code: code, Outcome: contracts.FetchOK, Observations: len(series),
		})
	}
	return snap
}

func failedSnapshot(cfg *storyconfig.Config) *store.Snapshot {
	codes := make([]string, len(cfg.Indicators))
	for i, ind := range cfg.Indicators {
		codes[i] = ind.Code
	}
	snap := store.NewSnapshot(codes)
	for _, ind := range cfg.Indicators {
		snap.Put(ind.Code, nil, contracts.FetchStatus{
			Code: ind.Code, SeriesID: ind.SeriesID,
			Outcome: contracts.FetchTransient, Error: "connection refused",
		})
	}
	return snap
}

func newTestRunner(t *testing.T, cfg *storyconfig.Config, snap *store.Snapshot, repo Store) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, &fakeCollector{snapshot: snap}, repo, logger.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r.WithClock(func() time.Time { return fixedNow })
}

func TestRunProducesPackage(t *testing.T) {
	cfg := testStrategy()
	repo := newMemStore()
	repo.episode = 7
	r := newTestRunner(t, cfg, fullSnapshot(cfg), repo)

	pkg, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// gas_price: +40% YoY (40) + weight 25 + pain 15 + fresh 10 = 90.
	if pkg.Lead.Indicator.Code != "gas_price" {
		t.Errorf("lead = %s, want gas_price", pkg.Lead.Indicator.Code)
	}
	if pkg.Episode != 7 {
		t.Errorf("episode = %d, want 7", pkg.Episode)
	}
	if !pkg.RunAt.Equal(fixedNow) {
		t.Errorf("run_at = %v, want fixed clock", pkg.RunAt)
	}
	if pkg.ConfigHash == "" {
		t.Error("config hash not stamped")
	}

	// Declared relations resolved in order.
	if len(pkg.Related) < 2 {
		t.Fatalf("related = %d entries, want >= 2", len(pkg.Related))
	}
	if pkg.Related[0].Indicator.Code != "oil_price" || pkg.Related[1].Indicator.Code != "cpi" {
		t.Errorf("related order = %s, %s", pkg.Related[0].Indicator.Code, pkg.Related[1].Indicator.Code)
	}

	// Every indicator appears in diagnostics.
	if len(pkg.Diagnostics) != len(cfg.Indicators) {
		t.Errorf("diagnostics = %d, want %d", len(pkg.Diagnostics), len(cfg.Indicators))
	}

	// Persisted: package, series, cooldown entry for the lead.
	if len(repo.packages) != 1 {
		t.Errorf("saved packages = %d", len(repo.packages))
	}
	if len(repo.saved) != len(cfg.Indicators) {
		t.Errorf("saved series = %d, want %d", len(repo.saved), len(cfg.Indicators))
	}
	if len(repo.cooldown) != 1 || repo.cooldown[0].Code != "gas_price" {
		t.Errorf("cooldown = %+v", repo.cooldown)
	}
}

func TestRunAllFetchesFail(t *testing.T) {
	cfg := testStrategy()
	repo := newMemStore()
	r := newTestRunner(t, cfg, failedSnapshot(cfg), repo)

	_, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected PackageIncomplete")
	}
	if !contracts.IsPackageIncomplete(err) {
		t.Fatalf("got %v, want PackageIncomplete", err)
	}

	// The failed run persists nothing: no package, no cooldown entry.
	if len(repo.packages) != 0 {
		t.Error("failed run persisted a package")
	}
	if len(repo.cooldown) != 0 {
		t.Error("failed run appended to cooldown history")
	}
}

func TestRunCooldownAcrossRuns(t *testing.T) {
	cfg := testStrategy()
	repo := newMemStore()
	snap := fullSnapshot(cfg)

	r := newTestRunner(t, cfg, snap, repo)

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run 1 failed: %v", err)
	}
	if first.Lead.Indicator.Code != "gas_price" {
		t.Fatalf("run 1 lead = %s", first.Lead.Indicator.Code)
	}

	// Identical data next run: gas_price cools down (90*0.6=54), cpi
	// (10+25+15+10=60) takes the lead.
	repo.episode = 2
	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run 2 failed: %v", err)
	}
	if second.Lead.Indicator.Code == "gas_price" {
		t.Error("run 2 lead repeated despite cooldown")
	}

	leadScore := second.Ranked[0]
	for _, sc := range second.Ranked {
		if sc.Indicator.Code == "gas_price" {
			if !sc.Penalized {
				t.Error("gas_price not penalized in run 2")
			}
		}
	}
	if leadScore.Penalized {
		t.Error("run 2 lead should not be penalized")
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := testStrategy()

	run := func() []byte {
		repo := newMemStore()
		r := newTestRunner(t, cfg, fullSnapshot(cfg), repo)
		pkg, err := r.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		data, err := json.Marshal(pkg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return data
	}

	a := run()
	b := run()
	if string(a) != string(b) {
		t.Error("identical inputs produced different packages")
	}
}

func TestRunInProgress(t *testing.T) {
	cfg := testStrategy()
	r := newTestRunner(t, cfg, fullSnapshot(cfg), newMemStore())

	r.runMu.Lock()
	defer r.runMu.Unlock()

	_, err := r.Run(context.Background())
	if !errors.Is(err, contracts.ErrRunInProgress) {
		t.Errorf("got %v, want ErrRunInProgress", err)
	}
}

func TestRunPublishesEvents(t *testing.T) {
	cfg := testStrategy()
	r := newTestRunner(t, cfg, fullSnapshot(cfg), newMemStore())

	ch, cancel := r.Events().Subscribe()
	defer cancel()

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var types []EventType
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}

	if len(types) == 0 {
		t.Fatal("no events published")
	}
	if types[0] != EventRunStarted {
		t.Errorf("first event = %s, want run_started", types[0])
	}
	if types[len(types)-1] != EventRunCompleted {
		t.Errorf("last event = %s, want run_completed", types[len(types)-1])
	}
}
