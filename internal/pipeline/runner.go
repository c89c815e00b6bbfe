package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/moneymap/moneymap/internal/assemble"
	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/derive"
	"github.com/moneymap/moneymap/internal/scoring"
	"github.com/moneymap/moneymap/internal/selection"
	"github.com/moneymap/moneymap/internal/store"
	"github.com/moneymap/moneymap/internal/storyconfig"
	"github.com/moneymap/moneymap/pkg/logger"
)

// fetchLookback bounds how much history a run pulls. YoY needs ~13
// months; two years leaves slack for sparse quarterly series.
const fetchLookback = 2

// historyLimit caps how many cooldown entries are read per run.
const historyLimit = 50

// Collector is the S0 capability: gather all series into a snapshot.
type Collector interface {
	Collect(ctx context.Context, indicators []contracts.Indicator, since time.Time) *store.Snapshot
}

// Store is the persistence the runner needs between runs.
type Store interface {
	SaveSeries(ctx context.Context, code string, series contracts.Series) error
	LoadCooldown(ctx context.Context, limit int) (contracts.CooldownLog, error)
	AppendCooldown(ctx context.Context, entry contracts.CooldownEntry) error
	NextEpisode(ctx context.Context) (int, error)
	SaveStoryPackage(ctx context.Context, pkg *contracts.StoryPackage) error
}

// Runner executes one discovery run end to end: fetch, derive, score,
// select, resolve related, assemble, persist. The run is synchronous;
// only the per-indicator fetches inside the collector are parallel.
type Runner struct {
	cfg        *storyconfig.Config
	configHash string

	collector Collector
	repo      Store

	calc      *derive.Calculator
	scorer    *scoring.Scorer
	selector  *selection.Selector
	assembler *assemble.Assembler

	events *Broadcaster
	logger *logger.Logger

	// now is replaceable in tests; runs must be reproducible for a
	// fixed reference time.
	now func() time.Time

	// runMu enforces the single-run guarantee: the cooldown history
	// update must never race with a concurrent run.
	runMu sync.Mutex
}

// NewRunner wires a runner from the strategy config.
func NewRunner(cfg *storyconfig.Config, collector Collector, repo Store, log *logger.Logger) (*Runner, error) {
	hash, err := storyconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:        cfg,
		configHash: hash,
		collector:  collector,
		repo:       repo,
		calc:       derive.NewCalculator(cfg.Derive, log),
		scorer:     scoring.NewScorer(cfg.Scoring, log),
		selector:   selection.NewSelector(cfg.Selection, log),
		assembler:  assemble.NewAssembler(cfg.Selection.ViabilityFloor, cfg.Selection.RankedSize, log),
		events:     NewBroadcaster(),
		logger:     log.WithField("module", "pipeline"),
		now:        time.Now,
	}, nil
}

// Events exposes the run event broadcaster for API subscribers.
func (r *Runner) Events() *Broadcaster {
	return r.events
}

// WithClock replaces the time source. Used by tests and backfills.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes one full discovery run and returns the assembled
// package. It returns contracts.ErrRunInProgress when another run holds
// the lock, and a *contracts.PackageIncompleteError when no indicator
// clears the viability floor (in which case nothing is persisted and no
// downstream stage executes).
func (r *Runner) Run(ctx context.Context) (*contracts.StoryPackage, error) {
	if !r.runMu.TryLock() {
		return nil, contracts.ErrRunInProgress
	}
	defer r.runMu.Unlock()

	runAt := r.now().UTC()

	episode, err := r.repo.NextEpisode(ctx)
	if err != nil {
		return nil, err
	}

	cooldown, err := r.repo.LoadCooldown(ctx, historyLimit)
	if err != nil {
		return nil, err
	}

	r.publish(Event{Type: EventRunStarted, Episode: episode, At: runAt,
		Message: "discovery run started"})

	// S0: fetch everything. Scoring must not begin until the snapshot
	// is complete; Collect blocks until every fetch settles.
	r.stageStart(contracts.StageFetch, episode)
	since := runAt.AddDate(-fetchLookback, 0, 0)
	snapshot := r.collector.Collect(ctx, r.cfg.Indicators, since)
	r.persistSeries(ctx, snapshot)
	r.stageDone(contracts.StageFetch, episode)

	// S1: derive metrics per indicator over the frozen snapshot.
	r.stageStart(contracts.StageDerive, episode)
	metrics := make(map[string]contracts.DerivedMetrics, len(r.cfg.Indicators))
	for _, ind := range r.cfg.Indicators {
		series, ok := snapshot.Series(ind.Code)
		if !ok {
			metrics[ind.Code] = contracts.AllUnavailable(contracts.ReasonFetchFailed)
			continue
		}
		metrics[ind.Code] = r.calc.Compute(series, runAt)
	}
	r.stageDone(contracts.StageDerive, episode)

	// S2: score.
	r.stageStart(contracts.StageScore, episode)
	scores := r.scorer.ScoreAll(r.cfg.Indicators, metrics)
	r.stageDone(contracts.StageScore, episode)

	// S3: select lead and related.
	r.stageStart(contracts.StageSelect, episode)
	sel, err := r.selector.Select(scores, cooldown, episode, runAt)
	if err != nil {
		return nil, r.fail(episode, err)
	}
	related := selection.ResolveRelated(sel.Lead, sel.Ranked, r.cfg.Relations,
		r.cfg.Selection.RelatedMin, r.cfg.Selection.RelatedMax)
	r.stageDone(contracts.StageSelect, episode)

	// S4: assemble and persist.
	r.stageStart(contracts.StageAssemble, episode)
	pkg, err := r.assembler.Assemble(assemble.Input{
		Lead:        sel.Lead,
		Related:     related,
		Ranked:      sel.Ranked,
		RunAt:       runAt,
		Episode:     episode,
		ConfigHash:  r.configHash,
		Diagnostics: snapshot.Statuses(),
	})
	if err != nil {
		return nil, r.fail(episode, err)
	}

	if err := r.repo.SaveStoryPackage(ctx, pkg); err != nil {
		return nil, r.fail(episode, err)
	}
	if err := r.repo.AppendCooldown(ctx, sel.UpdatedLog[len(sel.UpdatedLog)-1]); err != nil {
		return nil, r.fail(episode, err)
	}
	r.stageDone(contracts.StageAssemble, episode)

	r.publish(Event{Type: EventRunCompleted, Episode: episode, At: r.now().UTC(),
		Message: "lead: " + pkg.Lead.Indicator.Code})

	r.logger.WithFields(map[string]interface{}{
		"episode": episode,
		"lead":    pkg.Lead.Indicator.Code,
		"fetched": snapshot.FetchedCount(),
	}).Info("Discovery run completed")

	return pkg, nil
}

// persistSeries stores fetched observations. Persistence failures are
// logged and skipped: the in-memory snapshot already holds everything
// this run needs.
func (r *Runner) persistSeries(ctx context.Context, snapshot *store.Snapshot) {
	for _, code := range snapshot.Codes() {
		status, _ := snapshot.Status(code)
		if status.Outcome != contracts.FetchOK || status.FromCache {
			continue
		}
		series, ok := snapshot.Series(code)
		if !ok {
			continue
		}
		if err := r.repo.SaveSeries(ctx, code, series); err != nil {
			r.logger.WithError(err).WithField("code", code).Warn("Failed to persist series")
		}
	}
}

func (r *Runner) stageStart(stage contracts.Stage, episode int) {
	r.publish(Event{Type: EventStageStarted, Stage: stage, Episode: episode, At: r.now().UTC()})
}

func (r *Runner) stageDone(stage contracts.Stage, episode int) {
	r.publish(Event{Type: EventStageFinished, Stage: stage, Episode: episode, At: r.now().UTC()})
}

func (r *Runner) fail(episode int, err error) error {
	r.publish(Event{Type: EventRunFailed, Episode: episode, At: r.now().UTC(), Error: err.Error()})
	return err
}

func (r *Runner) publish(ev Event) {
	r.events.Publish(ev)
}
