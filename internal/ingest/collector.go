package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/fred"
	"github.com/moneymap/moneymap/internal/store"
	"github.com/moneymap/moneymap/pkg/logger"
	"github.com/moneymap/moneymap/pkg/redis"
)

// SeriesFetcher is the upstream capability the collector consumes:
// fetch a named series, return dated observations.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, seriesID string, since time.Time) (contracts.Series, error)
}

// Collector fans out series fetches across a worker pool and fans the
// results back into a single run snapshot. Fetches are independent per
// indicator and parallelized purely for latency; the collector returns
// only after every fetch has settled, so scoring always sees a complete
// view.
type Collector struct {
	fetcher SeriesFetcher
	cache   *redis.Cache
	ttl     time.Duration
	workers int
	logger  *logger.Logger
}

// Config holds collector configuration.
type Config struct {
	Workers  int
	CacheTTL time.Duration
}

// NewCollector creates a collector. cache may be backed by a disabled
// client, in which case every lookup is a miss.
func NewCollector(fetcher SeriesFetcher, cache *redis.Cache, cfg Config, log *logger.Logger) *Collector {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Collector{
		fetcher: fetcher,
		cache:   cache,
		ttl:     cfg.CacheTTL,
		workers: workers,
		logger:  log.WithField("module", "collector"),
	}
}

type fetchResult struct {
	code   string
	series contracts.Series
	status contracts.FetchStatus
}

// Collect fetches all indicators since the given date and returns the
// run snapshot. A failed fetch never aborts the run: the indicator is
// marked unavailable and still participates in scoring at minimum score.
func (c *Collector) Collect(ctx context.Context, indicators []contracts.Indicator, since time.Time) *store.Snapshot {
	c.logger.WithFields(map[string]interface{}{
		"indicators": len(indicators),
		"since":      since.Format("2006-01-02"),
		"workers":    c.workers,
	}).Info("Starting series collection")

	jobCh := make(chan contracts.Indicator, len(indicators))
	resultCh := make(chan fetchResult, len(indicators))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ind := range jobCh {
				resultCh <- c.fetchOne(ctx, ind, since)
			}
		}()
	}

	for _, ind := range indicators {
		jobCh <- ind
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	codes := make([]string, len(indicators))
	for i, ind := range indicators {
		codes[i] = ind.Code
	}
	snapshot := store.NewSnapshot(codes)

	okCount, failCount := 0, 0
	for res := range resultCh {
		snapshot.Put(res.code, res.series, res.status)
		if res.status.Outcome == contracts.FetchOK {
			okCount++
		} else {
			failCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"ok":     okCount,
		"failed": failCount,
	}).Info("Series collection completed")

	return snapshot
}

// fetchOne resolves a single indicator: cache first, then upstream.
func (c *Collector) fetchOne(ctx context.Context, ind contracts.Indicator, since time.Time) fetchResult {
	status := contracts.FetchStatus{Code: ind.Code, SeriesID: ind.SeriesID}

	if c.cache != nil {
		var cached contracts.Series
		found, err := c.cache.Get(ctx, "series:"+ind.SeriesID, &cached)
		if err != nil {
			c.logger.WithError(err).WithField("code", ind.Code).Warn("Series cache read failed")
		} else if found && len(cached) > 0 {
			status.Outcome = contracts.FetchOK
			status.Observations = len(cached)
			status.FromCache = true
			return fetchResult{code: ind.Code, series: cached, status: status}
		}
	}

	series, err := c.fetcher.FetchSeries(ctx, ind.SeriesID, since)
	if err != nil {
		status.Error = err.Error()
		if fred.IsPermanent(err) {
			status.Outcome = contracts.FetchPermanent
		} else {
			status.Outcome = contracts.FetchTransient
		}
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"code":    ind.Code,
			"outcome": status.Outcome,
		}).Warn("Series fetch failed")
		return fetchResult{code: ind.Code, status: status}
	}

	if len(series) == 0 {
		status.Outcome = contracts.FetchEmpty
		return fetchResult{code: ind.Code, status: status}
	}

	status.Outcome = contracts.FetchOK
	status.Observations = len(series)

	if c.cache != nil {
		if err := c.cache.Set(ctx, "series:"+ind.SeriesID, series, c.ttl); err != nil {
			c.logger.WithError(err).WithField("code", ind.Code).Warn("Series cache write failed")
		}
	}

	return fetchResult{code: ind.Code, series: series, status: status}
}
