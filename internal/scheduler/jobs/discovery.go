package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/pipeline"
	"github.com/moneymap/moneymap/pkg/logger"
)

// DiscoveryJob runs the weekly story-discovery pipeline.
type DiscoveryJob struct {
	runner   *pipeline.Runner
	schedule string
	logger   *logger.Logger
}

// NewDiscoveryJob creates the discovery job with a cron schedule from
// config (default: Monday noon, after most weekly series publish).
func NewDiscoveryJob(runner *pipeline.Runner, schedule string, log *logger.Logger) *DiscoveryJob {
	return &DiscoveryJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name.
func (j *DiscoveryJob) Name() string {
	return "story_discovery"
}

// Schedule returns the cron schedule expression.
func (j *DiscoveryJob) Schedule() string {
	return j.schedule
}

// Run executes one discovery run. A PackageIncomplete outcome is logged
// as a warning, not a retryable failure: retrying will not conjure
// fresher data within the same run window.
func (j *DiscoveryJob) Run(ctx context.Context) error {
	pkg, err := j.runner.Run(ctx)
	if err != nil {
		if contracts.IsPackageIncomplete(err) {
			j.logger.WithError(err).Warn("No viable story this run")
			return nil
		}
		if errors.Is(err, contracts.ErrRunInProgress) {
			j.logger.Warn("Skipping scheduled run: another run in progress")
			return nil
		}
		return fmt.Errorf("discovery run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"episode": pkg.Episode,
		"lead":    pkg.Lead.Indicator.Code,
	}).Info("Scheduled discovery run produced a package")
	return nil
}
