package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/pkg/logger"
)

// Sweeper runs a full recompute sweep
type Sweeper interface {
	Sweep(ctx context.Context, batchSize int, params contracts.ScoringParameters) (*contracts.SweepSummary, error)
}

// ScoreSweepJob recomputes every instrument's hotness score on a schedule
type ScoreSweepJob struct {
	sweeper   Sweeper
	schedule  string
	batchSize int
	params    contracts.ScoringParameters
	logger    *logger.Logger
}

// NewScoreSweepJob creates a new score sweep job
func NewScoreSweepJob(sweeper Sweeper, schedule string, batchSize int, params contracts.ScoringParameters, log *logger.Logger) *ScoreSweepJob {
	return &ScoreSweepJob{
		sweeper:   sweeper,
		schedule:  schedule,
		batchSize: batchSize,
		params:    params,
		logger:    log,
	}
}

// Name returns the job name
func (j *ScoreSweepJob) Name() string {
	return "score_sweep"
}

// Schedule returns the cron schedule
func (j *ScoreSweepJob) Schedule() string {
	return j.schedule
}

// Run executes one full sweep. A failed batch aborts the sweep; the next
// attempt starts again from the first instrument.
func (j *ScoreSweepJob) Run(ctx context.Context) error {
	j.logger.WithField("batch_size", j.batchSize).Info("Starting scheduled score sweep")

	summary, err := j.sweeper.Sweep(ctx, j.batchSize, j.params)
	if err != nil {
		if summary != nil {
			j.logger.WithFields(map[string]interface{}{
				"batches":   summary.Batches,
				"processed": summary.Processed,
			}).Warn("Score sweep aborted")
		}
		return fmt.Errorf("score sweep failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"batches":   summary.Batches,
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("Scheduled score sweep completed")

	return nil
}
