package jobs

import (
	"context"

	"github.com/wonny/hotscore/pkg/logger"
)

// RankingWarmer rebuilds the cached ranking
type RankingWarmer interface {
	Warm(ctx context.Context) (int, error)
}

// RankingRefreshJob keeps the ranking cache warm between sweeps
type RankingRefreshJob struct {
	ranking RankingWarmer
	logger  *logger.Logger
}

// NewRankingRefreshJob creates a new ranking refresh job
func NewRankingRefreshJob(ranking RankingWarmer, log *logger.Logger) *RankingRefreshJob {
	return &RankingRefreshJob{
		ranking: ranking,
		logger:  log,
	}
}

// Name returns the job name
func (j *RankingRefreshJob) Name() string {
	return "ranking_refresh"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *RankingRefreshJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run rebuilds the cached ranking
func (j *RankingRefreshJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled ranking refresh")

	count, err := j.ranking.Warm(ctx)
	if err != nil {
		return err
	}

	j.logger.WithField("instruments", count).Debug("Ranking refresh completed")
	return nil
}
