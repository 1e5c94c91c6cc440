package recompute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/internal/scoring"
	"github.com/wonny/hotscore/pkg/logger"
	"github.com/wonny/hotscore/pkg/metrics"
	"github.com/wonny/hotscore/pkg/redis"
)

// minPeriods is the shortest price history that can be scored
const minPeriods = 2

// Listener is notified after every successfully persisted batch
type Listener interface {
	BatchCompleted(ctx context.Context, result *contracts.BatchResult)
}

// Locker serializes recompute batches across processes (satisfied by *redis.Lease)
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, name, token string) error
}

// Engine runs the paginated score recomputation over a ScoreStore
// ⭐ SSOT: 배치 재계산 루프는 여기서만
type Engine struct {
	store     contracts.ScoreStore
	logger    *logger.Logger
	metrics   *metrics.Registry
	listeners []Listener
	now       func() time.Time

	// running admits one batch per process; lease extends that across processes
	running  sync.Mutex
	lease    Locker
	leaseTTL time.Duration
}

// NewEngine creates a new batch engine
func NewEngine(store contracts.ScoreStore, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		store:  store,
		logger: log.WithField("component", "recompute"),
		now:    time.Now,
	}
}

// WithMetrics records batch and instrument counters on reg
func (e *Engine) WithMetrics(reg *metrics.Registry) *Engine {
	e.metrics = reg
	return e
}

// AddListener registers a listener for persisted batches
func (e *Engine) AddListener(l Listener) *Engine {
	e.listeners = append(e.listeners, l)
	return e
}

// WithLease makes every batch hold the shared recompute lease while it runs
func (e *Engine) WithLease(l Locker, ttl time.Duration) *Engine {
	e.lease = l
	e.leaseTTL = ttl
	return e
}

// WithClock overrides the time source (tests)
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// RunBatch scores up to batchSize instruments that sort after resumeAfter
// and persists all of their scores with a single store write.
// Returns contracts.ErrSweepInProgress while another batch holds the engine or the lease.
func (e *Engine) RunBatch(ctx context.Context, batchSize int, params contracts.ScoringParameters, resumeAfter *string) (*contracts.BatchResult, error) {
	if err := contracts.ValidateBatchSize(batchSize); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if !e.running.TryLock() {
		return nil, contracts.ErrSweepInProgress
	}
	defer e.running.Unlock()

	release, err := e.acquireLease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	startedAt := e.now()
	afterID := ""
	if resumeAfter != nil {
		afterID = *resumeAfter
	}

	// 한 건 더 읽어서 다음 페이지 존재 여부를 정확히 판단
	candidates, err := e.store.FetchScoringCandidates(ctx, afterID, batchSize+1)
	if err != nil {
		e.observeBatch(startedAt, false)
		return nil, fmt.Errorf("fetch scoring candidates after %q: %w", afterID, err)
	}

	hasMore := len(candidates) > batchSize
	if hasMore {
		candidates = candidates[:batchSize]
	}

	result := &contracts.BatchResult{
		HasMore:    hasMore,
		ParamsUsed: params,
		StartedAt:  startedAt,
	}

	updates := make([]contracts.ScoreUpdate, 0, len(candidates))
	for _, c := range candidates {
		if len(c.PriceHistory) < minPeriods && c.DecodeErr == nil {
			result.Skipped++
			e.logger.WithFields(map[string]interface{}{
				"instrument_id": c.ID,
				"periods":       len(c.PriceHistory),
			}).Debug("Instrument has too few periods, skipping")
			continue
		}

		score, err := scoreCandidate(c, params)
		if err != nil {
			result.Failed++
			e.logger.WithError(err).WithField("instrument_id", c.ID).Warn("Failed to score instrument, skipping")
			continue
		}

		updates = append(updates, contracts.ScoreUpdate{
			ID:         c.ID,
			Score:      score,
			ComputedAt: startedAt,
		})
	}

	if len(updates) > 0 {
		if err := e.store.ApplyScoreUpdates(ctx, updates); err != nil {
			if e.metrics != nil {
				e.metrics.PersistenceFailures.Inc()
			}
			e.observeBatch(startedAt, false)
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"resume_after": afterID,
				"staged":       len(updates),
			}).Error("Failed to persist score batch")
			return nil, fmt.Errorf("%w: %w", contracts.ErrPersistence, err)
		}
	}

	result.Processed = len(updates)
	if n := len(candidates); n > 0 {
		last := candidates[n-1].ID
		result.LastProcessedID = &last
		if hasMore {
			token := last
			result.ResumeToken = &token
		}
	}
	result.Duration = e.now().Sub(startedAt)

	e.observeBatch(startedAt, true)
	e.observeInstruments(result, updates)

	e.logger.WithFields(map[string]interface{}{
		"resume_after": afterID,
		"processed":    result.Processed,
		"skipped":      result.Skipped,
		"failed":       result.Failed,
		"has_more":     result.HasMore,
		"duration_ms":  result.Duration.Milliseconds(),
	}).Info("Score batch completed")

	for _, l := range e.listeners {
		l.BatchCompleted(ctx, result)
	}

	return result, nil
}

// Sweep runs batches from the start of the collection until no page remains
func (e *Engine) Sweep(ctx context.Context, batchSize int, params contracts.ScoringParameters) (*contracts.SweepSummary, error) {
	started := e.now()
	summary := &contracts.SweepSummary{}

	var cursor *string
	for {
		if err := ctx.Err(); err != nil {
			summary.Duration = e.now().Sub(started)
			return summary, err
		}

		result, err := e.RunBatch(ctx, batchSize, params, cursor)
		if err != nil {
			summary.Duration = e.now().Sub(started)
			return summary, err
		}
		summary.Add(result)

		if !result.HasMore {
			break
		}
		if cursor != nil && result.ResumeToken != nil && *result.ResumeToken <= *cursor {
			summary.Duration = e.now().Sub(started)
			return summary, fmt.Errorf("cursor did not advance past %q", *cursor)
		}
		cursor = result.ResumeToken
	}

	summary.Duration = e.now().Sub(started)
	if e.metrics != nil {
		e.metrics.SweepsCompleted.Inc()
	}

	e.logger.WithFields(map[string]interface{}{
		"batches":     summary.Batches,
		"processed":   summary.Processed,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
		"duration_ms": summary.Duration.Milliseconds(),
	}).Info("Score sweep completed")

	return summary, nil
}

// acquireLease takes the shared recompute lease when one is configured
func (e *Engine) acquireLease(ctx context.Context) (func(), error) {
	if e.lease == nil {
		return func() {}, nil
	}

	token, ok, err := e.lease.Acquire(ctx, redis.RecomputeLease, e.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire recompute lease: %w", err)
	}
	if !ok {
		return nil, contracts.ErrSweepInProgress
	}

	return func() {
		// 요청이 취소되어도 락은 반납
		if err := e.lease.Release(context.WithoutCancel(ctx), redis.RecomputeLease, token); err != nil {
			e.logger.WithError(err).Warn("Failed to release recompute lease")
		}
	}, nil
}

// scoreCandidate turns one candidate into a persisted integer score.
// A panic while preparing the candidate is reported as an error.
func scoreCandidate(c contracts.ScoreCandidate, params contracts.ScoringParameters) (score int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scoring %s: %v", c.ID, r)
		}
	}()

	if c.DecodeErr != nil {
		return 0, c.DecodeErr
	}

	res, err := scoring.Score(scoring.SeriesFromPeriods(c.PriceHistory), params)
	if err != nil {
		return 0, err
	}
	return res.Integer(), nil
}

func (e *Engine) observeBatch(startedAt time.Time, ok bool) {
	if e.metrics == nil {
		return
	}
	label := "ok"
	if !ok {
		label = "error"
	}
	e.metrics.Batches.WithLabelValues(label).Inc()
	e.metrics.BatchDuration.WithLabelValues(label).Observe(e.now().Sub(startedAt).Seconds())
}

func (e *Engine) observeInstruments(result *contracts.BatchResult, updates []contracts.ScoreUpdate) {
	if e.metrics == nil {
		return
	}
	e.metrics.Instruments.WithLabelValues(metrics.OutcomeScored).Add(float64(result.Processed))
	e.metrics.Instruments.WithLabelValues(metrics.OutcomeSkipped).Add(float64(result.Skipped))
	e.metrics.Instruments.WithLabelValues(metrics.OutcomeFailed).Add(float64(result.Failed))
	for _, u := range updates {
		e.metrics.ScoreDistribution.Observe(float64(u.Score))
	}
}

// IsCallerError reports whether err was caused by the request rather than the store
func IsCallerError(err error) bool {
	return errors.Is(err, contracts.ErrInvalidParameter) || errors.Is(err, contracts.ErrInvalidInput)
}
