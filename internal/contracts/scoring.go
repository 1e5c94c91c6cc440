package contracts

import (
	"fmt"
	"math"
	"time"
)

// ScoringParameters is the complete parameter set for one scoring run.
// The scorer has no hidden defaults: every field must be supplied.
// ⭐ SSOT: 스코어링 파라미터 타입은 여기서만 정의
type ScoringParameters struct {
	DropSensitivity     float64 `json:"dropSensitivity"`
	DropMaxScore        float64 `json:"dropMaxScore"`
	VolatilityThreshold float64 `json:"volatilityThreshold"` // percent
	VolatilityMaxBonus  float64 `json:"volatilityMaxBonus"`
	DowntrendPenalty    float64 `json:"downtrendPenalty"`
	StableMultiplier    float64 `json:"stableMultiplier"`
	UptrendMultiplier   float64 `json:"uptrendMultiplier"`
	TrendBoundary       float64 `json:"trendBoundary"` // percent
}

// paramRange is an inclusive accepted range for one parameter
type paramRange struct {
	name     string
	value    float64
	min, max float64
}

// Validate checks every field against its accepted range
func (p ScoringParameters) Validate() error {
	ranges := []paramRange{
		{"dropSensitivity", p.DropSensitivity, 10, 25},
		{"dropMaxScore", p.DropMaxScore, 60, 80},
		{"volatilityThreshold", p.VolatilityThreshold, 1.0, 5.0},
		{"volatilityMaxBonus", p.VolatilityMaxBonus, 20, 40},
		{"downtrendPenalty", p.DowntrendPenalty, 0.3, 0.7},
		{"stableMultiplier", p.StableMultiplier, 0.5, 0.8},
		{"uptrendMultiplier", p.UptrendMultiplier, 0.8, 1.2},
		{"trendBoundary", p.TrendBoundary, 2.0, 5.0},
	}

	for _, r := range ranges {
		if math.IsNaN(r.value) || math.IsInf(r.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParameter, r.name)
		}
		if r.value < r.min || r.value > r.max {
			return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidParameter, r.name, r.value, r.min, r.max)
		}
	}
	return nil
}

// Batch size bounds for one recompute call
const (
	MinBatchSize = 1
	MaxBatchSize = 1000
)

// ValidateBatchSize checks the requested page size
func ValidateBatchSize(size int) error {
	if size < MinBatchSize || size > MaxBatchSize {
		return fmt.Errorf("%w: batchSize %d outside [%d, %d]", ErrInvalidParameter, size, MinBatchSize, MaxBatchSize)
	}
	return nil
}

// BatchResult reports one recompute call
type BatchResult struct {
	Processed       int               `json:"processed"`
	Skipped         int               `json:"skipped"`
	Failed          int               `json:"failed"`
	HasMore         bool              `json:"hasMore"`
	ResumeToken     *string           `json:"resumeToken"`
	LastProcessedID *string           `json:"lastProcessedId"`
	ParamsUsed      ScoringParameters `json:"paramsUsed"`
	StartedAt       time.Time         `json:"startedAt"`
	Duration        time.Duration     `json:"duration"`
}

// SweepSummary aggregates the batches of one full sweep
type SweepSummary struct {
	Batches   int           `json:"batches"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Add folds one batch into the summary
func (s *SweepSummary) Add(r *BatchResult) {
	s.Batches++
	s.Processed += r.Processed
	s.Skipped += r.Skipped
	s.Failed += r.Failed
}
