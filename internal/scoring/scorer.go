package scoring

import (
	"fmt"
	"math"

	"github.com/wonny/hotscore/internal/contracts"
)

// MaxScore is the upper bound of a hotness score
const MaxScore = 100.0

// volatilityCap is the volatility percent at which the bonus saturates
const volatilityCap = 10.0

// Trend regimes used to pick the volatility multiplier
const (
	TrendDown   = "down"
	TrendStable = "stable"
	TrendUp     = "up"
)

// Breakdown holds the intermediate values of one scoring run
type Breakdown struct {
	HistoricalAverage float64 `json:"historicalAverage"`
	DropPercent       float64 `json:"dropPercent"`
	DropScore         float64 `json:"dropScore"`
	VolatilityPercent float64 `json:"volatilityPercent"`
	TrendPercent      float64 `json:"trendPercent"`
	Trend             string  `json:"trend,omitempty"`
	Multiplier        float64 `json:"multiplier"`
	VolatilityScore   float64 `json:"volatilityScore"`
}

// Result is an unrounded hotness score plus its breakdown
type Result struct {
	Value     float64   `json:"value"`
	Breakdown Breakdown `json:"breakdown"`
}

// Rounded returns the score rounded to 2 decimals
func (r Result) Rounded() float64 {
	return math.Round(r.Value*100) / 100
}

// Integer returns the score rounded to the nearest integer
func (r Result) Integer() int {
	return int(math.Round(r.Value))
}

// Score converts a newest-first price series into a bounded hotness score.
// ⭐ SSOT: 핫니스 스코어 계산은 여기서만
//
// The score is driven by how far the latest price sits below the mean of the
// older prices, plus a volatility bonus scaled by the trend regime. Prices
// flat or up versus history score 0.
func Score(series NewestFirstSeries, params contracts.ScoringParameters) (Result, error) {
	prices := series.prices
	n := len(prices)
	if n < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2 valid prices, got %d", contracts.ErrInvalidInput, n)
	}

	var bd Breakdown

	// 1. 과거 평균 (최신 가격 제외)
	var histSum float64
	for _, p := range prices[1:] {
		histSum += p
	}
	historicalAverage := histSum / float64(n-1)
	if historicalAverage == 0 {
		return Result{}, fmt.Errorf("%w: historical average is zero", contracts.ErrInvalidInput)
	}
	bd.HistoricalAverage = historicalAverage

	// 2. 하락률
	dropPercent := (historicalAverage - prices[0]) / historicalAverage * 100
	bd.DropPercent = dropPercent
	if dropPercent <= 0 {
		return Result{Value: 0, Breakdown: bd}, nil
	}

	// 3.
	dropScore := math.Min(params.DropMaxScore, dropPercent*params.DropSensitivity)
	bd.DropScore = dropScore

	// 4. 모집단 표준편차 기반 변동성
	mean, stdDev := populationStats(prices)
	if mean == 0 {
		return Result{}, fmt.Errorf("%w: mean price is zero", contracts.ErrInvalidInput)
	}
	volatilityPercent := stdDev / mean * 100
	bd.VolatilityPercent = volatilityPercent

	// 5. 추세 (최신 vs 가장 오래된)
	var trend string
	var multiplier float64
	if oldest := prices[n-1]; oldest == 0 {
		// 0에서 출발하면 변화율은 정의되지 않으므로 방향만 사용
		trend, multiplier = trendFromZero(prices[0], params)
	} else {
		trendPercent := (prices[0] - oldest) / oldest * 100
		bd.TrendPercent = trendPercent
		trend, multiplier = trendMultiplier(trendPercent, params)
	}

	// 6.
	var volatilityScore float64
	if volatilityPercent >= params.VolatilityThreshold {
		normalized := math.Min(1.0, volatilityPercent/volatilityCap)
		bd.Trend = trend
		bd.Multiplier = multiplier
		volatilityScore = normalized * params.VolatilityMaxBonus * multiplier
	}
	bd.VolatilityScore = volatilityScore

	// 7.
	return Result{Value: clamp(dropScore+volatilityScore), Breakdown: bd}, nil
}

// trendMultiplier classifies the trend and returns its volatility multiplier
func trendMultiplier(trendPercent float64, params contracts.ScoringParameters) (string, float64) {
	switch {
	case trendPercent < -params.TrendBoundary:
		return TrendDown, params.DowntrendPenalty
	case trendPercent > params.TrendBoundary:
		return TrendUp, params.UptrendMultiplier
	default:
		return TrendStable, params.StableMultiplier
	}
}

// trendFromZero classifies a series whose oldest price is 0:
// any positive latest price is an uptrend, otherwise the series is flat.
func trendFromZero(latest float64, params contracts.ScoringParameters) (string, float64) {
	if latest > 0 {
		return TrendUp, params.UptrendMultiplier
	}
	return TrendStable, params.StableMultiplier
}

// populationStats returns the mean and population standard deviation (divide by N)
func populationStats(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
