package scoring

import (
	"math"

	"github.com/wonny/hotscore/internal/contracts"
)

// NewestFirstSeries is an ordered list of period-average prices, most recent first.
// It can only be built through NewSeries or SeriesFromPeriods, so every value
// reaching the scorer has already been filtered and ordered.
type NewestFirstSeries struct {
	prices []float64
}

// NewSeries wraps prices that the caller guarantees are newest-first.
// NaN and infinite entries are dropped.
func NewSeries(prices []float64) NewestFirstSeries {
	valid := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		valid = append(valid, p)
	}
	return NewestFirstSeries{prices: valid}
}

// SeriesFromPeriods extracts average prices ordered newest-first,
// whatever order the periods were stored in.
func SeriesFromPeriods(periods []contracts.PricePeriod) NewestFirstSeries {
	ordered := make([]contracts.PricePeriod, len(periods))
	copy(ordered, periods)
	contracts.SortNewestFirst(ordered)

	prices := make([]float64, len(ordered))
	for i, p := range ordered {
		prices[i] = p.AveragePrice
	}
	return NewSeries(prices)
}

// Len returns the number of valid prices
func (s NewestFirstSeries) Len() int {
	return len(s.prices)
}

// Latest returns the most recent price (0 for an empty series)
func (s NewestFirstSeries) Latest() float64 {
	if len(s.prices) == 0 {
		return 0
	}
	return s.prices[0]
}

// Values returns a copy of the prices, newest first
func (s NewestFirstSeries) Values() []float64 {
	out := make([]float64, len(s.prices))
	copy(out, s.prices)
	return out
}
