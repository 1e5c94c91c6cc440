package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hotscore/internal/contracts"
)

func TestScore_SmallDropBelowVolatilityThreshold(t *testing.T) {
	res, err := Score(NewSeries([]float64{99, 101, 102, 101, 100}), DefaultParams())
	require.NoError(t, err)

	assert.InDelta(t, 101.0, res.Breakdown.HistoricalAverage, 1e-9)
	assert.InDelta(t, 1.9802, res.Breakdown.DropPercent, 1e-3)
	assert.InDelta(t, 29.70, res.Breakdown.DropScore, 1e-2)
	assert.Less(t, res.Breakdown.VolatilityPercent, 2.0)
	assert.Equal(t, 0.0, res.Breakdown.VolatilityScore)
	assert.Equal(t, 30, res.Integer())
	assert.Equal(t, 29.7, res.Rounded())
}

func TestScore_CappedDropWithDowntrendPenalty(t *testing.T) {
	res, err := Score(NewSeries([]float64{68, 101, 102, 101, 100}), DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 70.0, res.Breakdown.DropScore)
	assert.Greater(t, res.Breakdown.VolatilityPercent, 10.0)
	assert.InDelta(t, -32.0, res.Breakdown.TrendPercent, 1e-9)
	assert.Equal(t, TrendDown, res.Breakdown.Trend)
	assert.Equal(t, 0.5, res.Breakdown.Multiplier)
	assert.InDelta(t, 15.0, res.Breakdown.VolatilityScore, 1e-9)
	assert.Equal(t, 85, res.Integer())
}

func TestScore_NoDropIsZero(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
	}{
		{"flat", []float64{100, 100, 100}},
		{"up", []float64{120, 100, 90, 80}},
		{"equal to average", []float64{100, 90, 110}},
		{"volatile but up", []float64{150, 50, 150, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Score(NewSeries(tt.prices), DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, 0.0, res.Value)
			assert.Equal(t, 0.0, res.Breakdown.VolatilityScore)
		})
	}
}

func TestScore_MinimumInput(t *testing.T) {
	_, err := Score(NewSeries([]float64{5}), DefaultParams())
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	_, err = Score(NewSeries(nil), DefaultParams())
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	_, err = Score(NewSeries([]float64{5, 10}), DefaultParams())
	assert.NoError(t, err)
}

func TestScore_FiltersInvalidEntries(t *testing.T) {
	_, err := Score(NewSeries([]float64{5, math.NaN(), math.Inf(1)}), DefaultParams())
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	withNoise, err := Score(NewSeries([]float64{99, math.NaN(), 101, 102, math.Inf(-1), 101, 100}), DefaultParams())
	require.NoError(t, err)
	clean, err := Score(NewSeries([]float64{99, 101, 102, 101, 100}), DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, clean.Value, withNoise.Value)
}

func TestScore_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
	}{
		{"zero historical average", []float64{5, 0, 0}},
		{"zero historical average with zero latest", []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(NewSeries(tt.prices), DefaultParams())
			assert.ErrorIs(t, err, contracts.ErrInvalidInput)
		})
	}
}

func TestScore_ZeroOldestPrice(t *testing.T) {
	tests := []struct {
		name       string
		prices     []float64
		wantTrend  string
		multiplier float64
		want       float64
	}{
		// drop 50% caps at 70, volatility ~102% -> full bonus 30 x 1.0
		{"positive latest is uptrend", []float64{0.5, 2, 0}, TrendUp, 1.0, 100},
		// drop 100% caps at 70, full bonus 30 x 0.7
		{"zero latest is stable", []float64{0, 2, 0}, TrendStable, 0.7, 91},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Score(NewSeries(tt.prices), DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrend, res.Breakdown.Trend)
			assert.Equal(t, tt.multiplier, res.Breakdown.Multiplier)
			assert.Zero(t, res.Breakdown.TrendPercent)
			assert.InDelta(t, tt.want, res.Value, 1e-9)
		})
	}
}

func TestScore_TrendRegimes(t *testing.T) {
	tests := []struct {
		name       string
		prices     []float64
		wantTrend  string
		multiplier float64
	}{
		// latest below history, but above the oldest point
		{"uptrend", []float64{90, 150, 60}, TrendUp, 1.0},
		{"stable", []float64{80, 120, 81}, TrendStable, 0.7},
		{"downtrend", []float64{50, 120, 100}, TrendDown, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Score(NewSeries(tt.prices), DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrend, res.Breakdown.Trend)
			assert.Equal(t, tt.multiplier, res.Breakdown.Multiplier)
		})
	}
}

func TestScore_ClampedAndDeterministic(t *testing.T) {
	series := [][]float64{
		{1, 1000, 1, 1000, 1},
		{10, 100},
		{0, 50, 60},
		{99.5, 100, 100.5},
		{42, 43, 44, 45, 46, 47, 48, 49, 50},
	}

	for _, presetParams := range []contracts.ScoringParameters{DefaultParams(), AggressiveParams()} {
		for _, prices := range series {
			first, err := Score(NewSeries(prices), presetParams)
			require.NoError(t, err)
			second, err := Score(NewSeries(prices), presetParams)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.GreaterOrEqual(t, first.Value, 0.0)
			assert.LessOrEqual(t, first.Value, MaxScore)
		}
	}
}

func TestScore_OverallCapAt100(t *testing.T) {
	params := AggressiveParams()
	params.DropMaxScore = 80
	params.VolatilityMaxBonus = 40
	params.UptrendMultiplier = 1.2

	// big drop vs history, but still above the oldest price
	res, err := Score(NewSeries([]float64{20, 200, 200, 10}), params)
	require.NoError(t, err)
	assert.Equal(t, TrendUp, res.Breakdown.Trend)
	assert.Equal(t, 100.0, res.Value)
	assert.Equal(t, 100, res.Integer())
}

func TestSeriesFromPeriods_OrdersNewestFirst(t *testing.T) {
	periods := []contracts.PricePeriod{
		{Label: "15-10 days ago", StartOffsetDays: 10, EndOffsetDays: 15, AveragePrice: 100, HighPrice: 100, LowPrice: 100},
		{Label: "5 days ago to today", StartOffsetDays: 0, EndOffsetDays: 5, AveragePrice: 68, HighPrice: 68, LowPrice: 68},
		{Label: "10-5 days ago", StartOffsetDays: 5, EndOffsetDays: 10, AveragePrice: 101, HighPrice: 101, LowPrice: 101},
	}

	series := SeriesFromPeriods(periods)
	assert.Equal(t, []float64{68, 101, 100}, series.Values())
	assert.Equal(t, 68.0, series.Latest())

	// input left untouched
	assert.Equal(t, 10, periods[0].StartOffsetDays)
}

func TestPreset(t *testing.T) {
	p, err := Preset("default")
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)

	p, err = Preset("Recommended")
	require.NoError(t, err)
	assert.Equal(t, AggressiveParams(), p)

	_, err = Preset("yolo")
	assert.ErrorIs(t, err, contracts.ErrInvalidParameter)

	for _, name := range PresetNames() {
		params, err := Preset(name)
		require.NoError(t, err)
		assert.NoError(t, params.Validate(), name)
	}
}
