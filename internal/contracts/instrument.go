package contracts

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Direction is the sign of a period's change versus the next-newer period
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// PricePeriod summarizes one historical window for one instrument
// ⭐ SSOT: 기간별 가격 요약 타입은 여기서만 정의
type PricePeriod struct {
	Label           string     `json:"label"`
	StartOffsetDays int        `json:"startOffsetDays"`
	EndOffsetDays   int        `json:"endOffsetDays"`
	AveragePrice    float64    `json:"averagePrice"`
	HighPrice       float64    `json:"highPrice"`
	LowPrice        float64    `json:"lowPrice"`
	ChangePercent   *float64   `json:"changePercent,omitempty"`
	ChangeAbsolute  *float64   `json:"changeAbsolute,omitempty"`
	Direction       *Direction `json:"direction,omitempty"`
}

// Validate checks the window bounds and price ordering of a single period
func (p *PricePeriod) Validate() error {
	if p.StartOffsetDays < 0 || p.EndOffsetDays < 0 {
		return fmt.Errorf("%w: period %q has negative offset", ErrInvalidInput, p.Label)
	}
	if p.StartOffsetDays >= p.EndOffsetDays {
		return fmt.Errorf("%w: period %q start offset %d must be before end offset %d",
			ErrInvalidInput, p.Label, p.StartOffsetDays, p.EndOffsetDays)
	}
	for _, v := range []float64{p.AveragePrice, p.HighPrice, p.LowPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: period %q has invalid price %v", ErrInvalidInput, p.Label, v)
		}
	}
	if p.LowPrice > p.AveragePrice || p.AveragePrice > p.HighPrice {
		return fmt.Errorf("%w: period %q violates low <= average <= high", ErrInvalidInput, p.Label)
	}
	return nil
}

// SortNewestFirst orders periods so the most recent window comes first.
// The newest window is the one starting closest to today.
func SortNewestFirst(periods []PricePeriod) {
	sort.SliceStable(periods, func(i, j int) bool {
		if periods[i].StartOffsetDays != periods[j].StartOffsetDays {
			return periods[i].StartOffsetDays < periods[j].StartOffsetDays
		}
		return periods[i].EndOffsetDays < periods[j].EndOffsetDays
	})
}

// NormalizePriceHistory validates, orders newest-first and annotates change fields.
// The input slice is not modified.
func NormalizePriceHistory(periods []PricePeriod) ([]PricePeriod, error) {
	out := make([]PricePeriod, len(periods))
	copy(out, periods)

	for i := range out {
		if err := out[i].Validate(); err != nil {
			return nil, err
		}
	}

	SortNewestFirst(out)

	for i := range out {
		out[i].ChangePercent = nil
		out[i].ChangeAbsolute = nil
		out[i].Direction = nil

		// 최신 기간은 비교 대상 없음
		if i == 0 {
			continue
		}

		newer := out[i-1].AveragePrice
		abs := newer - out[i].AveragePrice
		out[i].ChangeAbsolute = &abs

		if out[i].AveragePrice == 0 {
			continue
		}
		pct := abs / out[i].AveragePrice * 100
		out[i].ChangePercent = &pct

		switch {
		case pct > 0:
			d := DirectionUp
			out[i].Direction = &d
		case pct < 0:
			d := DirectionDown
			out[i].Direction = &d
		}
	}

	return out, nil
}

// Instrument is a traded instrument with its cached price history and derived score
type Instrument struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	PriceHistory    []PricePeriod `json:"priceHistory"`
	PriceUpdatedAt  *time.Time    `json:"priceUpdatedAt,omitempty"`
	HotnessScore    *int          `json:"hotnessScore"`
	ScoreComputedAt *time.Time    `json:"scoreComputedAt"`
	DeletedAt       *time.Time    `json:"-"`
}

// HasScore reports whether a score is currently stored
func (i *Instrument) HasScore() bool {
	return i.HotnessScore != nil
}

// ScoreCandidate is what the batch loop reads per instrument
type ScoreCandidate struct {
	ID           string
	PriceHistory []PricePeriod

	// DecodeErr is set when the stored history could not be read back
	DecodeErr error
}

// ScoreUpdate is a staged score write
type ScoreUpdate struct {
	ID         string
	Score      int
	ComputedAt time.Time
}

// RankedInstrument is one row of the hotness ranking
type RankedInstrument struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	HotnessScore    int       `json:"hotnessScore"`
	ScoreComputedAt time.Time `json:"scoreComputedAt"`
}
