package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 저장소 인터페이스 정의는 여기서만

// ScoreStore is the storage boundary used by the batch recomputation loop
type ScoreStore interface {
	// FetchScoringCandidates returns non-deleted instruments with a non-empty
	// price history, ordered by id ascending, strictly after afterID when set.
	FetchScoringCandidates(ctx context.Context, afterID string, limit int) ([]ScoreCandidate, error)

	// ApplyScoreUpdates writes all updates or none of them.
	ApplyScoreUpdates(ctx context.Context, updates []ScoreUpdate) error
}

// InstrumentStore manages instrument records and their price history
type InstrumentStore interface {
	Get(ctx context.Context, id string) (*Instrument, error)
	Upsert(ctx context.Context, id, name string) error

	// ReplacePriceHistory swaps the whole period list and clears the stored
	// score in the same update.
	ReplacePriceHistory(ctx context.Context, id string, periods []PricePeriod, fetchedAt time.Time) error

	SoftDelete(ctx context.Context, id string) error
	TopScored(ctx context.Context, limit int) ([]RankedInstrument, error)
}

// Store is the full storage surface served by one backend
type Store interface {
	ScoreStore
	InstrumentStore
}
