package instruments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/hotscore/internal/contracts"
)

// MemoryStore is an in-memory implementation of contracts.Store.
// Used by tests and by the memory dev mode of the CLI.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*contracts.Instrument

	// writeErr, when set, makes ApplyScoreUpdates fail without applying anything
	writeErr error
	// readErr, when set, makes FetchScoringCandidates fail
	readErr error
	// corrupt marks rows whose stored history reads back as undecodable
	corrupt map[string]error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]*contracts.Instrument),
		corrupt: make(map[string]error),
	}
}

// FailWrites makes subsequent score writes fail with err (nil restores normal behavior)
func (s *MemoryStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailReads makes subsequent candidate reads fail with err (nil restores normal behavior)
func (s *MemoryStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// MarkCorrupt makes the stored history of id read back with a decode error
func (s *MemoryStore) MarkCorrupt(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrupt[id] = err
}

// FetchScoringCandidates implements contracts.ScoreStore
func (s *MemoryStore) FetchScoringCandidates(ctx context.Context, afterID string, limit int) ([]contracts.ScoreCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.readErr != nil {
		return nil, s.readErr
	}

	ids := make([]string, 0, len(s.data))
	for id, inst := range s.data {
		if inst.DeletedAt != nil || len(inst.PriceHistory) == 0 {
			continue
		}
		if afterID != "" && id <= afterID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if limit <= 0 {
		return []contracts.ScoreCandidate{}, nil
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]contracts.ScoreCandidate, 0, len(ids))
	for _, id := range ids {
		c := contracts.ScoreCandidate{
			ID:           id,
			PriceHistory: copyPeriods(s.data[id].PriceHistory),
		}
		if err, ok := s.corrupt[id]; ok {
			c.PriceHistory = nil
			c.DecodeErr = err
		}
		out = append(out, c)
	}
	return out, nil
}

// ApplyScoreUpdates implements contracts.ScoreStore. Either every update is
// applied or none is.
func (s *MemoryStore) ApplyScoreUpdates(ctx context.Context, updates []contracts.ScoreUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	for _, u := range updates {
		inst, ok := s.data[u.ID]
		if !ok || inst.DeletedAt != nil {
			return fmt.Errorf("apply score to %s: %w", u.ID, contracts.ErrNotFound)
		}
	}

	for _, u := range updates {
		score := u.Score
		computedAt := u.ComputedAt
		inst := s.data[u.ID]
		inst.HotnessScore = &score
		inst.ScoreComputedAt = &computedAt
	}
	return nil
}

// Get implements contracts.InstrumentStore
func (s *MemoryStore) Get(_ context.Context, id string) (*contracts.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.data[id]
	if !ok || inst.DeletedAt != nil {
		return nil, contracts.ErrNotFound
	}
	return copyInstrument(inst), nil
}

// Upsert implements contracts.InstrumentStore. A soft-deleted instrument is revived.
func (s *MemoryStore) Upsert(_ context.Context, id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: empty instrument id", contracts.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if inst, ok := s.data[id]; ok {
		if name != "" {
			inst.Name = name
		}
		inst.DeletedAt = nil
		return nil
	}

	s.data[id] = &contracts.Instrument{ID: id, Name: name}
	return nil
}

// ReplacePriceHistory implements contracts.InstrumentStore
func (s *MemoryStore) ReplacePriceHistory(_ context.Context, id string, periods []contracts.PricePeriod, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.data[id]
	if !ok || inst.DeletedAt != nil {
		return contracts.ErrNotFound
	}

	inst.PriceHistory = copyPeriods(periods)
	delete(s.corrupt, id)
	inst.PriceUpdatedAt = &fetchedAt
	// 가격 교체 시 기존 스코어 무효화
	inst.HotnessScore = nil
	inst.ScoreComputedAt = nil
	return nil
}

// SoftDelete implements contracts.InstrumentStore
func (s *MemoryStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.data[id]
	if !ok || inst.DeletedAt != nil {
		return contracts.ErrNotFound
	}
	now := time.Now()
	inst.DeletedAt = &now
	return nil
}

// TopScored implements contracts.InstrumentStore
func (s *MemoryStore) TopScored(_ context.Context, limit int) ([]contracts.RankedInstrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.RankedInstrument, 0)
	for _, inst := range s.data {
		if inst.DeletedAt != nil || inst.HotnessScore == nil || inst.ScoreComputedAt == nil {
			continue
		}
		out = append(out, contracts.RankedInstrument{
			ID:              inst.ID,
			Name:            inst.Name,
			HotnessScore:    *inst.HotnessScore,
			ScoreComputedAt: *inst.ScoreComputedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].HotnessScore != out[j].HotnessScore {
			return out[i].HotnessScore > out[j].HotnessScore
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyPeriods(periods []contracts.PricePeriod) []contracts.PricePeriod {
	if periods == nil {
		return nil
	}
	out := make([]contracts.PricePeriod, len(periods))
	copy(out, periods)
	return out
}

func copyInstrument(inst *contracts.Instrument) *contracts.Instrument {
	c := *inst
	c.PriceHistory = copyPeriods(inst.PriceHistory)
	return &c
}
