package instruments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/hotscore/internal/contracts"
)

// PostgresRepository implements contracts.Store on PostgreSQL
// ⭐ SSOT: instruments 테이블 접근은 여기서만
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new instrument repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FetchScoringCandidates implements contracts.ScoreStore
func (r *PostgresRepository) FetchScoringCandidates(ctx context.Context, afterID string, limit int) ([]contracts.ScoreCandidate, error) {
	if limit <= 0 {
		return []contracts.ScoreCandidate{}, nil
	}

	query := `
		SELECT id, jsonb_typeof(price_history), price_history
		FROM instruments
		WHERE deleted_at IS NULL
		  AND CASE jsonb_typeof(price_history)
		        WHEN 'array' THEN jsonb_array_length(price_history) > 0
		        ELSE true
		      END
		  AND ($1 = '' OR id > $1)
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]contracts.ScoreCandidate, 0, limit)
	for rows.Next() {
		var (
			id       string
			jsonType string
			raw      []byte
		)
		if err := rows.Scan(&id, &jsonType, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}

		c := contracts.ScoreCandidate{ID: id}
		// 손상된 이력도 후보에 포함 (루프에서 failed 처리)
		if jsonType != "array" {
			c.DecodeErr = fmt.Errorf("decode price history: expected array, got %s", jsonType)
		} else if err := json.Unmarshal(raw, &c.PriceHistory); err != nil {
			c.DecodeErr = fmt.Errorf("decode price history: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return candidates, nil
}

// ApplyScoreUpdates implements contracts.ScoreStore.
// All updates run in one transaction; any failure rolls back the whole set.
func (r *PostgresRepository) ApplyScoreUpdates(ctx context.Context, updates []contracts.ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE instruments
		SET hotness_score = $2,
		    score_computed_at = $3,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(query, u.ID, u.Score, u.ComputedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for _, u := range updates {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return fmt.Errorf("failed to update score for %s: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return fmt.Errorf("apply score to %s: %w", u.ID, contracts.ErrNotFound)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get implements contracts.InstrumentStore
func (r *PostgresRepository) Get(ctx context.Context, id string) (*contracts.Instrument, error) {
	query := `
		SELECT id, name, price_history, price_updated_at, hotness_score, score_computed_at
		FROM instruments
		WHERE id = $1 AND deleted_at IS NULL
	`

	var (
		inst contracts.Instrument
		raw  []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inst.ID, &inst.Name, &raw, &inst.PriceUpdatedAt, &inst.HotnessScore, &inst.ScoreComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument %s: %w", id, err)
	}

	if err := json.Unmarshal(raw, &inst.PriceHistory); err != nil {
		return nil, fmt.Errorf("failed to decode price history for %s: %w", id, err)
	}

	return &inst, nil
}

// Upsert implements contracts.InstrumentStore. A soft-deleted row is revived.
func (r *PostgresRepository) Upsert(ctx context.Context, id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: empty instrument id", contracts.ErrInvalidInput)
	}

	query := `
		INSERT INTO instruments (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name = '' THEN instruments.name ELSE EXCLUDED.name END,
			deleted_at = NULL,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, id, name); err != nil {
		return fmt.Errorf("failed to upsert instrument %s: %w", id, err)
	}
	return nil
}

// ReplacePriceHistory implements contracts.InstrumentStore
func (r *PostgresRepository) ReplacePriceHistory(ctx context.Context, id string, periods []contracts.PricePeriod, fetchedAt time.Time) error {
	if periods == nil {
		periods = []contracts.PricePeriod{}
	}
	raw, err := json.Marshal(periods)
	if err != nil {
		return fmt.Errorf("failed to encode price history: %w", err)
	}

	// ⭐ 가격 교체와 스코어 무효화는 같은 UPDATE 문에서 처리
	query := `
		UPDATE instruments
		SET price_history = $2,
		    price_updated_at = $3,
		    hotness_score = NULL,
		    score_computed_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, raw, fetchedAt)
	if err != nil {
		return fmt.Errorf("failed to replace price history for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}

// SoftDelete implements contracts.InstrumentStore
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE instruments SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete instrument %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}

// TopScored implements contracts.InstrumentStore
func (r *PostgresRepository) TopScored(ctx context.Context, limit int) ([]contracts.RankedInstrument, error) {
	if limit <= 0 {
		return []contracts.RankedInstrument{}, nil
	}

	query := `
		SELECT id, name, hotness_score, score_computed_at
		FROM instruments
		WHERE deleted_at IS NULL
		  AND hotness_score IS NOT NULL
		  AND score_computed_at IS NOT NULL
		ORDER BY hotness_score DESC, id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}
	defer rows.Close()

	ranked := make([]contracts.RankedInstrument, 0, limit)
	for rows.Next() {
		var ri contracts.RankedInstrument
		if err := rows.Scan(&ri.ID, &ri.Name, &ri.HotnessScore, &ri.ScoreComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		ranked = append(ranked, ri)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ranked, nil
}
