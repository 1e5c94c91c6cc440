package ranking

import (
	"context"
	"time"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/pkg/logger"
	"github.com/wonny/hotscore/pkg/redis"
)

// Limits for one ranking request
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Cache is the subset of the redis cache used for rankings
type Cache interface {
	Get(ctx context.Context, name, field string, dest interface{}) (bool, error)
	Set(ctx context.Context, name, field string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, name string) error
}

// Service serves the hotness ranking through a read-through cache.
// Cache failures degrade to direct store reads.
// ⭐ SSOT: 랭킹 조회/캐시 무효화는 여기서만
type Service struct {
	store  contracts.InstrumentStore
	cache  Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewService creates a ranking service. cache may be nil.
func NewService(store contracts.InstrumentStore, cache Cache, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("component", "ranking"),
	}
}

// ClampLimit maps a requested size onto [1, MaxLimit]
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Top returns the highest scored instruments
func (s *Service) Top(ctx context.Context, limit int) ([]contracts.RankedInstrument, error) {
	limit = ClampLimit(limit)
	field := redis.RankingField(limit)

	if s.cache != nil {
		var cached []contracts.RankedInstrument
		hit, err := s.cache.Get(ctx, redis.RankingCache, field, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Ranking cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	ranked, err := s.store.TopScored(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.RankingCache, field, ranked, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Ranking cache write failed")
		}
	}

	return ranked, nil
}

// Invalidate drops every cached ranking
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, redis.RankingCache); err != nil {
		s.logger.WithError(err).Warn("Ranking cache invalidation failed")
	}
}

// Warm recomputes and caches the default ranking
func (s *Service) Warm(ctx context.Context) (int, error) {
	s.Invalidate(ctx)
	ranked, err := s.Top(ctx, DefaultLimit)
	if err != nil {
		return 0, err
	}
	return len(ranked), nil
}

// BatchCompleted invalidates cached rankings after scores were persisted (recompute listener)
func (s *Service) BatchCompleted(ctx context.Context, result *contracts.BatchResult) {
	if result.Processed == 0 {
		return
	}
	s.Invalidate(ctx)
}
