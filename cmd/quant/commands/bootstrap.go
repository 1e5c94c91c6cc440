package commands

import (
	"context"
	"fmt"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/internal/instruments"
	"github.com/wonny/hotscore/internal/ranking"
	"github.com/wonny/hotscore/internal/recompute"
	"github.com/wonny/hotscore/pkg/config"
	"github.com/wonny/hotscore/pkg/database"
	"github.com/wonny/hotscore/pkg/logger"
	"github.com/wonny/hotscore/pkg/metrics"
	"github.com/wonny/hotscore/pkg/redis"
)

// redisPrefix namespaces every key this service writes
const redisPrefix = "hotscore"

// app holds the wired dependencies shared by commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB // nil on the memory store
	store   contracts.Store
	redis   *redis.Client
	metrics *metrics.Registry
	ranking *ranking.Service
	engine  *recompute.Engine
}

// newApp connects storage and redis and builds the batch engine
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	// 3. Storage
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("Using in-memory store, data is lost on exit")
		a.store = instruments.NewMemoryStore()
	default:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.store = instruments.NewPostgresRepository(db.Pool)
		log.Info("Connected to database")
	}

	// 4. Redis (disabled client when REDIS_ENABLED=false)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	// 5. Metrics
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 6. Ranking + engine
	a.ranking = ranking.NewService(a.store, redis.NewCache(rc, redisPrefix), cfg.Scoring.TopCacheTTL, log)
	// 모든 배치(API, 스케줄러, CLI)는 같은 락을 공유
	a.engine = recompute.NewEngine(a.store, log).
		AddListener(a.ranking).
		WithLease(redis.NewLease(rc, redisPrefix), cfg.Scoring.LeaseTTL)
	if a.metrics != nil {
		a.engine.WithMetrics(a.metrics)
	}

	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
