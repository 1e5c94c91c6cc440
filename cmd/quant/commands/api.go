package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/hotscore/internal/api"
	"github.com/wonny/hotscore/internal/api/handlers"
	"github.com/wonny/hotscore/internal/realtime"
	"github.com/wonny/hotscore/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET    /health                              - Health check
  GET    /metrics                             - Prometheus metrics
  GET    /ws/scores                           - 배치 완료 이벤트 (websocket)
  POST   /api/scores/recompute                - 배치 재계산 (커서 기반)
  POST   /api/scores/preview                  - 임의 가격 스코어 미리보기
  GET    /api/scores/presets                  - 파라미터 프리셋
  GET    /api/scores/top                      - 스코어 상위 종목
  GET    /api/instruments/{id}                - 종목 조회
  PUT    /api/instruments/{id}/price-history  - 가격 이력 교체 (스코어 초기화)
  DELETE /api/instruments/{id}                - 종목 삭제

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "스케줄러를 같은 프로세스에서 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// Websocket hub receives every persisted batch
	hub := realtime.NewHub(log)
	defer hub.Close()
	a.engine.AddListener(hub)

	scores := handlers.NewScoresHandler(
		a.engine,
		a.ranking,
		redis.NewRateLimiter(a.redis, redisPrefix),
		handlers.ScoresOptions{
			DefaultBatchSize: cfg.Scoring.BatchSize,
			DefaultPreset:    cfg.Scoring.Preset,
			RateLimit:        redis.RecomputeRateLimit(cfg.Scoring.RecomputeRateLimit),
		},
		log,
	)

	deps := api.RouterDeps{
		Scores:      scores,
		Instruments: handlers.NewInstrumentsHandler(a.store, a.ranking, log),
		ScoreStream: http.HandlerFunc(hub.ServeWS),
		Metrics:     a.metrics,
		Logger:      log,
	}
	if a.db != nil {
		deps.Health = a.db
	}

	if withScheduler {
		sched, err := buildScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(cfg, log, api.NewRouter(deps))

	PrintSuccess(fmt.Sprintf("Server running on http://localhost:%s (store=%s, redis=%t)", cfg.Port, cfg.Store, a.redis.Enabled()))
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
