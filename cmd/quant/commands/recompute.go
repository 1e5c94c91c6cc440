package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/internal/recompute"
	"github.com/wonny/hotscore/internal/scoring"
	"github.com/wonny/hotscore/pkg/config"
	"github.com/wonny/hotscore/pkg/httputil"
	"github.com/wonny/hotscore/pkg/logger"
)

// recomputeCmd represents the recompute command
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "스코어 배치 재계산",
	Long: `종목 핫니스 스코어를 커서 기반 배치로 재계산합니다.

기본 동작은 처음부터 끝까지 전체 스윕입니다.
--once 는 한 배치만 실행하고 다음 재개 토큰을 출력합니다.
--remote 는 실행 중인 API 서버의 /api/scores/recompute 를 반복 호출합니다.

Example:
  go run ./cmd/quant recompute
  go run ./cmd/quant recompute --batch-size 200 --preset aggressive
  go run ./cmd/quant recompute --once --resume-after AAPL
  go run ./cmd/quant recompute --remote --api-url http://localhost:8080`,
	RunE: runRecompute,
}

var (
	recomputeBatchSize   int
	recomputePreset      string
	recomputeResumeAfter string
	recomputeOnce        bool
	recomputeRemote      bool
	recomputeAPIURL      string
)

func init() {
	rootCmd.AddCommand(recomputeCmd)

	// Flags
	recomputeCmd.Flags().IntVar(&recomputeBatchSize, "batch-size", 0, "배치 크기 1-1000 (기본값: SCORE_BATCH_SIZE)")
	recomputeCmd.Flags().StringVar(&recomputePreset, "preset", "", "파라미터 프리셋 (default|aggressive)")
	recomputeCmd.Flags().StringVar(&recomputeResumeAfter, "resume-after", "", "이 ID 다음부터 재개")
	recomputeCmd.Flags().BoolVar(&recomputeOnce, "once", false, "한 배치만 실행")
	recomputeCmd.Flags().BoolVar(&recomputeRemote, "remote", false, "API 서버를 통해 실행")
	recomputeCmd.Flags().StringVar(&recomputeAPIURL, "api-url", "", "API 서버 주소 (기본값: API_BASE_URL)")
}

// batchRunner is satisfied by the local engine and the remote driver
type batchRunner interface {
	RunBatch(ctx context.Context, batchSize int, params contracts.ScoringParameters, resumeAfter *string) (*contracts.BatchResult, error)
}

func runRecompute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		runner    batchRunner
		batchSize int
		preset    string
		log       *logger.Logger
	)

	if recomputeRemote {
		// 원격 모드는 저장소 연결이 필요 없음
		cfg, err := config.LoadWith(func(c *config.Config) {
			c.Store = config.StoreMemory
			if verbose {
				c.LogLevel = "debug"
			}
		})
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log = logger.New(cfg)
		baseURL := cfg.Client.BaseURL
		if recomputeAPIURL != "" {
			baseURL = recomputeAPIURL
		}
		client := httputil.New(cfg.Client, log)
		runner = recompute.NewRemoteDriver(client, baseURL, log)
		batchSize, preset = cfg.Scoring.BatchSize, cfg.Scoring.Preset
	} else {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		runner, log = a.engine, a.log
		batchSize, preset = a.cfg.Scoring.BatchSize, a.cfg.Scoring.Preset
	}

	if recomputeBatchSize != 0 {
		batchSize = recomputeBatchSize
	}
	if recomputePreset != "" {
		preset = recomputePreset
	}

	params, err := scoring.Preset(preset)
	if err != nil {
		return err
	}

	mode := "local"
	if recomputeRemote {
		mode = "remote"
	}
	PrintHeader("Score Recompute", map[string]string{
		"Mode":       mode,
		"Batch size": fmt.Sprintf("%d", batchSize),
		"Preset":     preset,
	})

	var cursor *string
	if recomputeResumeAfter != "" {
		cursor = &recomputeResumeAfter
	}

	started := time.Now()
	summary := contracts.SweepSummary{}

	for {
		result, err := runner.RunBatch(ctx, batchSize, params, cursor)
		if err != nil {
			log.WithError(err).Error("Recompute batch failed")
			if cursor != nil {
				PrintWarning(fmt.Sprintf("Retry with --resume-after %s", *cursor))
			}
			return err
		}
		summary.Add(result)
		PrintBatchLine(summary.Batches, result)

		if recomputeOnce || !result.HasMore {
			if result.HasMore && result.ResumeToken != nil {
				PrintInfo(fmt.Sprintf("More remaining, continue with --resume-after %s", *result.ResumeToken))
			}
			break
		}
		cursor = result.ResumeToken

		if err := ctx.Err(); err != nil {
			PrintWarning(fmt.Sprintf("Interrupted, continue with --resume-after %s", *cursor))
			return err
		}
	}

	summary.Duration = time.Since(started)
	PrintSweepSummary(summary)
	return nil
}
