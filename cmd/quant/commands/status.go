package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "서비스 상태 및 상위 스코어 조회",
	Long: `저장소와 캐시 연결 상태, 상위 핫니스 스코어 종목을 표시합니다.

표시 정보:
- Store: 저장소 종류와 DB 헬스 체크 (Connection Pool 통계)
- Redis: 캐시 활성 여부
- Top: 스코어 상위 종목

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --top 20`,
	RunE: runStatus,
}

var statusTop int

func init() {
	rootCmd.AddCommand(statusCmd)

	// Flags
	statusCmd.Flags().IntVar(&statusTop, "top", 10, "표시할 상위 종목 수")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("Service Status", map[string]string{
		"Env":    a.cfg.Env,
		"Store":  a.cfg.Store,
		"Redis":  fmt.Sprintf("%t", a.redis.Enabled()),
		"Preset": a.cfg.Scoring.Preset,
	})

	if a.db != nil {
		status, err := a.db.HealthCheck(ctx)
		if err != nil {
			PrintError(fmt.Sprintf("Database unhealthy: %v", err))
			return err
		}
		PrintSuccess(fmt.Sprintf("Database healthy (%v)", status.ResponseTime.Round(time.Microsecond)))
		PrintKeyValue("Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns), 22)
		PrintKeyValue("Total Connections", fmt.Sprintf("%d", status.Stats.TotalConns), 22)
		PrintKeyValue("Acquired Connections", fmt.Sprintf("%d", status.Stats.AcquiredConns), 22)
		PrintKeyValue("Idle Connections", fmt.Sprintf("%d", status.Stats.IdleConns), 22)
	}

	if err := a.redis.Ping(ctx); err != nil {
		PrintWarning(fmt.Sprintf("Redis unreachable, ranking served from store: %v", err))
	}

	top, err := a.ranking.Top(ctx, statusTop)
	if err != nil {
		return fmt.Errorf("load ranking: %w", err)
	}

	fmt.Println()
	if len(top) == 0 {
		PrintInfo("No scored instruments yet, run `quant recompute` first")
		return nil
	}

	widths := []int{4, 16, 24, 6, 20}
	PrintTableHeader([]string{"#", "ID", "NAME", "SCORE", "COMPUTED AT"}, widths)
	for i, r := range top {
		PrintTableRow([]string{
			fmt.Sprintf("%d", i+1),
			r.ID,
			r.Name,
			fmt.Sprintf("%d", r.HotnessScore),
			r.ScoreComputedAt.Format(time.DateTime),
		}, widths)
	}

	return nil
}
