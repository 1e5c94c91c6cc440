package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/hotscore/internal/scoring"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [price...]",
	Short: "임의 가격 이력 스코어 계산",
	Long: `최신순 가격 목록의 핫니스 스코어를 계산합니다 (저장소 사용 안 함).
첫 번째 값이 가장 최근 기간의 평균가입니다.

Example:
  go run ./cmd/quant score 99 101 102 101 100
  go run ./cmd/quant score 68 100 102 98 101 99 --preset aggressive`,
	Args: cobra.MinimumNArgs(2),
	RunE: runScore,
}

var scorePreset string

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scorePreset, "preset", scoring.PresetDefault, "파라미터 프리셋 (default|aggressive)")
}

func runScore(cmd *cobra.Command, args []string) error {
	prices := make([]float64, 0, len(args))
	for _, arg := range args {
		p, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", arg, err)
		}
		prices = append(prices, p)
	}

	params, err := scoring.Preset(scorePreset)
	if err != nil {
		return err
	}

	result, err := scoring.Score(scoring.NewSeries(prices), params)
	if err != nil {
		return err
	}

	b := result.Breakdown
	PrintHeader("Hotness Score", map[string]string{
		"Preset": scorePreset,
		"Prices": fmt.Sprintf("%v", prices),
	})
	PrintKeyValue("Score", fmt.Sprintf("%.2f (stored as %d)", result.Rounded(), result.Integer()), 16)
	PrintKeyValue("Historical avg", fmt.Sprintf("%.4f", b.HistoricalAverage), 16)
	PrintKeyValue("Drop", fmt.Sprintf("%.2f%% -> %.2f", b.DropPercent, b.DropScore), 16)
	if b.Trend != "" {
		PrintKeyValue("Volatility", fmt.Sprintf("%.2f%%", b.VolatilityPercent), 16)
		PrintKeyValue("Trend", fmt.Sprintf("%s (%.2f%%, x%.2f)", b.Trend, b.TrendPercent, b.Multiplier), 16)
		PrintKeyValue("Volatility bonus", fmt.Sprintf("%.2f", b.VolatilityScore), 16)
	}
	return nil
}
