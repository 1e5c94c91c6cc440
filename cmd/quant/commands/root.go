package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/hotscore/pkg/config"
)

var (
	// Global flags
	storeFlag string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Hotscore - 종목 핫니스 스코어 엔진",
	Long: `Hotscore Unified CLI

기간별 평균가 이력으로 종목 핫니스 스코어(0-100)를 계산하고
커서 기반 배치로 전체 종목을 재계산합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant api
  go run ./cmd/quant recompute --batch-size 200
  go run ./cmd/quant recompute --remote --api-url http://localhost:8080
  go run ./cmd/quant scheduler start
  go run ./cmd/quant score 99 101 102 101 100
  go run ./cmd/quant migrate`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "storage backend override (postgres|memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig applies global flags on top of the environment
func loadConfig() (*config.Config, error) {
	return config.LoadWith(func(c *config.Config) {
		if storeFlag != "" {
			c.Store = storeFlag
		}
		if verbose {
			c.LogLevel = "debug"
		}
	})
}
