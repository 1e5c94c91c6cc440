package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/hotscore/internal/instruments"
	"github.com/wonny/hotscore/pkg/config"
	"github.com/wonny/hotscore/pkg/database"
	"github.com/wonny/hotscore/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 마이그레이션 적용",
	Long: `내장된 SQL 마이그레이션을 순서대로 적용합니다.
모든 마이그레이션은 멱등이므로 반복 실행해도 안전합니다.

Example:
  go run ./cmd/quant migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrate requires STORE=%s", config.StorePostgres)
	}

	log := logger.New(cfg)

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := instruments.Migrate(ctx, db.Pool)
	if err != nil {
		return err
	}

	log.WithField("applied", len(applied)).Info("Migrations applied")
	PrintSuccess(fmt.Sprintf("Applied %d migration(s)", len(applied)))
	PrintList(applied)
	return nil
}
