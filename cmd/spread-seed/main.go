// spread-seed 删除并重建价差相关表，写入示例数据
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wyfcoding/spreadhub/internal/spread/infrastructure/persistence/mysql"
	"github.com/wyfcoding/spreadhub/pkg/config"
	"github.com/wyfcoding/spreadhub/pkg/db"
	"github.com/wyfcoding/spreadhub/pkg/logger"
	"gorm.io/gorm"
)

func main() {
	configPath := os.Getenv("SPREAD_CONFIG")
	if configPath == "" {
		configPath = "configs/spread/config.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format, Output: "stdout"}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	if cfg.Database.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("Failed to create database dir: %v", err)
			}
		}
	}
	gormDB, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to connect to database", "error", err)
	}
	defer gormDB.Close()

	n, err := seed(ctx, gormDB, cfg.Spread.MaxPageSize, time.Now().UTC())
	if err != nil {
		logger.Fatal(ctx, "Failed to seed database", "error", err)
	}
	fmt.Printf("Database initialized successfully with %d sample spreads.\n", n)
}

// seed 重建表结构后在同一事务内创建示例价差
func seed(ctx context.Context, database *db.DB, maxPageSize int, now time.Time) (int, error) {
	if err := mysql.ResetSchema(database.DB); err != nil {
		return 0, fmt.Errorf("failed to reset schema: %w", err)
	}

	repo := mysql.NewSpreadRepository(database.DB, mysql.Options{MaxPageSize: maxPageSize})
	spreads := initialSpreads(now)
	// 示例数据整体写入，任一失败全部回滚
	err := database.WithTx(ctx, func(ctx context.Context, _ *gorm.DB) error {
		for _, s := range spreads {
			if _, err := repo.Create(ctx, s); err != nil {
				return fmt.Errorf("failed to create %s/%s: %w", s.Pair.Base, s.Pair.Quote, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(spreads), nil
}
