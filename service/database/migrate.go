/*
 * @module service/database/migrate
 * @description 数据库连接与迁移模块，负责打开审计库并创建表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 应用启动时打开连接 -> 确保 schema -> 执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies customer-cleanser/service/models, gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs service/init.go
 */

package database

import (
	"fmt"
	"log/slog"

	"customer-cleanser/service/config"
	"customer-cleanser/service/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 按配置打开数据库连接
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// sqlite 只允许单个写连接，内存库的每个连接也是独立的库
	if cfg.Driver == config.DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("获取数据库连接池失败: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.Driver == config.DriverPostgres && cfg.URL == "" && cfg.Schema != "" && cfg.Schema != "public" {
		if err := EnsureSchema(db, cfg.Schema); err != nil {
			return nil, err
		}
	}

	slog.Info("数据库连接成功", "driver", cfg.Driver)
	return db, nil
}

// EnsureSchema 创建 postgres schema（已存在时忽略）
func EnsureSchema(db *gorm.DB, schemaName string) error {
	var count int64
	db.Raw("SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?", schemaName).Scan(&count)
	if count > 0 {
		return nil
	}

	slog.Info("开始创建 schema", "schema", schemaName)
	createSchemaSQL := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS \"%s\";", schemaName)
	if err := db.Exec(createSchemaSQL).Error; err != nil {
		return fmt.Errorf("创建 schema %s 失败: %w", schemaName, err)
	}
	return nil
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	slog.Info("开始数据库迁移...")

	err := db.AutoMigrate(
		&models.CleaningRun{},
		&models.CleaningAdjustment{},
	)
	if err != nil {
		return fmt.Errorf("迁移清洗审计表失败: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return err
	}

	slog.Info("数据库迁移完成")
	return nil
}

// createIndexes 按运行查询调整明细的组合索引
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_cleaning_adjustments_run_seq ON cleaning_adjustments (run_id, seq)",
		"CREATE INDEX IF NOT EXISTS idx_cleaning_runs_created_at ON cleaning_runs (created_at)",
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("创建索引失败: %w", err)
		}
	}
	return nil
}
