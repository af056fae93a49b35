/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、映射表加载、连接器与调度器的装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 应用启动时执行初始化流程，退出时按相反顺序释放资源
 * @rules 确保审计库可用后才提供API服务；缓存与事件连接器不可用时降级运行
 * @dependencies gorm.io/gorm, prometheus, client/connectors
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"customer-cleanser/client/connectors"
	"customer-cleanser/service/cleaning_run"
	"customer-cleanser/service/config"
	"customer-cleanser/service/database"
	"customer-cleanser/service/distributed_lock"
	"customer-cleanser/service/monitoring"
	"customer-cleanser/service/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// closablePublisher 可关闭的事件发布器
type closablePublisher interface {
	cleaning_run.EventPublisher
	MessagesSent() int64
	Close() error
}

const inboxLockTTL = 5 * time.Minute

var (
	DB                       *gorm.DB
	GlobalConfig             *config.Config
	GlobalMetrics            *monitoring.Metrics
	GlobalEventPublisher     closablePublisher
	GlobalResultCache        *connectors.RedisCache
	GlobalCleaningRunService *cleaning_run.Service
	GlobalInboxScheduler     *scheduler.InboxScheduler
)

// Init 初始化所有服务
func Init(cfg *config.Config) error {
	GlobalConfig = cfg

	if err := initDatabase(cfg); err != nil {
		return err
	}
	if err := runMigrations(); err != nil {
		return err
	}
	return initServices(cfg)
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// runMigrations 运行数据库迁移
func runMigrations() error {
	if err := database.AutoMigrate(DB); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// initServices 初始化服务
func initServices(cfg *config.Config) error {
	vocab, err := config.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return err
	}
	if cfg.VocabularyFile != "" {
		slog.Info("已加载映射表文件", "path", cfg.VocabularyFile)
	}

	GlobalMetrics = monitoring.NewMetrics(prometheus.DefaultRegisterer)

	opts := []cleaning_run.Option{
		cleaning_run.WithMetrics(GlobalMetrics),
		cleaning_run.WithDefaultEncoding(cfg.InputEncoding),
	}

	publisher, err := newEventPublisher(cfg.Events)
	if err != nil {
		slog.Warn("事件发布器初始化失败，运行事件将不会发布", "sink", cfg.Events.Sink, "error", err)
	} else if publisher != nil {
		GlobalEventPublisher = publisher
		opts = append(opts, cleaning_run.WithPublisher(publisher))
		if err := monitoring.RegisterEventsSent(prometheus.DefaultRegisterer, cfg.Events.Sink, publisher.MessagesSent); err != nil {
			slog.Warn("注册事件发送指标失败", "error", err)
		}
	}

	if cache := newResultCache(cfg.Cache); cache != nil {
		GlobalResultCache = cache
		opts = append(opts, cleaning_run.WithCache(cache, cfg.Cache.TTL))
		if err := monitoring.RegisterCacheStats(prometheus.DefaultRegisterer, func() monitoring.CacheStats {
			stats := cache.GetStatistics()
			return monitoring.CacheStats{Hits: stats.Hits, Misses: stats.Misses, Sets: stats.Sets, Errors: stats.Errors}
		}); err != nil {
			slog.Warn("注册缓存统计指标失败", "error", err)
		}
	}

	GlobalCleaningRunService = cleaning_run.NewService(DB, vocab, opts...)

	if cfg.Inbox.Enabled() {
		GlobalInboxScheduler = scheduler.NewInboxScheduler(GlobalCleaningRunService,
			cfg.Inbox.Dir, cfg.Inbox.OutDir, cfg.Inbox.Cron, cfg.InputEncoding)
		// 多实例共享收件箱时借助 Redis 锁避免重复处理
		if GlobalResultCache != nil {
			lock := distributed_lock.NewRedisLock(GlobalResultCache.Client(), "")
			GlobalInboxScheduler.SetLocker(distributed_lock.NewLockExecutor(lock), inboxLockTTL)
		}
		if err := GlobalInboxScheduler.Start(); err != nil {
			return fmt.Errorf("启动收件箱调度器失败: %w", err)
		}
	}

	slog.Info("服务初始化完成",
		"event_sink", cfg.Events.Sink,
		"cache", cfg.Cache.Enabled(),
		"inbox", cfg.Inbox.Enabled())
	return nil
}

// newEventPublisher 按配置创建事件发布器，none 时返回 nil
func newEventPublisher(cfg config.EventConfig) (closablePublisher, error) {
	switch cfg.Sink {
	case config.EventSinkKafka:
		return connectors.NewKafkaPublisher(&connectors.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			WriteTimeout: 10 * time.Second,
		}), nil
	case config.EventSinkMQTT:
		return connectors.NewMQTTPublisher(&connectors.MQTTConfig{
			Broker:         cfg.MQTTBroker,
			ClientID:       cfg.MQTTClientID,
			Topic:          cfg.MQTTTopic,
			QoS:            1,
			KeepAlive:      30 * time.Second,
			PublishTimeout: 10 * time.Second,
		})
	default:
		return nil, nil
	}
}

// newResultCache 创建并探测 Redis 缓存，不可用时返回 nil
func newResultCache(cfg config.CacheConfig) *connectors.RedisCache {
	if !cfg.Enabled() {
		return nil
	}

	cache := connectors.NewRedisCache(&connectors.RedisConfig{
		Address:     cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		Database:    cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		slog.Warn("Redis不可用，结果缓存已禁用", "addr", cfg.RedisAddr, "error", err)
		cache.Close()
		return nil
	}
	return cache
}

// Ready 就绪检查：审计库可连接
func Ready() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Shutdown 释放资源
func Shutdown() {
	if GlobalInboxScheduler != nil {
		GlobalInboxScheduler.Stop()
	}
	if GlobalEventPublisher != nil {
		if err := GlobalEventPublisher.Close(); err != nil {
			slog.Warn("关闭事件发布器失败", "error", err)
		}
	}
	if GlobalResultCache != nil {
		GlobalResultCache.Close()
	}
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	slog.Info("服务已停止")
}
