/*
 * @module RedisConnector
 * @description Redis连接器，为清洗结果提供按输入指纹索引的缓存
 * @architecture 适配器模式 - 封装第三方Redis客户端，提供统一的缓存接口
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 连接建立 -> 缓存读写 -> 连接断开
 * @rules 支持单机与集群模式；键不存在不视为错误
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/cleaning_run/cache.go
 */
package connectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig Redis配置信息
type RedisConfig struct {
	Addresses    []string      `json:"addresses"` // Redis地址列表（集群模式）
	Address      string        `json:"address"`   // Redis地址（单机模式）
	Password     string        `json:"password"`
	Database     int           `json:"database"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IsCluster    bool          `json:"is_cluster"`
}

// RedisStats Redis缓存统计信息
type RedisStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// RedisCache 基于Redis的结果缓存
type RedisCache struct {
	config *RedisConfig
	client redis.UniversalClient
	mutex  sync.Mutex
	stats  RedisStats
}

// NewRedisCache 创建新的Redis缓存
func NewRedisCache(config *RedisConfig) *RedisCache {
	var client redis.UniversalClient
	if config.IsCluster {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        config.Addresses,
			Password:     config.Password,
			PoolSize:     config.PoolSize,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         config.Address,
			Password:     config.Password,
			DB:           config.Database,
			PoolSize:     config.PoolSize,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		})
	}

	return &RedisCache{config: config, client: client}
}

// Client 底层Redis客户端，供分布式锁复用连接
func (rc *RedisCache) Client() redis.UniversalClient {
	return rc.client
}

// Ping 测试连接
func (rc *RedisCache) Ping(ctx context.Context) error {
	if err := rc.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis连接失败: %w", err)
	}
	return nil
}

// Get 读取缓存，键不存在时返回 ok=false
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		rc.count(func(s *RedisStats) { s.Misses++ })
		return nil, false, nil
	}
	if err != nil {
		rc.count(func(s *RedisStats) { s.Errors++ })
		return nil, false, fmt.Errorf("GET命令失败: %w", err)
	}

	rc.count(func(s *RedisStats) { s.Hits++ })
	return data, true, nil
}

// Set 写入缓存，ttl 为 0 表示不过期
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := rc.client.Set(ctx, key, value, ttl).Err(); err != nil {
		rc.count(func(s *RedisStats) { s.Errors++ })
		return fmt.Errorf("SET命令失败: %w", err)
	}
	rc.count(func(s *RedisStats) { s.Sets++ })
	return nil
}

// Delete 删除键
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := rc.client.Del(ctx, keys...).Err(); err != nil {
		rc.count(func(s *RedisStats) { s.Errors++ })
		return fmt.Errorf("DEL命令失败: %w", err)
	}
	return nil
}

func (rc *RedisCache) count(fn func(*RedisStats)) {
	rc.mutex.Lock()
	fn(&rc.stats)
	rc.mutex.Unlock()
}

// GetStatistics 获取统计信息
func (rc *RedisCache) GetStatistics() RedisStats {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.stats
}

// Close 关闭客户端
func (rc *RedisCache) Close() error {
	if err := rc.client.Close(); err != nil {
		return fmt.Errorf("关闭Redis客户端失败: %w", err)
	}
	slog.Info("Redis连接器已断开连接")
	return nil
}
