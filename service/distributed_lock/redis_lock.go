/*
 * @module service/distributed_lock/redis_lock
 * @description Redis分布式锁实现，用于多实例共享收件箱时的扫描防重
 * @architecture 工具层 - 提供分布式锁能力
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 获取锁 -> 执行扫描 -> 释放锁/自动过期
 * @rules 使用Redis SET NX实现，只有持有者可以续期和释放
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/init.go, service/scheduler/inbox_scheduler.go
 */

package distributed_lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockKeyPrefix = "customer-cleanser:lock:"

var ErrLockNotHeld = errors.New("锁不存在或已被其他实例持有")

// DistributedLock 分布式锁接口
type DistributedLock interface {
	// TryLock 尝试获取锁
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock 释放锁
	Unlock(ctx context.Context, key string) error
	// Refresh 刷新锁的过期时间
	Refresh(ctx context.Context, key string, ttl time.Duration) error
}

// RedisLock Redis分布式锁实现
type RedisLock struct {
	client     redis.UniversalClient
	instanceID string // 锁持有者标识
}

// NewRedisLock 基于已有的Redis客户端创建分布式锁，instanceID 为空时使用主机名+进程ID
func NewRedisLock(client redis.UniversalClient, instanceID string) *RedisLock {
	if instanceID == "" {
		hostname, _ := os.Hostname()
		instanceID = fmt.Sprintf("%s:%d", hostname, os.Getpid())
	}
	slog.Info("Redis分布式锁初始化成功", "instance_id", instanceID)
	return &RedisLock{client: client, instanceID: instanceID}
}

// TryLock 使用SET NX，只有当key不存在时才会设置成功
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+key, r.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	if ok {
		slog.Debug("分布式锁: 成功获取锁", "key", key, "ttl", ttl, "instance", r.instanceID)
	}
	return ok, nil
}

var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var refreshScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Unlock 释放锁，只删除本实例持有的锁
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	n, err := unlockScript.Run(ctx, r.client, []string{lockKeyPrefix + key}, r.instanceID).Int64()
	if err != nil {
		return fmt.Errorf("释放锁失败: %w", err)
	}
	if n == 0 {
		slog.Warn("分布式锁: 锁不存在或已被其他实例持有", "key", key, "instance", r.instanceID)
	}
	return nil
}

// Refresh 刷新锁的过期时间
func (r *RedisLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	n, err := refreshScript.Run(ctx, r.client, []string{lockKeyPrefix + key}, r.instanceID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("刷新锁失败: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// LockExecutor 带锁执行器
type LockExecutor struct {
	lock DistributedLock
}

// NewLockExecutor 创建带锁执行器
func NewLockExecutor(lock DistributedLock) *LockExecutor {
	return &LockExecutor{lock: lock}
}

// ExecuteWithLock 在锁保护下执行 fn，锁被其他实例持有时跳过并返回 false
func (e *LockExecutor) ExecuteWithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error) {
	return e.ExecuteWithLockAndRefresh(ctx, key, ttl, 0, fn)
}

// ExecuteWithLockAndRefresh 在锁保护下执行 fn，refreshInterval 大于 0 时自动续期
func (e *LockExecutor) ExecuteWithLockAndRefresh(ctx context.Context, key string, ttl, refreshInterval time.Duration, fn func() error) (bool, error) {
	locked, err := e.lock.TryLock(ctx, key, ttl)
	if err != nil {
		return false, err
	}
	if !locked {
		slog.Debug("分布式锁: 锁已被其他实例持有，跳过执行", "key", key)
		return false, nil
	}

	refreshCtx, cancelRefresh := context.WithCancel(ctx)

	if refreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-refreshCtx.Done():
					return
				case <-ticker.C:
					if err := e.lock.Refresh(refreshCtx, key, ttl); err != nil {
						slog.Error("分布式锁: 续期失败", "key", key, "error", err)
					}
				}
			}
		}()
	}

	defer func() {
		cancelRefresh()
		// 调用方上下文取消后仍需释放锁
		if err := e.lock.Unlock(context.Background(), key); err != nil {
			slog.Error("分布式锁: 释放锁失败", "key", key, "error", err)
		}
	}()

	return true, fn()
}
