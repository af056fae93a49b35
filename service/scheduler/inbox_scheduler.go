/**
 * @module InboxScheduler
 * @description 收件箱调度器，按 cron 表达式扫描目录中的 CSV 文件并执行清洗
 * @architecture 基于cron库的定时调度器模式
 * @documentReference ../ai_docs/customer_cleaning.md
 * @stateFlow 扫描收件箱 -> 逐个清洗 -> 写出结果 -> 移动源文件到 processed/failed
 * @rules 上一轮扫描未结束时跳过本轮；单个文件失败不影响其他文件
 * @dependencies cron库, cleaning_run, datasource
 * @refs ../cleaning_run/service.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"customer-cleanser/service/cleaning_run"
	"customer-cleanser/service/datasource"
)

const (
	processedDir   = "processed"
	failedDir      = "failed"
	cleanedSuffix  = ".cleaned.csv"
	createdByInbox = "inbox"
)

// Runner 执行单次清洗
type Runner interface {
	Run(ctx context.Context, req cleaning_run.RunRequest) (*cleaning_run.RunResult, error)
}

// ScanLocker 多实例共享收件箱时保证同一时刻只有一个实例扫描
type ScanLocker interface {
	ExecuteWithLockAndRefresh(ctx context.Context, key string, ttl, refreshInterval time.Duration, fn func() error) (bool, error)
}

// ScanResult 一轮扫描结果
type ScanResult struct {
	Processed []string          `json:"processed"`
	Failed    map[string]string `json:"failed"`
}

// InboxScheduler 收件箱调度器
type InboxScheduler struct {
	runner   Runner
	inbox    string
	outbox   string
	encoding string
	spec     string
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	locker   ScanLocker
	lockTTL  time.Duration
}

// NewInboxScheduler 创建收件箱调度器
func NewInboxScheduler(runner Runner, inbox, outbox, spec, encoding string) *InboxScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &InboxScheduler{
		runner:   runner,
		inbox:    inbox,
		outbox:   outbox,
		encoding: encoding,
		spec:     spec,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetLocker 设置分布式扫描锁，需在 Start 之前调用
func (s *InboxScheduler) SetLocker(locker ScanLocker, ttl time.Duration) {
	s.locker = locker
	s.lockTTL = ttl
}

// Start 启动调度器
func (s *InboxScheduler) Start() error {
	if err := s.ensureDirs(); err != nil {
		return err
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		if err := s.scheduledScan(s.ctx); err != nil {
			slog.Error("收件箱扫描失败", "inbox", s.inbox, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("无效的cron表达式 %q: %w", s.spec, err)
	}

	s.cron.Start()
	slog.Info("启动收件箱调度器", "inbox", s.inbox, "outbox", s.outbox, "cron", s.spec)
	return nil
}

// Stop 停止调度器并等待正在执行的扫描结束
func (s *InboxScheduler) Stop() {
	slog.Info("停止收件箱调度器")
	s.cancel()
	<-s.cron.Stop().Done()
}

// scheduledScan 定时扫描，配置了锁时只在持有锁的实例上执行
func (s *InboxScheduler) scheduledScan(ctx context.Context) error {
	scan := func() error {
		_, err := s.ScanOnce(ctx)
		return err
	}
	if s.locker == nil {
		return scan()
	}

	ran, err := s.locker.ExecuteWithLockAndRefresh(ctx, "inbox:"+s.inbox, s.lockTTL, s.lockTTL/3, scan)
	if err == nil && !ran {
		slog.Debug("收件箱正由其他实例扫描，跳过本轮", "inbox", s.inbox)
	}
	return err
}

// ScanOnce 扫描一次收件箱
func (s *InboxScheduler) ScanOnce(ctx context.Context) (*ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.inbox)
	if err != nil {
		return nil, fmt.Errorf("读取收件箱失败: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	if err := s.ensureDirs(); err != nil {
		return nil, err
	}

	result := &ScanResult{Failed: make(map[string]string)}
	for _, name := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.processFile(ctx, name); err != nil {
			result.Failed[name] = err.Error()
			s.move(name, failedDir)
			slog.Warn("收件箱文件清洗失败", "file", name, "error", err)
			continue
		}
		result.Processed = append(result.Processed, name)
		s.move(name, processedDir)
	}

	if len(files) > 0 {
		slog.Info("收件箱扫描完成", "processed", len(result.Processed), "failed", len(result.Failed))
	}
	return result, nil
}

func (s *InboxScheduler) ensureDirs() error {
	for _, dir := range []string{s.outbox, filepath.Join(s.inbox, processedDir), filepath.Join(s.inbox, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

func (s *InboxScheduler) processFile(ctx context.Context, name string) error {
	data, err := os.ReadFile(filepath.Join(s.inbox, name))
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}

	res, err := s.runner.Run(ctx, cleaning_run.RunRequest{
		Source:    name,
		CSV:       data,
		Encoding:  s.encoding,
		CreatedBy: createdByInbox,
	})
	if err != nil {
		return err
	}

	outPath := filepath.Join(s.outbox, strings.TrimSuffix(name, filepath.Ext(name))+cleanedSuffix)
	tmpPath := outPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	if err := datasource.WriteCSV(f, res.Table); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return os.Rename(tmpPath, outPath)
}

func (s *InboxScheduler) move(name, dir string) {
	src := filepath.Join(s.inbox, name)
	dst := filepath.Join(s.inbox, dir, name)
	if err := os.Rename(src, dst); err != nil {
		slog.Error("移动收件箱文件失败", "file", name, "target", dir, "error", err)
	}
}
