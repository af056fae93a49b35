/*
 * @module service/cleaning_run/service
 * @description 清洗运行服务：加载输入、执行流水线、持久化审计记录、发布事件和缓存结果
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 请求 -> 建表 -> 指纹/缓存 -> 流水线 -> 事务持久化 -> 指标/事件/缓存 -> 结果
 * @rules 事件发布和缓存写入失败只记录日志不影响运行结果；流水线失败也会留下 failed 运行记录
 * @dependencies gorm.io/gorm, golang.org/x/crypto/blake2b, log/slog
 * @refs service/cleaning/pipeline.go, service/models/cleaning_run.go, client/connectors
 */

package cleaning_run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"customer-cleanser/service/cleaning"
	"customer-cleanser/service/datasource"
	"customer-cleanser/service/models"
	"customer-cleanser/service/monitoring"

	"gorm.io/gorm"
)

var (
	ErrInvalidInput = errors.New("输入数据无效")
	ErrRunNotFound  = errors.New("清洗运行不存在")
)

const adjustmentBatchSize = 500

// EventPublisher 运行事件发布器
type EventPublisher interface {
	Publish(ctx context.Context, event models.CleaningRunEvent) error
}

// ResultCache 清洗结果缓存
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RunRequest 清洗请求，CSV 与 Records 二选一
type RunRequest struct {
	Source    string
	CSV       []byte
	Encoding  string
	Records   []map[string]interface{}
	Columns   []string
	CreatedBy string
}

// RunResult 清洗结果
type RunResult struct {
	Run    *models.CleaningRun
	Table  *cleaning.Table
	Report *cleaning.Report // 命中缓存时为 nil
	Cached bool
}

// Service 清洗运行服务
type Service struct {
	db              *gorm.DB
	pipeline        *cleaning.Pipeline
	metrics         *monitoring.Metrics
	publisher       EventPublisher
	cache           ResultCache
	cacheTTL        time.Duration
	defaultEncoding string
}

// Option 服务选项
type Option func(*Service)

// WithMetrics 设置指标
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher 设置事件发布器
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithCache 设置结果缓存
func WithCache(c ResultCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithDefaultEncoding 设置 CSV 默认字符集
func WithDefaultEncoding(encoding string) Option {
	return func(s *Service) { s.defaultEncoding = encoding }
}

// NewService 创建清洗运行服务
func NewService(db *gorm.DB, vocab cleaning.Vocabulary, opts ...Option) *Service {
	s := &Service{
		db:              db,
		pipeline:        cleaning.NewPipeline(vocab),
		defaultEncoding: "utf-8",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vocabulary 当前使用的映射表
func (s *Service) Vocabulary() cleaning.Vocabulary {
	return s.pipeline.Vocabulary()
}

// Stages 流水线阶段名称
func (s *Service) Stages() []string {
	return s.pipeline.Stages()
}

// Run 执行一次清洗
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()

	table, err := s.buildTable(req)
	if err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(req, s.pipeline.Vocabulary())
	if err != nil {
		return nil, err
	}

	if result, ok := s.fromCache(ctx, req, fingerprint, start); ok {
		return result, nil
	}

	cleaned, report, err := s.pipeline.Run(table)
	if err != nil {
		run := s.newRun(req, fingerprint, start)
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
		if report != nil {
			run.RowsIn = report.RowsIn
		}
		if perr := s.db.WithContext(ctx).Create(run).Error; perr != nil {
			slog.Error("保存失败运行记录失败", "source", req.Source, "error", perr)
		}
		s.metrics.ObserveRun(run.Status, nil, time.Since(start))
		s.publish(ctx, run, nil)
		slog.Warn("清洗运行失败", "run_id", run.ID, "source", req.Source, "error", err)
		return &RunResult{Run: run}, err
	}

	run := s.newRun(req, fingerprint, start)
	run.Status = models.RunStatusSuccess
	run.RowsIn = report.RowsIn
	run.RowsOut = report.RowsOut
	run.DuplicatesRemoved = report.DuplicatesRemoved
	run.AdjustmentCount = len(report.Adjustments)
	run.Summary = summarize(report)

	if err := s.persist(ctx, run, report); err != nil {
		return nil, err
	}

	s.metrics.ObserveRun(run.Status, report, run.EndTime.Sub(start))
	s.publish(ctx, run, reasonCounts(report))
	s.storeCache(ctx, fingerprint, run, cleaned)

	slog.Info("清洗运行完成",
		"run_id", run.ID,
		"source", run.Source,
		"rows_in", run.RowsIn,
		"rows_out", run.RowsOut,
		"adjustments", run.AdjustmentCount,
		"duration_ms", run.DurationMs)

	return &RunResult{Run: run, Table: cleaned, Report: report}, nil
}

func (s *Service) buildTable(req RunRequest) (*cleaning.Table, error) {
	switch {
	case len(req.CSV) > 0:
		opts := datasource.DefaultLoadOptions()
		opts.Encoding = req.Encoding
		if opts.Encoding == "" {
			opts.Encoding = s.defaultEncoding
		}
		table, err := datasource.LoadCSV(bytes.NewReader(req.CSV), opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return table, nil
	case len(req.Columns) > 0:
		table, err := datasource.LoadRecords(req.Records, req.Columns)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return table, nil
	default:
		return nil, fmt.Errorf("%w: 未提供 CSV 内容或记录列", ErrInvalidInput)
	}
}

func (s *Service) newRun(req RunRequest, fingerprint string, start time.Time) *models.CleaningRun {
	end := time.Now()
	return &models.CleaningRun{
		Source:      req.Source,
		Fingerprint: fingerprint,
		StartTime:   start,
		EndTime:     end,
		DurationMs:  end.Sub(start).Milliseconds(),
		CreatedBy:   req.CreatedBy,
	}
}

// persist 在一个事务内写入运行记录和调整明细
func (s *Service) persist(ctx context.Context, run *models.CleaningRun, report *cleaning.Report) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("保存运行记录失败: %w", err)
		}
		if len(report.Adjustments) == 0 {
			return nil
		}

		adjustments := make([]models.CleaningAdjustment, len(report.Adjustments))
		for i, a := range report.Adjustments {
			adjustments[i] = models.CleaningAdjustment{
				RunID:         run.ID,
				Seq:           i,
				Stage:         a.Stage,
				ColumnName:    a.Column,
				RowIndex:      a.Row,
				OriginalValue: models.EncodeCellValue(a.Original),
				ResultValue:   models.EncodeCellValue(a.Result),
				Reason:        string(a.Reason),
			}
		}
		if err := tx.CreateInBatches(adjustments, adjustmentBatchSize).Error; err != nil {
			return fmt.Errorf("保存调整明细失败: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.Error("持久化清洗运行失败", "source", run.Source, "error", err)
	}
	return err
}

func (s *Service) publish(ctx context.Context, run *models.CleaningRun, counts map[string]int) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, models.NewRunEvent(run, counts)); err != nil {
		s.metrics.ObservePublishFailure()
		slog.Warn("发布清洗事件失败", "run_id", run.ID, "error", err)
	}
}

func summarize(report *cleaning.Report) models.JSONB {
	counts := make([]interface{}, 0)
	for _, c := range report.CountByStage() {
		counts = append(counts, map[string]interface{}{
			"stage":  c.Stage,
			"reason": string(c.Reason),
			"count":  c.Count,
		})
	}

	modes := make(map[string]interface{}, len(report.Modes))
	for k, v := range report.Modes {
		modes[k] = v
	}
	medians := make(map[string]interface{}, len(report.Medians))
	for k, v := range report.Medians {
		medians[k] = v
	}
	renames := make(map[string]interface{}, len(report.Renames))
	for k, v := range report.Renames {
		renames[k] = v
	}

	return models.JSONB{
		"renames":     renames,
		"medians":     medians,
		"modes":       modes,
		"adjustments": counts,
	}
}

func reasonCounts(report *cleaning.Report) map[string]int {
	out := make(map[string]int)
	for reason, n := range report.CountByReason() {
		out[string(reason)] = n
	}
	return out
}
