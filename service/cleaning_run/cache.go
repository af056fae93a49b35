/*
 * @module service/cleaning_run/cache
 * @description 清洗结果缓存：输入指纹计算与带类型的结果编解码
 * @architecture 服务层 - 缓存
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 计算指纹 -> 查询缓存 -> 命中时恢复表并记录运行 / 未命中时清洗后写入
 * @rules 单元格携带类型标记，恢复后的值类型与原结果一致
 * @dependencies golang.org/x/crypto/blake2b
 * @refs client/connectors/redis_connector.go, service.go
 */

package cleaning_run

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"customer-cleanser/service/cleaning"
	"customer-cleanser/service/models"

	"golang.org/x/crypto/blake2b"
)

const cacheKeyPrefix = "customer-cleanser:result:"

// cachedResult 缓存中保存的清洗结果
type cachedResult struct {
	RunID             string          `json:"run_id"`
	RowsIn            int             `json:"rows_in"`
	RowsOut           int             `json:"rows_out"`
	DuplicatesRemoved int             `json:"duplicates_removed"`
	AdjustmentCount   int             `json:"adjustment_count"`
	Summary           models.JSONB    `json:"summary"`
	Columns           []string       `json:"columns"`
	Rows              [][]cachedCell `json:"rows"`
}

// 缓存单元格类型标记
const (
	cellNil    = "nil"
	cellString = "s"
	cellInt    = "i"
	cellInt64  = "l"
	cellFloat  = "f"
	cellBool   = "b"
)

// cachedCell 带类型标记的单元格，恢复时 int 与 float64 不会混淆
type cachedCell struct {
	Kind string `json:"k"`
	Text string `json:"v,omitempty"`
}

func encodeCell(v cleaning.Value) (cachedCell, error) {
	switch x := v.(type) {
	case nil:
		return cachedCell{Kind: cellNil}, nil
	case string:
		return cachedCell{Kind: cellString, Text: x}, nil
	case int:
		return cachedCell{Kind: cellInt, Text: strconv.Itoa(x)}, nil
	case int64:
		return cachedCell{Kind: cellInt64, Text: strconv.FormatInt(x, 10)}, nil
	case float64:
		return cachedCell{Kind: cellFloat, Text: strconv.FormatFloat(x, 'g', -1, 64)}, nil
	case bool:
		return cachedCell{Kind: cellBool, Text: strconv.FormatBool(x)}, nil
	default:
		return cachedCell{}, fmt.Errorf("不支持缓存的单元格类型 %T", v)
	}
}

func (c cachedCell) value() (cleaning.Value, error) {
	switch c.Kind {
	case cellNil:
		return nil, nil
	case cellString:
		return c.Text, nil
	case cellInt:
		return strconv.Atoi(c.Text)
	case cellInt64:
		return strconv.ParseInt(c.Text, 10, 64)
	case cellFloat:
		return strconv.ParseFloat(c.Text, 64)
	case cellBool:
		return strconv.ParseBool(c.Text)
	default:
		return nil, fmt.Errorf("未知的单元格类型标记 %q", c.Kind)
	}
}

// Fingerprint 输入内容与映射表的 blake2b-256 摘要，映射表变化时指纹随之变化
func Fingerprint(req RunRequest, vocab cleaning.Vocabulary) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}

	vocabJSON, err := json.Marshal(vocab)
	if err != nil {
		return "", fmt.Errorf("序列化映射表失败: %w", err)
	}
	h.Write(vocabJSON)
	h.Write([]byte{0})

	if len(req.CSV) > 0 {
		h.Write([]byte("csv:" + req.Encoding))
		h.Write([]byte{0})
		h.Write(req.CSV)
	} else {
		payload, err := json.Marshal(struct {
			Columns []string                 `json:"columns"`
			Records []map[string]interface{} `json:"records"`
		}{req.Columns, req.Records})
		if err != nil {
			return "", fmt.Errorf("序列化记录失败: %w", err)
		}
		h.Write([]byte("records:"))
		h.Write(payload)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Service) fromCache(ctx context.Context, req RunRequest, fingerprint string, start time.Time) (*RunResult, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, ok, err := s.cache.Get(ctx, cacheKeyPrefix+fingerprint)
	if err != nil {
		slog.Warn("读取结果缓存失败", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		slog.Warn("解析结果缓存失败，删除该条目", "fingerprint", fingerprint, "error", err)
		s.evictCache(ctx, fingerprint)
		return nil, false
	}

	table, err := cached.table()
	if err != nil {
		slog.Warn("恢复缓存结果失败，删除该条目", "fingerprint", fingerprint, "error", err)
		s.evictCache(ctx, fingerprint)
		return nil, false
	}

	run := s.newRun(req, fingerprint, start)
	run.Status = models.RunStatusSuccess
	run.Cached = true
	run.RowsIn = cached.RowsIn
	run.RowsOut = cached.RowsOut
	run.DuplicatesRemoved = cached.DuplicatesRemoved
	run.AdjustmentCount = cached.AdjustmentCount
	run.Summary = models.JSONB{"cached_from": cached.RunID}
	for k, v := range cached.Summary {
		run.Summary[k] = v
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		slog.Warn("保存缓存命中运行记录失败", "fingerprint", fingerprint, "error", err)
		return nil, false
	}

	s.metrics.ObserveCacheHit()
	s.metrics.ObserveRun(run.Status, nil, time.Since(start))
	s.publish(ctx, run, nil)

	slog.Info("命中清洗结果缓存", "run_id", run.ID, "cached_from", cached.RunID, "source", run.Source)
	return &RunResult{Run: run, Table: table, Cached: true}, true
}

// evictCache 删除无法使用的缓存条目，本次运行会重新清洗并写入新条目
func (s *Service) evictCache(ctx context.Context, fingerprint string) {
	if err := s.cache.Delete(ctx, cacheKeyPrefix+fingerprint); err != nil {
		slog.Warn("删除结果缓存失败", "fingerprint", fingerprint, "error", err)
	}
}

func (s *Service) storeCache(ctx context.Context, fingerprint string, run *models.CleaningRun, table *cleaning.Table) {
	if s.cache == nil {
		return
	}

	cached := cachedResult{
		RunID:             run.ID,
		RowsIn:            run.RowsIn,
		RowsOut:           run.RowsOut,
		DuplicatesRemoved: run.DuplicatesRemoved,
		AdjustmentCount:   run.AdjustmentCount,
		Summary:           run.Summary,
		Columns:           table.Columns(),
		Rows:              make([][]cachedCell, table.NumRows()),
	}
	for i := range cached.Rows {
		row := table.Row(i)
		cells := make([]cachedCell, len(row))
		for j, v := range row {
			cell, err := encodeCell(v)
			if err != nil {
				slog.Warn("结果无法缓存", "run_id", run.ID, "row", i, "error", err)
				return
			}
			cells[j] = cell
		}
		cached.Rows[i] = cells
	}

	data, err := json.Marshal(cached)
	if err != nil {
		slog.Warn("序列化结果缓存失败", "run_id", run.ID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, cacheKeyPrefix+fingerprint, data, s.cacheTTL); err != nil {
		slog.Warn("写入结果缓存失败", "run_id", run.ID, "error", err)
	}
}

func (c cachedResult) table() (*cleaning.Table, error) {
	t := cleaning.NewTable(len(c.Rows))
	for j, name := range c.Columns {
		values := make([]cleaning.Value, len(c.Rows))
		for i, row := range c.Rows {
			if j >= len(row) {
				return nil, fmt.Errorf("缓存行 %d 缺少列 %s", i, name)
			}
			v, err := row[j].value()
			if err != nil {
				return nil, fmt.Errorf("缓存行 %d 列 %s: %w", i, name, err)
			}
			values[i] = v
		}
		if err := t.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return t, nil
}
