/*
 * @module service/cleaning/deduplicator
 * @description 去重阶段：删除与之前某行完全相同的行
 * @architecture 管道模式 - 阶段
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 逐行计算行键 -> 重复则记录并丢弃 -> 重置行索引
 * @rules 只删除所有列都相同的行，保留首次出现的顺序
 * @dependencies 无外部依赖
 * @refs pipeline.go, stats.go
 */

package cleaning

import (
	"strconv"
	"strings"
)

// Deduplicator 去除完全重复的行并重置索引
type Deduplicator struct{}

// NewDeduplicator 创建去重阶段
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Name 阶段名称
func (s *Deduplicator) Name() string {
	return StageDeduplicator
}

// Apply 保留每组重复行中的第一行
func (s *Deduplicator) Apply(t *Table, report *Report) error {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]int, 0, t.NumRows())

	for i := 0; i < t.NumRows(); i++ {
		key := rowKey(t.Row(i))
		if _, ok := seen[key]; ok {
			report.record(StageDeduplicator, "", t.Index[i], nil, nil, ReasonDuplicateRow)
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	report.DuplicatesRemoved = t.NumRows() - len(keep)
	t.keepRows(keep)
	return nil
}

// rowKey 每个单元格键前加长度前缀，单元格内容中的任何字节都不会造成歧义
func rowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		k := valueKey(v)
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}
