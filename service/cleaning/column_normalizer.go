/*
 * @module service/cleaning/column_normalizer
 * @description 列名标准化阶段
 * @architecture 管道模式 - 阶段
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 计算全部新列名 -> 检查冲突 -> 改写列名并记录映射
 * @rules 区分大小写的 ST 先替换为 state；新列名冲突时报错且不修改表
 * @dependencies 无外部依赖
 * @refs pipeline.go
 */

package cleaning

import (
	"fmt"
	"strings"
)

// ColumnNormalizer 列名标准化
type ColumnNormalizer struct{}

// NewColumnNormalizer 创建列名标准化阶段
func NewColumnNormalizer() *ColumnNormalizer {
	return &ColumnNormalizer{}
}

// Name 阶段名称
func (s *ColumnNormalizer) Name() string {
	return StageColumnNormalizer
}

// Apply 改写所有列名，两个原始列名标准化后相同时返回 ErrDuplicateName 且不修改表
func (s *ColumnNormalizer) Apply(t *Table, report *Report) error {
	normalized := make([]string, len(t.columns))
	owner := make(map[string]string, len(t.columns))
	for i, c := range t.columns {
		name := NormalizeColumnName(c.Name)
		if prev, ok := owner[name]; ok {
			return fmt.Errorf("%w: %q 与 %q 都标准化为 %q", ErrDuplicateName, prev, c.Name, name)
		}
		owner[name] = c.Name
		normalized[i] = name
	}

	for i, c := range t.columns {
		if normalized[i] != c.Name {
			report.Renames[c.Name] = normalized[i]
		}
		c.Name = normalized[i]
	}
	return nil
}

// NormalizeColumnName 先把区分大小写的 "ST" 替换为 "state"，再转小写，最后空格转下划线。
// 顺序不能调换：转小写之后就无法再匹配 "ST"。
func NormalizeColumnName(label string) string {
	label = strings.ReplaceAll(label, "ST", "state")
	label = strings.ToLower(label)
	return strings.ReplaceAll(label, " ", "_")
}
