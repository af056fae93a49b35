/*
 * @module service/cleaning/imputer
 * @description 缺失值填充阶段：分类列用众数填充
 * @architecture 管道模式 - 阶段
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 统计众数 -> 填充缺失 -> 记录调整
 * @rules 列中没有非缺失值时返回 ErrEmptyColumn
 * @dependencies 无外部依赖
 * @refs pipeline.go, stats.go
 */

package cleaning

import "fmt"

// MissingValueImputer 用众数填充分类列的缺失值
type MissingValueImputer struct {
	columns []string
}

// NewMissingValueImputer 创建缺失值填充阶段，columns 为空时使用 CategoricalColumns
func NewMissingValueImputer(columns ...string) *MissingValueImputer {
	if len(columns) == 0 {
		columns = CategoricalColumns
	}
	return &MissingValueImputer{columns: columns}
}

// Name 阶段名称
func (s *MissingValueImputer) Name() string {
	return StageMissingValueImputer
}

// Apply 逐列填充
func (s *MissingValueImputer) Apply(t *Table, report *Report) error {
	for _, name := range s.columns {
		c, err := t.MustColumn(name)
		if err != nil {
			return err
		}

		missing := 0
		for _, v := range c.Values {
			if v == nil {
				missing++
			}
		}
		if missing == 0 {
			continue
		}

		m, ok := mode(c.Values)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEmptyColumn, c.Name)
		}
		report.Modes[c.Name] = m
		for i, v := range c.Values {
			if v == nil {
				c.Values[i] = m
				report.record(StageMissingValueImputer, c.Name, t.Index[i], nil, m, ReasonModeImputed)
			}
		}
	}
	return nil
}
