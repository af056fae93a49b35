/*
 * @module service/cleaning/type_corrector
 * @description 类型修正：客户终身价值重新解析、投诉次数归一为整数、数值列中位数填充后转整数
 * @architecture 管道模式 - 清洗阶段
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 取值标准化之后 -> 类型修正 -> 缺失值填充
 * @rules 畸形值降级为缺失/0/中位数，不中断流水线；中位数在转整数之前计算
 * @dependencies strings, math
 * @refs coerce.go, stats.go
 */

package cleaning

import (
	"fmt"
	"strings"
)

// TypeCorrector 类型修正
type TypeCorrector struct{}

// NewTypeCorrector 创建类型修正阶段
func NewTypeCorrector() *TypeCorrector {
	return &TypeCorrector{}
}

// Name 阶段名称
func (s *TypeCorrector) Name() string {
	return StageTypeCorrector
}

// Apply 执行类型修正
func (s *TypeCorrector) Apply(t *Table, report *Report) error {
	complaints, err := t.MustColumn(ColNumberOfOpenComplaints)
	if err != nil {
		return err
	}
	s.correctComplaints(t, complaints, report)

	for _, name := range NumericColumns {
		c, err := t.MustColumn(name)
		if err != nil {
			return err
		}
		if err := s.imputeAndCast(t, c, report); err != nil {
			return err
		}
	}
	return nil
}

// correctComplaints 投诉次数归一为非负整数
func (s *TypeCorrector) correctComplaints(t *Table, c *Column, report *Report) {
	for i, v := range c.Values {
		count, reason := complaintCount(v)
		if count < 0 {
			count, reason = 0, ReasonNegativeCount
		}
		c.Values[i] = count
		if reason != "" {
			report.record(StageTypeCorrector, c.Name, t.Index[i], v, count, reason)
		}
	}
}

// complaintCount 返回投诉次数以及（如有）发生降级的原因
func complaintCount(v Value) (int, Reason) {
	switch x := v.(type) {
	case nil:
		return 0, ReasonMissingCount
	case string:
		if idx := strings.Index(x, "/"); idx >= 0 {
			segment := x[idx+1:]
			if end := strings.Index(segment, "/"); end >= 0 {
				segment = segment[:end]
			}
			if n, ok := parseCount(segment); ok {
				return n, ""
			}
			return 0, ReasonUnparsableCount
		}
		if f, ok := toNumber(x); ok {
			n, rounded := countFromNumber(f)
			if rounded {
				return n, ReasonRoundedUp
			}
			return n, ""
		}
		return 0, ReasonUnparsableCount
	}

	if !isNumeric(v) {
		return 0, ReasonUnparsableCount
	}
	f, ok := toNumber(v)
	if !ok {
		// NaN
		return 0, ReasonMissingCount
	}
	n, rounded := countFromNumber(f)
	if rounded {
		return n, ReasonRoundedUp
	}
	return n, ""
}

// imputeAndCast 数值化 -> 中位数填充 -> 截断转整数
func (s *TypeCorrector) imputeAndCast(t *Table, c *Column, report *Report) error {
	numbers := make([]float64, len(c.Values))
	present := make([]bool, len(c.Values))
	var observed []float64

	for i, v := range c.Values {
		f, ok := toNumber(v)
		if !ok && v != nil {
			report.record(StageTypeCorrector, c.Name, t.Index[i], v, nil, ReasonUnparsableNumber)
		}
		if ok {
			numbers[i] = f
			present[i] = true
			observed = append(observed, f)
		}
	}

	if len(observed) < len(c.Values) {
		med, ok := median(observed)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEmptyColumn, c.Name)
		}
		report.Medians[c.Name] = med
		for i := range numbers {
			if !present[i] {
				numbers[i] = med
				report.record(StageTypeCorrector, c.Name, t.Index[i], c.Values[i], int(med), ReasonMedianImputed)
			}
		}
	}

	for i, f := range numbers {
		c.Values[i] = int(f)
	}
	return nil
}
