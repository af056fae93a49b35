/*
 * @module service/cleaning/report
 * @description 清洗审计报告，记录每一次默认值替换及其原因
 * @architecture 数据模型层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 各阶段记录调整 -> 流水线汇总 -> 服务层持久化
 * @rules 任何被静默替换的值都必须留下一条 Adjustment
 * @dependencies sort
 * @refs pipeline.go, service/models/cleaning_run.go
 */

package cleaning

import "sort"

// Reason 值被替换的原因
type Reason string

const (
	ReasonUnmappedCategory Reason = "unmapped_category" // 分类值不在映射表中
	ReasonNonText          Reason = "non_text"          // 期望文本却得到其他类型
	ReasonUnparsableNumber Reason = "unparsable_number" // 数值无法解析
	ReasonUnparsableCount  Reason = "unparsable_count"  // 投诉次数无法解析
	ReasonMissingCount     Reason = "missing_count"     // 投诉次数缺失
	ReasonNegativeCount    Reason = "negative_count"    // 投诉次数为负
	ReasonRoundedUp        Reason = "rounded_up"        // 非整数投诉次数向上取整
	ReasonMedianImputed    Reason = "median_imputed"
	ReasonModeImputed      Reason = "mode_imputed"
	ReasonDuplicateRow     Reason = "duplicate_row"
)

// 阶段名称
const (
	StageColumnNormalizer    = "column_normalizer"
	StageValueCanonicalizer  = "value_canonicalizer"
	StageTypeCorrector       = "type_corrector"
	StageMissingValueImputer = "missing_value_imputer"
	StageDeduplicator        = "deduplicator"
)

// Adjustment 一次值调整
type Adjustment struct {
	Stage    string `json:"stage"`
	Column   string `json:"column"`
	Row      int    `json:"row"` // 输入表中的行索引
	Original Value  `json:"original"`
	Result   Value  `json:"result"`
	Reason   Reason `json:"reason"`
}

// Report 一次流水线运行的审计报告
type Report struct {
	RowsIn            int                `json:"rows_in"`
	RowsOut           int                `json:"rows_out"`
	DuplicatesRemoved int                `json:"duplicates_removed"`
	Renames           map[string]string  `json:"renames"`
	Medians           map[string]float64 `json:"medians"`
	Modes             map[string]Value   `json:"modes"`
	Adjustments       []Adjustment       `json:"adjustments"`
}

func newReport() *Report {
	return &Report{
		Renames: make(map[string]string),
		Medians: make(map[string]float64),
		Modes:   make(map[string]Value),
	}
}

func (r *Report) record(stage, column string, row int, original, result Value, reason Reason) {
	r.Adjustments = append(r.Adjustments, Adjustment{
		Stage:    stage,
		Column:   column,
		Row:      row,
		Original: original,
		Result:   result,
		Reason:   reason,
	})
}

// CountByReason 按原因统计调整次数
func (r *Report) CountByReason() map[Reason]int {
	counts := make(map[Reason]int)
	for _, a := range r.Adjustments {
		counts[a.Reason]++
	}
	return counts
}

// CountByStage 按阶段和原因统计，键的顺序稳定便于输出
func (r *Report) CountByStage() []StageCount {
	type key struct {
		stage  string
		reason Reason
	}
	counts := make(map[key]int)
	for _, a := range r.Adjustments {
		counts[key{a.Stage, a.Reason}]++
	}

	out := make([]StageCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, StageCount{Stage: k.stage, Reason: k.reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// StageCount 阶段/原因维度的计数
type StageCount struct {
	Stage  string `json:"stage"`
	Reason Reason `json:"reason"`
	Count  int    `json:"count"`
}
