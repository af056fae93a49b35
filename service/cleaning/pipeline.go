/*
 * @module service/cleaning/pipeline
 * @description 客户数据清洗流水线：列名标准化 -> 取值标准化 -> 类型修正 -> 缺失值填充 -> 去重
 * @architecture 管道模式 - 固定顺序的阶段链
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 输入表 -> 五个阶段依次变换 -> 输出表 + 审计报告
 * @rules 阶段严格串行；单个值的异常只降级不中断；结构性错误（缺列、空列）返回错误
 * @dependencies 无外部依赖
 * @refs service/cleaning_run/service.go
 */

package cleaning

import "fmt"

// Stage 流水线阶段
type Stage interface {
	Name() string
	Apply(t *Table, report *Report) error
}

// Pipeline 清洗流水线
type Pipeline struct {
	vocab  Vocabulary
	stages []Stage
}

// NewPipeline 使用给定映射表创建标准五阶段流水线
func NewPipeline(vocab Vocabulary) *Pipeline {
	return &Pipeline{
		vocab: vocab,
		stages: []Stage{
			NewColumnNormalizer(),
			NewValueCanonicalizer(vocab),
			NewTypeCorrector(),
			NewMissingValueImputer(),
			NewDeduplicator(),
		},
	}
}

// Vocabulary 流水线使用的映射表
func (p *Pipeline) Vocabulary() Vocabulary {
	return p.vocab
}

// Stages 阶段名称列表
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run 在表上原地执行所有阶段，返回同一张表和审计报告
func (p *Pipeline) Run(t *Table) (*Table, *Report, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}

	report := newReport()
	report.RowsIn = t.NumRows()

	for _, stage := range p.stages {
		if err := stage.Apply(t, report); err != nil {
			return nil, report, fmt.Errorf("阶段 %s 执行失败: %w", stage.Name(), err)
		}
	}

	report.RowsOut = t.NumRows()
	return t, report, nil
}

// Clean 使用默认映射表清洗客户数据
func Clean(t *Table) (*Table, error) {
	out, _, err := NewPipeline(DefaultVocabulary()).Run(t)
	return out, err
}
