/*
 * @module service/cleaning/value_canonicalizer
 * @description 分类取值标准化：性别、州、学历、车辆类别；客户终身价值去除百分号后转数值
 * @architecture 管道模式 - 清洗阶段
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 列名标准化之后 -> 取值标准化 -> 类型修正
 * @rules 性别与州为封闭映射，车辆类别为开放替换；无法解析的值记为缺失并留下审计记录
 * @dependencies strings
 * @refs vocabulary.go, report.go
 */

package cleaning

import "strings"

// ValueCanonicalizer 取值标准化
type ValueCanonicalizer struct {
	vocab Vocabulary
}

// NewValueCanonicalizer 创建取值标准化阶段
func NewValueCanonicalizer(vocab Vocabulary) *ValueCanonicalizer {
	return &ValueCanonicalizer{vocab: vocab}
}

// Name 阶段名称
func (s *ValueCanonicalizer) Name() string {
	return StageValueCanonicalizer
}

// Apply 依次处理各列
func (s *ValueCanonicalizer) Apply(t *Table, report *Report) error {
	steps := []struct {
		column string
		fn     func(t *Table, c *Column, report *Report)
	}{
		{ColGender, s.closedLookup(s.vocab.Gender)},
		{ColState, s.closedLookup(s.vocab.State)},
		{ColEducation, s.replaceEducation},
		{ColCustomerLifetimeValue, s.parseLifetimeValue},
		{ColVehicleClass, s.substituteVehicleClass},
	}

	for _, step := range steps {
		c, err := t.MustColumn(step.column)
		if err != nil {
			return err
		}
		step.fn(t, c, report)
	}
	return nil
}

// closedLookup 查表映射，未命中的值（包括非文本）记为缺失
func (s *ValueCanonicalizer) closedLookup(mapping map[string]string) func(t *Table, c *Column, report *Report) {
	return func(t *Table, c *Column, report *Report) {
		for i, v := range c.Values {
			if v == nil {
				continue
			}
			if key, ok := v.(string); ok {
				if mapped, ok := mapping[key]; ok {
					c.Values[i] = mapped
					continue
				}
			}
			c.Values[i] = nil
			report.record(StageValueCanonicalizer, c.Name, t.Index[i], v, nil, ReasonUnmappedCategory)
		}
	}
}

func (s *ValueCanonicalizer) replaceEducation(t *Table, c *Column, report *Report) {
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		text, ok := v.(string)
		if !ok {
			c.Values[i] = nil
			report.record(StageValueCanonicalizer, c.Name, t.Index[i], v, nil, ReasonNonText)
			continue
		}
		for _, r := range s.vocab.Education {
			text = strings.ReplaceAll(text, r.From, r.To)
		}
		c.Values[i] = text
	}
}

// parseLifetimeValue 转为文本、去掉 "%"、再解析为数值
func (s *ValueCanonicalizer) parseLifetimeValue(t *Table, c *Column, report *Report) {
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		text, ok := toText(v)
		if ok {
			if f, ok := toNumber(strings.ReplaceAll(text, "%", "")); ok {
				c.Values[i] = f
				continue
			}
		}
		c.Values[i] = nil
		report.record(StageValueCanonicalizer, c.Name, t.Index[i], v, nil, ReasonUnparsableNumber)
	}
}

// substituteVehicleClass 命中映射则替换，其余原样保留
func (s *ValueCanonicalizer) substituteVehicleClass(t *Table, c *Column, report *Report) {
	for i, v := range c.Values {
		key, ok := v.(string)
		if !ok {
			continue
		}
		if mapped, ok := s.vocab.VehicleClass[key]; ok {
			c.Values[i] = mapped
		}
	}
}
