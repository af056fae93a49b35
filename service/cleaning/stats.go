/*
 * @module service/cleaning/stats
 * @description 中位数、众数与带类型的值键
 * @architecture 算法层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 无状态函数
 * @rules 众数并列时取最小值，数值排在文本之前
 * @dependencies sort
 * @refs imputer.go, type_corrector.go, deduplicator.go
 */

package cleaning

import (
	"fmt"
	"sort"
)

// median 中位数，偶数个时取中间两数的平均值
func median(x []float64) (float64, bool) {
	n := len(x)
	if n == 0 {
		return 0, false
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5, true
	}
	return cp[mid], true
}

// mode 出现次数最多的非缺失值；并列时取排序最小者（数值在前，文本按字典序）
func mode(values []Value) (Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]Value)
	for _, v := range values {
		if v == nil {
			continue
		}
		k := valueKey(v)
		if _, ok := first[k]; !ok {
			first[k] = v
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return nil, false
	}

	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	var candidates []Value
	for k, n := range counts {
		if n == maxCount {
			candidates = append(candidates, first[k])
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return lessValue(candidates[i], candidates[j])
	})
	return candidates[0], true
}

// lessValue 混合类型的稳定排序：数值 < 文本 < 其他
func lessValue(a, b Value) bool {
	af, aNum := toNumberStrict(a)
	bf, bNum := toNumberStrict(b)
	switch {
	case aNum && bNum:
		return af < bf
	case aNum != bNum:
		return aNum
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	switch {
	case aStr && bStr:
		return as < bs
	case aStr != bStr:
		return aStr
	}
	return valueKey(a) < valueKey(b)
}

func toNumberStrict(v Value) (float64, bool) {
	if !isNumeric(v) {
		return 0, false
	}
	return toNumber(v)
}

// valueKey 带类型的值键，文本 "1" 与数值 1 不相等
func valueKey(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return "s:" + x
	}
	if f, ok := toNumberStrict(v); ok {
		return fmt.Sprintf("n:%v", f)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
