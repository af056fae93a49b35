/*
 * @module service/cleaning/coerce
 * @description 单元格取值的数值、文本、投诉次数转换
 * @architecture 工具层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 无状态函数
 * @rules 缺失、无法解析、NaN、Inf 一律视为无效
 * @dependencies github.com/spf13/cast
 * @refs value_canonicalizer.go, type_corrector.go
 */

package cleaning

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// toNumber 将值解析为有限浮点数；缺失、无法解析、NaN、Inf 均返回 false
func toNumber(v Value) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		parsed, err := cast.ToFloat64E(x)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isNumeric 值本身是否为数值类型（不含文本）
func isNumeric(v Value) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// toText 把值转换为文本，nil 视为缺失
func toText(v Value) (string, bool) {
	if v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// parseCount 按 Python int() 的宽松程度解析整数段：允许首尾空白
func parseCount(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// countFromNumber 整数直接取整，非整数向上取整
func countFromNumber(f float64) (int, bool) {
	if f == math.Floor(f) {
		return int(f), false
	}
	return int(math.Ceil(f)), true
}
