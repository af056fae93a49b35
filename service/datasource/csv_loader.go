/*
 * @module service/datasource/csv_loader
 * @description 表格数据加载与输出：CSV（支持多种字符集）与 JSON 记录转换为清洗用内存表
 * @architecture 适配器模式 - 外部数据格式与 cleaning.Table 之间的转换
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 原始字节 -> 字符集解码 -> CSV 解析 -> 按列类型推断 -> cleaning.Table
 * @rules 缺失标记统一转为 nil；整列可解析为数值时才作为数值列，否则保持文本
 * @dependencies encoding/csv, golang.org/x/text/encoding, github.com/spf13/cast
 * @refs service/cleaning/table.go
 */

package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"customer-cleanser/service/cleaning"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrUnsupportedEncoding = errors.New("不支持的字符集")
	ErrEmptyInput          = errors.New("输入数据为空")
)

// DefaultMissingTokens 视为缺失值的单元格文本
var DefaultMissingTokens = []string{
	"", "NA", "N/A", "n/a", "#N/A", "NaN", "nan", "-NaN", "NULL", "null", "None", "<NA>",
}

// LoadOptions CSV 加载选项
type LoadOptions struct {
	Encoding      string   // utf-8（默认）、gbk、gb18030、latin1、windows-1252
	Delimiter     rune     // 默认 ','
	MissingTokens []string // 为空时使用 DefaultMissingTokens
}

// DefaultLoadOptions 默认加载选项
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Encoding:      "utf-8",
		Delimiter:     ',',
		MissingTokens: DefaultMissingTokens,
	}
}

// lookupEncoding 根据名称返回字符集，utf-8 会去掉 BOM
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "gbk", "gb2312":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
	}
}

// LoadCSV 读取 CSV，首行为列名
func LoadCSV(r io.Reader, opts LoadOptions) (*cleaning.Table, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, enc.NewDecoder()))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("读取CSV表头失败: %w", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取CSV第 %d 行失败: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}

	tokens := opts.MissingTokens
	if len(tokens) == 0 {
		tokens = DefaultMissingTokens
	}
	missing := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		missing[tok] = struct{}{}
	}

	table := cleaning.NewTable(len(records))
	for j, name := range header {
		cells := make([]string, len(records))
		for i, rec := range records {
			cells[i] = rec[j]
		}
		if err := table.AddColumn(name, inferColumn(cells, missing)); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// inferColumn 整列非缺失单元格都能解析为有限数值时输出 float64，否则保留文本
func inferColumn(cells []string, missing map[string]struct{}) []cleaning.Value {
	values := make([]cleaning.Value, len(cells))
	numbers := make([]float64, len(cells))
	numeric := true

	for i, cell := range cells {
		if _, ok := missing[strings.TrimSpace(cell)]; ok {
			values[i] = nil
			continue
		}
		values[i] = cell
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil || math.IsInf(f, 0) {
			numeric = false
			continue
		}
		numbers[i] = f
	}

	if numeric {
		for i, v := range values {
			if v != nil {
				values[i] = numbers[i]
			}
		}
	}
	return values
}

// LoadRecords 将 JSON 记录转换为表。JSON 对象的键没有顺序，列顺序必须由 columns 给出
func LoadRecords(records []map[string]interface{}, columns []string) (*cleaning.Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: 未指定列顺序", ErrEmptyInput)
	}

	table := cleaning.NewTable(len(records))
	for _, name := range columns {
		values := make([]cleaning.Value, len(records))
		for i, rec := range records {
			values[i] = normalizeJSONValue(rec[name])
		}
		if err := table.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// normalizeJSONValue 仅保留标量，嵌套结构转为文本
func normalizeJSONValue(v interface{}) cleaning.Value {
	switch x := v.(type) {
	case nil, string, bool, float64, int, int64:
		return x
	case map[string]interface{}, []interface{}:
		return fmt.Sprintf("%v", x)
	default:
		return cast.ToString(x)
	}
}

// WriteCSV 输出表，缺失值写为空单元格
func WriteCSV(w io.Writer, t *cleaning.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns()); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = FormatValue(v)
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("写入CSV第 %d 行失败: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// FormatValue 单元格文本表示
func FormatValue(v cleaning.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return cast.ToString(x)
	}
}
