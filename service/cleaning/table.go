/*
 * @module service/cleaning/table
 * @description 内存表结构：按列存储，行按位置对齐，附带行索引
 * @architecture 数据模型层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 加载器构建 -> 清洗阶段逐个变换 -> 返回调用方
 * @rules nil 表示缺失值；所有列长度必须与行索引一致
 * @dependencies fmt
 * @refs pipeline.go, service/datasource/csv_loader.go
 */

package cleaning

import (
	"errors"
	"fmt"
)

// Value 单元格值，nil 表示缺失
type Value = any

var (
	ErrColumnNotFound = errors.New("列不存在")
	ErrColumnLength   = errors.New("列长度与行数不一致")
	ErrDuplicateName  = errors.New("列名重复")
	ErrEmptyColumn    = errors.New("列中没有可用于填充的非缺失值")
)

// Column 表中的一列
type Column struct {
	Name   string
	Values []Value
}

// Table 有序列集合
type Table struct {
	columns []*Column
	Index   []int
}

// NewTable 创建指定行数的空表，行索引为 0..rows-1
func NewTable(rows int) *Table {
	index := make([]int, rows)
	for i := range index {
		index[i] = i
	}
	return &Table{Index: index}
}

// AddColumn 追加一列
func (t *Table) AddColumn(name string, values []Value) error {
	if len(values) != len(t.Index) {
		return fmt.Errorf("%w: %s 有 %d 个值, 表有 %d 行", ErrColumnLength, name, len(values), len(t.Index))
	}
	if _, ok := t.Column(name); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	t.columns = append(t.columns, &Column{Name: name, Values: values})
	return nil
}

// Column 按名称查找列
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// MustColumn 查找列，不存在时返回带列名的错误
func (t *Table) MustColumn(name string) (*Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return c, nil
}

// Columns 返回按顺序排列的列名
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// NumRows 行数
func (t *Table) NumRows() int {
	return len(t.Index)
}

// Row 返回第 i 行（按列顺序）
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Validate 检查所有列长度与行索引一致
func (t *Table) Validate() error {
	for _, c := range t.columns {
		if len(c.Values) != len(t.Index) {
			return fmt.Errorf("%w: %s 有 %d 个值, 表有 %d 行", ErrColumnLength, c.Name, len(c.Values), len(t.Index))
		}
	}
	return nil
}

// Clone 深拷贝表结构（值本身为不可变标量，按值复制）
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		Index:   append([]int(nil), t.Index...),
	}
	for i, c := range t.columns {
		out.columns[i] = &Column{Name: c.Name, Values: append([]Value(nil), c.Values...)}
	}
	return out
}

// keepRows 仅保留指定位置的行，并重置索引
func (t *Table) keepRows(positions []int) {
	for _, c := range t.columns {
		values := make([]Value, len(positions))
		for i, p := range positions {
			values[i] = c.Values[p]
		}
		c.Values = values
	}
	t.Index = make([]int, len(positions))
	for i := range t.Index {
		t.Index[i] = i
	}
}
