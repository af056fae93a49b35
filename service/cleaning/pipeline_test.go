/*
 * @module service/cleaning/pipeline_test
 * @description 清洗流水线单元测试
 * @architecture 测试层 - 纯函数测试，无外部依赖
 * @documentReference .specify/memory/test_plan.md
 * @stateFlow 构造原始表 -> 执行流水线 -> 验证列名、取值、审计记录
 * @rules 覆盖每个阶段的不变量以及降级路径
 * @dependencies testing, testify
 * @refs pipeline.go
 */

package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rawColumns = []string{
	"Customer", "ST", "GENDER", "Education", "Customer Lifetime Value", "Income",
	"Monthly Premium Auto", "Number of Open Complaints", "Policy Type", "Vehicle Class", "Total Claim Amount",
}

func buildTable(t *testing.T, columns []string, rows [][]Value) *Table {
	t.Helper()
	table := NewTable(len(rows))
	for j, name := range columns {
		values := make([]Value, len(rows))
		for i, row := range rows {
			values[i] = row[j]
		}
		require.NoError(t, table.AddColumn(name, values))
	}
	return table
}

func customerRows() [][]Value {
	return [][]Value{
		{"AA1", "Washington", "M", "Master", "10%", 1000.0, 60.0, "1/0/00", "Personal Auto", "Four-Door Car", 300.5},
		{"BB2", "Cali", "Femal", "Bachelors", "20%", nil, 70.0, "1/2/00", "Corporate Auto", "Sports Car", 400.9},
		{"CC3", "AZ", "female", "Bachelor", nil, 3000.0, 80.0, nil, "Personal Auto", "Luxury SUV", 500.0},
		{"DD4", nil, "X", "High School or Below", "30%", 2000.0, nil, 2.5, nil, "SUV", nil},
		{"AA1", "Washington", "M", "Master", "10%", 1000.0, 60.0, "1/0/00", "Personal Auto", "Four-Door Car", 300.5},
	}
}

func columnValues(t *testing.T, table *Table, name string) []Value {
	t.Helper()
	c, ok := table.Column(name)
	require.True(t, ok, "列 %s 应该存在", name)
	return c.Values
}

// TestNormalizeColumnName 测试列名标准化
func TestNormalizeColumnName(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "州缩写", input: "ST", expected: "state"},
		{name: "多个单词", input: "Customer Lifetime Value", expected: "customer_lifetime_value"},
		{name: "全大写不含ST", input: "GENDER", expected: "gender"},
		{name: "小写st不替换", input: "Customer", expected: "customer"},
		{name: "先替换后转小写", input: "STATE", expected: "stateate"},
		{name: "已标准化", input: "number_of_open_complaints", expected: "number_of_open_complaints"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeColumnName(tc.input))
		})
	}
}

// TestColumnNormalizer_NoSpaceOrST 标准化后的列名不含空格和 "ST"
func TestColumnNormalizer_NoSpaceOrST(t *testing.T) {
	table := buildTable(t, rawColumns, customerRows())
	report := newReport()

	require.NoError(t, NewColumnNormalizer().Apply(table, report))

	for _, name := range table.Columns() {
		assert.NotContains(t, name, " ")
		assert.NotContains(t, name, "ST")
	}
	assert.Equal(t, "state", report.Renames["ST"])
	assert.Equal(t, "gender", report.Renames["GENDER"])
}

// TestColumnNormalizer_NameCollision 标准化后列名冲突时报错且表不变
func TestColumnNormalizer_NameCollision(t *testing.T) {
	testCases := []struct {
		name    string
		columns []string
	}{
		{name: "ST与state", columns: []string{"ST", "state"}},
		{name: "大小写不同", columns: []string{"Income", "INCOME"}},
		{name: "空格与下划线", columns: []string{"Policy Type", "policy_type"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table := buildTable(t, tc.columns, [][]Value{{"a", "b"}})
			report := newReport()

			err := NewColumnNormalizer().Apply(table, report)
			assert.ErrorIs(t, err, ErrDuplicateName)
			assert.Equal(t, tc.columns, table.Columns())
			assert.Empty(t, report.Renames)
		})
	}
}

// TestValueCanonicalizer_Gender 性别为封闭映射
func TestValueCanonicalizer_Gender(t *testing.T) {
	table := buildTable(t, rawColumns, [][]Value{
		{"A", "AZ", "Femal", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
		{"B", "AZ", "M", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
		{"C", "AZ", "female", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
		{"D", "AZ", "X", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
	})
	report := newReport()
	require.NoError(t, NewColumnNormalizer().Apply(table, report))
	require.NoError(t, NewValueCanonicalizer(DefaultVocabulary()).Apply(table, report))

	assert.Equal(t, []Value{"F", "M", "F", nil}, columnValues(t, table, ColGender))

	require.Len(t, report.Adjustments, 1)
	adj := report.Adjustments[0]
	assert.Equal(t, ColGender, adj.Column)
	assert.Equal(t, 3, adj.Row)
	assert.Equal(t, "X", adj.Original)
	assert.Equal(t, ReasonUnmappedCategory, adj.Reason)
}

// TestValueCanonicalizer_State 州名映射到全称
func TestValueCanonicalizer_State(t *testing.T) {
	table := buildTable(t, rawColumns, [][]Value{
		{"A", "Cali", "F", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
		{"B", "AZ", "F", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
		{"C", "Nevada", "F", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
		{"D", "Texas", "F", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
	})
	report := newReport()
	require.NoError(t, NewColumnNormalizer().Apply(table, report))
	require.NoError(t, NewValueCanonicalizer(DefaultVocabulary()).Apply(table, report))

	assert.Equal(t, []Value{"California", "Arizona", "Nevada", nil}, columnValues(t, table, ColState))
}

// TestValueCanonicalizer_OpenAndTextColumns 车辆类别为开放替换，学历为子串替换
func TestValueCanonicalizer_OpenAndTextColumns(t *testing.T) {
	table := buildTable(t, rawColumns, [][]Value{
		{"A", "AZ", "F", "Bachelors", "12.5%", 1.0, 1.0, 0.0, "P", "Sports Car", 1.0},
		{"B", "AZ", "F", "Bachelor", "abc", 1.0, 1.0, 0.0, "P", "Two-Door Car", 1.0},
		{"C", "AZ", "F", 42, 7.0, 1.0, 1.0, 0.0, "P", nil, 1.0},
	})
	report := newReport()
	require.NoError(t, NewColumnNormalizer().Apply(table, report))
	require.NoError(t, NewValueCanonicalizer(DefaultVocabulary()).Apply(table, report))

	assert.Equal(t, []Value{"Bachelor", "Bachelor", nil}, columnValues(t, table, ColEducation))
	assert.Equal(t, []Value{"Luxury", "Two-Door Car", nil}, columnValues(t, table, ColVehicleClass))
	assert.Equal(t, []Value{12.5, nil, 7.0}, columnValues(t, table, ColCustomerLifetimeValue))

	counts := report.CountByReason()
	assert.Equal(t, 1, counts[ReasonNonText])
	assert.Equal(t, 1, counts[ReasonUnparsableNumber])
}

// TestComplaintCount 投诉次数解析规则
func TestComplaintCount(t *testing.T) {
	testCases := []struct {
		name     string
		input    Value
		expected int
		reason   Reason
	}{
		{name: "斜杠格式取第二段", input: "1/0/02", expected: 0},
		{name: "斜杠格式非零", input: "1/5/00", expected: 5},
		{name: "斜杠后为空", input: "1/", expected: 0, reason: ReasonUnparsableCount},
		{name: "斜杠后非整数", input: "1/x/00", expected: 0, reason: ReasonUnparsableCount},
		{name: "数字文本", input: "3.0", expected: 3},
		{name: "无法解析的文本", input: "many", expected: 0, reason: ReasonUnparsableCount},
		{name: "非整数向上取整", input: 2.5, expected: 3, reason: ReasonRoundedUp},
		{name: "整数浮点", input: 4.0, expected: 4},
		{name: "整数", input: 2, expected: 2},
		{name: "缺失", input: nil, expected: 0, reason: ReasonMissingCount},
		{name: "布尔值", input: true, expected: 0, reason: ReasonUnparsableCount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, reason := complaintCount(tc.input)
			assert.Equal(t, tc.expected, n)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

// TestTypeCorrector_Complaints 投诉列整体转换
func TestTypeCorrector_Complaints(t *testing.T) {
	table := buildTable(t, rawColumns, [][]Value{
		{"A", "AZ", "F", "Master", "1", 1.0, 1.0, "1/0/02", "P", "SUV", 1.0},
		{"B", "AZ", "F", "Master", "1", 1.0, 1.0, "3.0", "P", "SUV", 1.0},
		{"C", "AZ", "F", "Master", "1", 1.0, 1.0, 2.5, "P", "SUV", 1.0},
		{"D", "AZ", "F", "Master", "1", 1.0, 1.0, nil, "P", "SUV", 1.0},
		{"E", "AZ", "F", "Master", "1", 1.0, 1.0, "1/-2/00", "P", "SUV", 1.0},
	})
	report := newReport()
	require.NoError(t, NewColumnNormalizer().Apply(table, report))
	require.NoError(t, NewTypeCorrector().Apply(table, report))

	assert.Equal(t, []Value{0, 3, 3, 0, 0}, columnValues(t, table, ColNumberOfOpenComplaints))
	assert.Equal(t, 1, report.CountByReason()[ReasonNegativeCount])
}

// TestTypeCorrector_MedianImputation 中位数在转整数之前计算
func TestTypeCorrector_MedianImputation(t *testing.T) {
	table := buildTable(t, rawColumns, [][]Value{
		{"A", "AZ", "F", "Master", "10%", 1.0, 1.0, 0.0, "P", "SUV", 1.9},
		{"B", "AZ", "F", "Master", "20%", 1.0, 1.0, 0.0, "P", "SUV", 2.9},
		{"C", "AZ", "F", "Master", nil, 1.0, 1.0, 0.0, "P", "SUV", nil},
	})
	report := newReport()
	require.NoError(t, NewColumnNormalizer().Apply(table, report))
	require.NoError(t, NewValueCanonicalizer(DefaultVocabulary()).Apply(table, report))
	require.NoError(t, NewTypeCorrector().Apply(table, report))

	assert.Equal(t, []Value{10, 20, 15}, columnValues(t, table, ColCustomerLifetimeValue))
	assert.InDelta(t, 15.0, report.Medians[ColCustomerLifetimeValue], 1e-9)

	// (1.9+2.9)/2 = 2.4，截断为 2；已有值截断为 1、2
	assert.Equal(t, []Value{1, 2, 2}, columnValues(t, table, ColTotalClaimAmount))
	for _, name := range NumericColumns {
		for _, v := range columnValues(t, table, name) {
			assert.IsType(t, 0, v)
		}
	}
}

// TestTypeCorrector_EmptyNumericColumn 全部缺失的数值列返回错误
func TestTypeCorrector_EmptyNumericColumn(t *testing.T) {
	table := buildTable(t, rawColumns, [][]Value{
		{"A", "AZ", "F", "Master", "1", nil, 1.0, 0.0, "P", "SUV", 1.0},
		{"B", "AZ", "F", "Master", "1", "n/a", 1.0, 0.0, "P", "SUV", 1.0},
	})
	report := newReport()
	require.NoError(t, NewColumnNormalizer().Apply(table, report))

	err := NewTypeCorrector().Apply(table, report)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyColumn)
	assert.Contains(t, err.Error(), ColIncome)
}

// TestMissingValueImputer_Mode 众数填充，并列时取排序最小者
func TestMissingValueImputer_Mode(t *testing.T) {
	table := buildTable(t, []string{"customer", "state", "gender", "education", "policy_type", "vehicle_class"}, [][]Value{
		{"A", "Oregon", "M", "Master", "P", "SUV"},
		{"B", "Oregon", "F", nil, "P", "SUV"},
		{"C", nil, nil, "Master", nil, nil},
		{nil, "Nevada", "M", "Bachelor", "C", "SUV"},
		{"E", "Nevada", "F", "Bachelor", "C", "Luxury"},
	})
	report := newReport()
	require.NoError(t, NewMissingValueImputer().Apply(table, report))

	for _, name := range CategoricalColumns {
		for _, v := range columnValues(t, table, name) {
			assert.NotNil(t, v, "列 %s 不应再有缺失值", name)
		}
	}
	assert.Equal(t, "Nevada", columnValues(t, table, ColState)[2])
	assert.Equal(t, "F", columnValues(t, table, ColGender)[2])
	assert.Equal(t, "Bachelor", columnValues(t, table, ColEducation)[1])
	assert.Equal(t, "C", columnValues(t, table, ColPolicyType)[2])
	assert.Equal(t, "SUV", columnValues(t, table, ColVehicleClass)[2])
	assert.Equal(t, "A", columnValues(t, table, ColCustomer)[3])
	assert.Equal(t, 6, report.CountByReason()[ReasonModeImputed])
}

// TestMissingValueImputer_EmptyColumn 没有可用众数时返回错误
func TestMissingValueImputer_EmptyColumn(t *testing.T) {
	table := buildTable(t, []string{"customer"}, [][]Value{{nil}, {nil}})

	err := NewMissingValueImputer(ColCustomer).Apply(table, newReport())
	assert.ErrorIs(t, err, ErrEmptyColumn)
}

// TestDeduplicator 保留首次出现的行并重置索引
func TestDeduplicator(t *testing.T) {
	table := buildTable(t, []string{"a", "b"}, [][]Value{
		{"x", 1},
		{"y", 2},
		{"x", 1},
		{"x", "1"},
		{"y", 2.0},
		{"z", nil},
		{"z", nil},
	})
	table.Index = []int{10, 11, 12, 13, 14, 15, 16}
	report := newReport()

	require.NoError(t, NewDeduplicator().Apply(table, report))

	assert.Equal(t, []Value{"x", "y", "x", "z"}, columnValues(t, table, "a"))
	assert.Equal(t, []Value{1, 2, "1", nil}, columnValues(t, table, "b"))
	assert.Equal(t, []int{0, 1, 2, 3}, table.Index)
	assert.Equal(t, 3, report.DuplicatesRemoved)

	var dupRows []int
	for _, adj := range report.Adjustments {
		dupRows = append(dupRows, adj.Row)
	}
	assert.Equal(t, []int{12, 14, 16}, dupRows)

	t.Run("含分隔字节的单元格不会被误判为重复", func(t *testing.T) {
		table := buildTable(t, []string{"a", "b"}, [][]Value{
			{"x\x1fs:y", "z"},
			{"x", "y\x1fs:z"},
			{"x:1", "2"},
			{"x", "1:2"},
		})
		report := newReport()

		require.NoError(t, NewDeduplicator().Apply(table, report))

		assert.Equal(t, 4, table.NumRows())
		assert.Equal(t, 0, report.DuplicatesRemoved)
		assert.Empty(t, report.Adjustments)
	})
}

// TestPipeline_Run 端到端清洗
func TestPipeline_Run(t *testing.T) {
	table := buildTable(t, rawColumns, customerRows())

	out, report, err := NewPipeline(DefaultVocabulary()).Run(table)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"customer", "state", "gender", "education", "customer_lifetime_value", "income",
		"monthly_premium_auto", "number_of_open_complaints", "policy_type", "vehicle_class", "total_claim_amount",
	}, out.Columns())

	assert.Equal(t, []Value{"AA1", "BB2", "CC3", "DD4"}, columnValues(t, out, ColCustomer))
	assert.Equal(t, []Value{"Washington", "California", "Arizona", "Washington"}, columnValues(t, out, ColState))
	assert.Equal(t, []Value{"M", "F", "F", "F"}, columnValues(t, out, ColGender))
	assert.Equal(t, []Value{"Master", "Bachelor", "Bachelor", "High School or Below"}, columnValues(t, out, ColEducation))
	assert.Equal(t, []Value{10, 20, 15, 30}, columnValues(t, out, ColCustomerLifetimeValue))
	assert.Equal(t, []Value{1000, 1500, 3000, 2000}, columnValues(t, out, ColIncome))
	assert.Equal(t, []Value{60, 70, 80, 65}, columnValues(t, out, ColMonthlyPremiumAuto))
	assert.Equal(t, []Value{0, 2, 0, 3}, columnValues(t, out, ColNumberOfOpenComplaints))
	assert.Equal(t, []Value{"Personal Auto", "Corporate Auto", "Personal Auto", "Personal Auto"}, columnValues(t, out, ColPolicyType))
	assert.Equal(t, []Value{"Four-Door Car", "Luxury", "Luxury", "SUV"}, columnValues(t, out, ColVehicleClass))
	assert.Equal(t, []Value{300, 400, 500, 350}, columnValues(t, out, ColTotalClaimAmount))
	assert.Equal(t, []int{0, 1, 2, 3}, out.Index)

	assert.Equal(t, 5, report.RowsIn)
	assert.Equal(t, 4, report.RowsOut)
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, "F", report.Modes[ColGender])

	counts := report.CountByReason()
	assert.Equal(t, 1, counts[ReasonUnmappedCategory])
	assert.Equal(t, 4, counts[ReasonMedianImputed])
	assert.Equal(t, 3, counts[ReasonModeImputed])
	assert.Equal(t, 1, counts[ReasonMissingCount])
	assert.Equal(t, 1, counts[ReasonRoundedUp])
	assert.Equal(t, 1, counts[ReasonDuplicateRow])
}

// TestPipeline_NameAndCategoryStagesIdempotent 列名与分类阶段重复执行结果不变
func TestPipeline_NameAndCategoryStagesIdempotent(t *testing.T) {
	table := buildTable(t, rawColumns, customerRows())
	normalizer := NewColumnNormalizer()
	canonicalizer := NewValueCanonicalizer(DefaultVocabulary())

	require.NoError(t, normalizer.Apply(table, newReport()))
	require.NoError(t, canonicalizer.Apply(table, newReport()))
	once := table.Clone()

	require.NoError(t, normalizer.Apply(table, newReport()))
	require.NoError(t, canonicalizer.Apply(table, newReport()))

	assert.Equal(t, once.Columns(), table.Columns())
	for _, name := range table.Columns() {
		assert.Equal(t, columnValues(t, once, name), columnValues(t, table, name), "列 %s", name)
	}
}

// TestPipeline_CleanedOutputIsFixedPoint 已清洗的表再次清洗不变。
// 首次运行的中位数/众数依赖原始缺失分布，因此只有输出才是不动点，原始输入跑两次的报告并不相同。
func TestPipeline_CleanedOutputIsFixedPoint(t *testing.T) {
	out, err := Clean(buildTable(t, rawColumns, customerRows()))
	require.NoError(t, err)
	snapshot := out.Clone()

	again, report, err := NewPipeline(DefaultVocabulary()).Run(out)
	require.NoError(t, err)

	for _, name := range snapshot.Columns() {
		assert.Equal(t, columnValues(t, snapshot, name), columnValues(t, again, name), "列 %s", name)
	}
	assert.Empty(t, report.Adjustments)
}

// TestPipeline_MissingColumn 缺少必需列时返回错误
func TestPipeline_MissingColumn(t *testing.T) {
	table := buildTable(t, []string{"Customer", "ST"}, [][]Value{{"A", "AZ"}})

	_, _, err := NewPipeline(DefaultVocabulary()).Run(table)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

// TestPipeline_CustomVocabulary 映射表作为配置传入
func TestPipeline_CustomVocabulary(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.State["TX"] = "Texas"
	vocab.Gender["Woman"] = "F"

	table := buildTable(t, rawColumns, [][]Value{
		{"A", "TX", "Woman", "Master", "1", 1.0, 1.0, 0.0, "P", "SUV", 1.0},
	})
	out, _, err := NewPipeline(vocab).Run(table)
	require.NoError(t, err)

	assert.Equal(t, []Value{"Texas"}, columnValues(t, out, ColState))
	assert.Equal(t, []Value{"F"}, columnValues(t, out, ColGender))
}

// TestTable_AddColumn 列长度校验
func TestTable_AddColumn(t *testing.T) {
	table := NewTable(2)
	require.NoError(t, table.AddColumn("a", []Value{1, 2}))

	assert.ErrorIs(t, table.AddColumn("b", []Value{1}), ErrColumnLength)
	assert.ErrorIs(t, table.AddColumn("a", []Value{1, 2}), ErrDuplicateName)
}
