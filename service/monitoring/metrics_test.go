package monitoring

import (
	"strings"
	"testing"
	"time"

	"customer-cleanser/service/cleaning"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanedReport(t *testing.T) *cleaning.Report {
	table := cleaning.NewTable(3)
	columns := map[string][]cleaning.Value{
		"Customer":                  {"A", "B", "A"},
		"ST":                        {"WA", "Oregon", "WA"},
		"GENDER":                    {"F", nil, "F"},
		"Education":                 {"Master", "Master", "Master"},
		"Customer Lifetime Value":   {"10%", "20%", "10%"},
		"Income":                    {1.0, 2.0, 1.0},
		"Monthly Premium Auto":      {1.0, 2.0, 1.0},
		"Number of Open Complaints": {"1/0/00", "1/0/00", "1/0/00"},
		"Policy Type":               {"Personal Auto", "Personal Auto", "Personal Auto"},
		"Vehicle Class":             {"SUV", "SUV", "SUV"},
		"Total Claim Amount":        {1.0, 2.0, 1.0},
	}
	for _, name := range []string{"Customer", "ST", "GENDER", "Education", "Customer Lifetime Value", "Income",
		"Monthly Premium Auto", "Number of Open Complaints", "Policy Type", "Vehicle Class", "Total Claim Amount"} {
		require.NoError(t, table.AddColumn(name, columns[name]))
	}

	_, report, err := cleaning.NewPipeline(cleaning.DefaultVocabulary()).Run(table)
	require.NoError(t, err)
	return report
}

func TestMetrics_ObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	report := cleanedReport(t)
	m.ObserveRun("success", report, 20*time.Millisecond)
	m.ObserveRun("failed", nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("in")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicatesRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdjustmentsTotal.WithLabelValues(cleaning.StageMissingValueImputer, string(cleaning.ReasonModeImputed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdjustmentsTotal.WithLabelValues(cleaning.StageDeduplicator, string(cleaning.ReasonDuplicateRow))))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveCacheHit()
	m.ObserveCacheHit()
	m.ObservePublishFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventPublishFailures))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("success", nil, time.Second)
		m.ObserveCacheHit()
		m.ObservePublishFailure()
	})
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestRegisterCacheStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := CacheStats{Hits: 3, Misses: 1, Sets: 2}
	require.NoError(t, RegisterCacheStats(reg, func() CacheStats { return stats }))

	expected := `
# HELP customer_cleanser_result_cache_operations_total 结果缓存操作次数
# TYPE customer_cleanser_result_cache_operations_total counter
customer_cleanser_result_cache_operations_total{result="error"} 0
customer_cleanser_result_cache_operations_total{result="hit"} 3
customer_cleanser_result_cache_operations_total{result="miss"} 1
customer_cleanser_result_cache_operations_total{result="set"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "customer_cleanser_result_cache_operations_total"))

	// 抓取时读取最新统计
	stats.Errors = 5
	count, err := testutil.GatherAndCount(reg, "customer_cleanser_result_cache_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(strings.Replace(expected,
		`{result="error"} 0`, `{result="error"} 5`, 1)), "customer_cleanser_result_cache_operations_total"))
}

func TestRegisterEventsSent(t *testing.T) {
	reg := prometheus.NewRegistry()
	var sent int64
	require.NoError(t, RegisterEventsSent(reg, "kafka", func() int64 { return sent }))

	sent = 7
	expected := `
# HELP customer_cleanser_events_sent_total 已发送的运行事件数
# TYPE customer_cleanser_events_sent_total counter
customer_cleanser_events_sent_total{sink="kafka"} 7
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "customer_cleanser_events_sent_total"))

	assert.Error(t, RegisterEventsSent(reg, "kafka", func() int64 { return 0 }), "重复注册应失败")
}
