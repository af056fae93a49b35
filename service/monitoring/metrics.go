/*
 * @module service/monitoring/metrics
 * @description 清洗运行指标，通过 /metrics 暴露给 Prometheus
 * @architecture 分层架构 - 监控层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 运行结束 -> 指标累加 -> Prometheus 抓取
 * @rules 指标对象为 nil 时所有记录方法为空操作
 * @dependencies github.com/prometheus/client_golang
 * @refs service/cleaning_run/service.go, main.go
 */

package monitoring

import (
	"time"

	"customer-cleanser/service/cleaning"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "customer_cleanser"

// Metrics 清洗指标集合
type Metrics struct {
	RunsTotal            *prometheus.CounterVec
	RowsTotal            *prometheus.CounterVec
	AdjustmentsTotal     *prometheus.CounterVec
	DuplicatesRemoved    prometheus.Counter
	CacheHits            prometheus.Counter
	EventPublishFailures prometheus.Counter
	RunDuration          prometheus.Histogram
}

// NewMetrics 在给定注册表上创建指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "清洗运行次数",
		}, []string{"status"}),
		RowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "输入/输出行数",
		}, []string{"direction"}),
		AdjustmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adjustments_total",
			Help:      "按阶段和原因统计的值调整次数",
		}, []string{"stage", "reason"}),
		DuplicatesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "去重移除的行数",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "命中结果缓存的运行次数",
		}),
		EventPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "运行事件发布失败次数",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "单次清洗运行耗时",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

// ObserveRun 记录一次运行结果，失败运行的 report 可以为 nil
func (m *Metrics) ObserveRun(status string, report *cleaning.Report, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())

	if report == nil {
		return
	}
	m.RowsTotal.WithLabelValues("in").Add(float64(report.RowsIn))
	m.RowsTotal.WithLabelValues("out").Add(float64(report.RowsOut))
	m.DuplicatesRemoved.Add(float64(report.DuplicatesRemoved))
	for _, c := range report.CountByStage() {
		m.AdjustmentsTotal.WithLabelValues(c.Stage, string(c.Reason)).Add(float64(c.Count))
	}
}

// ObserveCacheHit 记录一次缓存命中
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObservePublishFailure 记录一次事件发布失败
func (m *Metrics) ObservePublishFailure() {
	if m == nil {
		return
	}
	m.EventPublishFailures.Inc()
}

// CacheStats 结果缓存的累计操作次数
type CacheStats struct {
	Hits   int64
	Misses int64
	Sets   int64
	Errors int64
}

// cacheStatsCollector 抓取时读取缓存连接器的统计
type cacheStatsCollector struct {
	desc  *prometheus.Desc
	stats func() CacheStats
}

func (c *cacheStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *cacheStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	for result, v := range map[string]int64{"hit": s.Hits, "miss": s.Misses, "set": s.Sets, "error": s.Errors} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(v), result)
	}
}

// RegisterCacheStats 暴露结果缓存的命中、未命中、写入、错误次数
func RegisterCacheStats(reg prometheus.Registerer, stats func() CacheStats) error {
	return reg.Register(&cacheStatsCollector{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "result_cache", "operations_total"),
			"结果缓存操作次数",
			[]string{"result"}, nil,
		),
		stats: stats,
	})
}

// RegisterEventsSent 暴露事件发布器已发送的消息数
func RegisterEventsSent(reg prometheus.Registerer, sink string, sent func() int64) error {
	return reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "events_sent_total",
		Help:        "已发送的运行事件数",
		ConstLabels: prometheus.Labels{"sink": sink},
	}, func() float64 {
		return float64(sent())
	}))
}
