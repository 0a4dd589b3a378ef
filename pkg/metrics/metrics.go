// Package metrics 提供 Prometheus 指标集合与 /metrics handler
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/spreadhub/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数（method, route, status）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时（method, route）
	HTTPRequestDuration *prometheus.HistogramVec

	// 价差写操作计数（operation, result）
	SpreadWritesTotal *prometheus.CounterVec
	// 列表查询耗时
	SpreadListDuration prometheus.Histogram
	// 变更事件发布计数（type, result）
	SpreadEventsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New 创建指标实例
func New(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SpreadWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spread",
			Name:      "writes_total",
			Help:      "Spread write operations by operation and result",
		}, []string{"operation", "result"}),
		SpreadListDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "spread",
			Name:      "list_duration_seconds",
			Help:      "Spread list query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		SpreadEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spread",
			Name:      "events_total",
			Help:      "Spread change events published by type and result",
		}, []string{"type", "result"}),
	}
}

// Register 注册所有指标；reg 为 nil 时使用新的独立 Registry
func (m *Metrics) Register(reg *prometheus.Registry) error {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SpreadWritesTotal,
		m.SpreadListDuration,
		m.SpreadEventsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	m.gatherer = reg
	return nil
}

// Handler 返回 /metrics handler
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordSpreadWrite 记录写操作结果
func (m *Metrics) RecordSpreadWrite(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SpreadWritesTotal.WithLabelValues(operation, result).Inc()
}

// ObserveSpreadList 记录列表查询耗时
func (m *Metrics) ObserveSpreadList(d time.Duration) {
	m.SpreadListDuration.Observe(d.Seconds())
}

// RecordSpreadEvent 记录事件发布结果
func (m *Metrics) RecordSpreadEvent(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SpreadEventsTotal.WithLabelValues(eventType, result).Inc()
}
