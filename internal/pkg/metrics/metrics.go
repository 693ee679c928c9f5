// Package metrics 提供 Prometheus 指标
// 所有方法在 nil 接收者上都是空操作，未启用指标时直接传 nil
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gopan"

type Metrics struct {
	registry         *prometheus.Registry
	uploads          *prometheus.CounterVec
	uploadBytes      prometheus.Counter
	entriesDeleted   prometheus.Counter
	shareResolutions *prometheus.CounterVec
	janitorRemoved   *prometheus.CounterVec
}

// New 创建独立 registry 并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads by result.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes of successfully stored uploads.",
		}),
		entriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Entries removed by recursive deletion.",
		}),
		shareResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_resolutions_total",
			Help:      "Share link resolutions by outcome.",
		}, []string{"outcome"}),
		janitorRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_removed_total",
			Help:      "Items removed by the janitor by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.uploads,
		m.uploadBytes,
		m.entriesDeleted,
		m.shareResolutions,
		m.janitorRemoved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveUpload(result string, bytes int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) ObserveDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entriesDeleted.Add(float64(n))
}

func (m *Metrics) ObserveShareResolution(outcome string) {
	if m == nil {
		return
	}
	m.shareResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveJanitor(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.janitorRemoved.WithLabelValues(kind).Add(float64(n))
}
