// Package metrics 定义伙伴服务的业务指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 业务指标集合
type Metrics struct {
	SyncRequests    *prometheus.CounterVec
	XPAwarded       prometheus.Histogram
	Classifications *prometheus.CounterVec
	ClassifyCache   *prometheus.CounterVec
	PipelineStages  *prometheus.CounterVec
	UploadDuration  prometheus.Histogram
	InactivitySweep *prometheus.CounterVec
}

// New 创建并注册指标
func New(namespace string, registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		SyncRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_requests_total",
			Help:      "Experience sync requests by outcome",
		}, []string{"outcome"}),
		XPAwarded: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "xp_awarded",
			Help:      "XP delta awarded per sync",
			Buckets:   []float64{0, 5, 10, 20, 40, 60, 80, 100},
		}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Transaction classifications by action",
		}, []string{"action"}),
		ClassifyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_cache_total",
			Help:      "Classification cache lookups by result",
		}, []string{"result"}),
		PipelineStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_transitions_total",
			Help:      "Update pipeline stage transitions",
		}, []string{"stage"}),
		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metadata_upload_duration_seconds",
			Help:      "Metadata upload duration",
			Buckets:   prometheus.DefBuckets,
		}),
		InactivitySweep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inactivity_sweep_total",
			Help:      "Inactive companion sweep results",
		}, []string{"result"}),
	}

	if registry != nil {
		registry.MustRegister(
			m.SyncRequests,
			m.XPAwarded,
			m.Classifications,
			m.ClassifyCache,
			m.PipelineStages,
			m.UploadDuration,
			m.InactivitySweep,
		)
	}
	return m
}
