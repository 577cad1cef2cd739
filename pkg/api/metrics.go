package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks syscall-level Prometheus metrics for the HTTP adapter.
//
// All metrics use the virtfs_ prefix. Labels are kept low-cardinality: the
// syscall name and, for the counter, the resulting status (ok or the error
// code name).
type Metrics struct {
	// SyscallsTotal counts syscalls by operation and status.
	SyscallsTotal *prometheus.CounterVec

	// SyscallDuration tracks per-operation latency distribution.
	SyscallDuration *prometheus.HistogramVec

	// OpenDescriptors tracks the current number of open descriptors.
	OpenDescriptors prometheus.Gauge
}

// NewMetrics creates adapter metrics registered against reg. Panics if
// registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyscallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtfs_syscalls_total",
				Help: "Total syscalls by operation and status",
			},
			[]string{"op", "status"},
		),
		SyscallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "virtfs_syscall_duration_seconds",
				Help:    "Syscall duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		OpenDescriptors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "virtfs_open_descriptors",
				Help: "Current number of open file descriptors",
			},
		),
	}

	reg.MustRegister(m.SyscallsTotal, m.SyscallDuration, m.OpenDescriptors)
	return m
}
