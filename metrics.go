package main

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// appMetrics holds the counters exported on /metrics. Each App owns its own
// registry so tests can build several apps in one process.
type appMetrics struct {
	registry *prometheus.Registry

	reportsSubmitted   *prometheus.CounterVec
	evidenceFiles      prometheus.Counter
	seedRequests       *prometheus.CounterVec
	orphanFilesRemoved *prometheus.CounterVec
}

func newAppMetrics() (*appMetrics, error) {
	m := &appMetrics{registry: prometheus.NewRegistry()}

	m.reportsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitguard_reports_submitted_total",
			Help: "Total number of violation reports stored, partitioned by derived priority.",
		},
		[]string{"priority"},
	)
	m.evidenceFiles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transitguard_evidence_files_stored_total",
			Help: "Total number of evidence files committed to the uploads directory.",
		},
	)
	m.seedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitguard_seed_requests_total",
			Help: "Total number of catalog seed requests by catalog and result.",
		},
		[]string{"catalog", "result"},
	)
	m.orphanFilesRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitguard_orphan_files_removed_total",
			Help: "Total number of evidence files removed by reconciliation, by directory.",
		},
		[]string{"area"},
	)

	for _, c := range []prometheus.Collector{
		m.reportsSubmitted,
		m.evidenceFiles,
		m.seedRequests,
		m.orphanFilesRemoved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *appMetrics) reportStored(priority, evidenceCount int) {
	m.reportsSubmitted.WithLabelValues(strconv.Itoa(priority)).Inc()
	m.evidenceFiles.Add(float64(evidenceCount))
}

func (m *appMetrics) handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	return gin.WrapH(h)
}
