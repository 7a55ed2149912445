package pipelinejob

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"commissions/internal/imaging"
)

// Metrics holds the Prometheus collectors for pipeline runs.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	filesTotal    *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastRunTime   prometheus.Gauge
	lastRunFailed prometheus.Gauge
	running       prometheus.Gauge
}

// NewMetrics registers the pipeline collectors with reg. A nil reg yields
// collectors that are never exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "commissions_pipeline_runs_total",
			Help: "Pipeline runs by result (ok, error).",
		}, []string{"result"}),
		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "commissions_pipeline_files_total",
			Help: "Files handled by the pipeline by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "commissions_pipeline_run_duration_seconds",
			Help:    "Wall time of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "commissions_pipeline_last_run_timestamp_seconds",
			Help: "Unix time the last pipeline run finished.",
		}),
		lastRunFailed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "commissions_pipeline_last_run_failed_files",
			Help: "Number of files that failed in the last pipeline run.",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "commissions_pipeline_running",
			Help: "1 while a pipeline run is in progress.",
		}),
	}
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.running.Set(1)
}

func (m *Metrics) finished(report imaging.BatchReport, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.running.Set(0)
	m.runDuration.Observe(elapsed.Seconds())
	m.lastRunTime.SetToCurrentTime()
	if err != nil {
		m.runsTotal.WithLabelValues("error").Inc()
		return
	}
	m.runsTotal.WithLabelValues("ok").Inc()
	m.filesTotal.WithLabelValues(string(imaging.OutcomeProcessed)).Add(float64(report.Processed))
	m.filesTotal.WithLabelValues(string(imaging.OutcomeSkipped)).Add(float64(report.Skipped))
	m.filesTotal.WithLabelValues(string(imaging.OutcomeFailed)).Add(float64(len(report.Failed)))
	m.lastRunFailed.Set(float64(len(report.Failed)))
}
