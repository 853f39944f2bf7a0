package content

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of an [Engine].
type Metrics struct {
	BuildsTotal       *prometheus.CounterVec
	BuildDuration     prometheus.Histogram
	RecordErrorsTotal *prometheus.CounterVec
	PublishedRecords  *prometheus.GaugeVec
	LastPublish       prometheus.Gauge
}

// NewMetrics creates the engine metrics and registers them with reg.
// A nil reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecontent_builds_total",
				Help: "Total number of rebuilds by result",
			},
			[]string{"result"},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitecontent_build_duration_seconds",
				Help:    "Duration of rebuilds in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		RecordErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecontent_record_errors_total",
				Help: "Total number of record errors (one per violation or dropped duplicate), by kind and reason",
			},
			[]string{"kind", "reason"},
		),
		PublishedRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sitecontent_published_records",
				Help: "Number of records in the current snapshot, by kind",
			},
			[]string{"kind"},
		),
		LastPublish: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitecontent_last_publish_timestamp_seconds",
				Help: "Unix time of the last successful publish",
			},
		),
	}
}

func (m *Metrics) observe(report *BuildReport) {
	if m == nil {
		return
	}

	result := "published"
	if !report.Published {
		result = Reason(report.Err)
	}

	m.BuildsTotal.WithLabelValues(result).Inc()
	m.BuildDuration.Observe(report.Duration.Seconds())

	for _, err := range report.RecordErrors {
		kind := ""

		var cErr *Error
		if errors.As(err, &cErr) {
			kind = string(cErr.Kind)
		}

		m.RecordErrorsTotal.WithLabelValues(kind, Reason(err)).Inc()
	}

	if !report.Published {
		return
	}

	for kind, kr := range report.Kinds {
		m.PublishedRecords.WithLabelValues(string(kind)).Set(float64(kr.Accepted))
	}

	m.LastPublish.Set(float64(report.StartedAt.Add(report.Duration).UnixNano()) / float64(time.Second))
}
