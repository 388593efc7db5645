package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"datasetapi/internal/model"
)

// Metrics records ingestion outcomes. A nil *Metrics records nothing.
type Metrics struct {
	ingested *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.HistogramVec
}

// NewMetrics creates the ingestion collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datasets_ingested_total",
				Help: "Total number of ingestion runs by file type, outcome and error kind.",
			},
			[]string{"file_type", "status", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dataset_ingest_duration_seconds",
				Help:    "Time spent parsing and writing one upload.",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"file_type"},
		),
		rows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dataset_ingest_rows",
				Help:    "Number of data rows per successful ingestion.",
				Buckets: prometheus.ExponentialBuckets(1, 10, 7),
			},
			[]string{"file_type"},
		),
	}
	for _, c := range []prometheus.Collector{m.ingested, m.duration, m.rows} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(ft model.FileType, rows int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := string(ft)
	if label == "" {
		label = "unknown"
	}
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	if err != nil {
		m.ingested.WithLabelValues(label, string(model.StatusError), string(model.KindOf(err))).Inc()
		return
	}
	m.ingested.WithLabelValues(label, string(model.StatusCompleted), "").Inc()
	m.rows.WithLabelValues(label).Observe(float64(rows))
}
