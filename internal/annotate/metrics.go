package annotate

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments batch submission. A nil *Metrics disables recording.
type Metrics struct {
	Batches  *prometheus.CounterVec
	Rows     prometheus.Counter
	Duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabsight_batches_total",
				Help: "Annotation batches submitted, by outcome",
			},
			[]string{"outcome"},
		),
		Rows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tabsight_rows_annotated_total",
				Help: "Rows that received a model annotation",
			},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tabsight_batch_duration_seconds",
				Help:    "Wall time of one batch call including retries",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Batches, m.Rows, m.Duration)
	}
	return m
}

func (m *Metrics) observe(o BatchOutcome) {
	if m == nil {
		return
	}
	m.Duration.Observe(o.Duration.Seconds())
	if o.Err != nil {
		m.Batches.WithLabelValues("failed").Inc()
		return
	}
	m.Batches.WithLabelValues("ok").Inc()
	m.Rows.Add(float64(o.Hi - o.Lo))
}
