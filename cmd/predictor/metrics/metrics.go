// Package metrics defines the predictor's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeBadInput    = "bad_input"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds the predictor's collectors.
type Metrics struct {
	DatasetRows           prometheus.Gauge
	TrainSeconds          prometheus.Histogram
	TrainingRows          prometheus.Gauge
	ModelReady            prometheus.Gauge
	PredictionsTotal      *prometheus.CounterVec
	PredictSeconds        prometheus.Histogram
	UnseenCategoriesTotal *prometheus.CounterVec
	ErrorsTotal           *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DatasetRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "trafficcast_dataset_rows",
			Help: "Rows in the cleaned dataset",
		}),
		TrainSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trafficcast_train_seconds",
			Help:    "Time spent obtaining a model from the provider",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		TrainingRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "trafficcast_training_rows",
			Help: "Rows the current model was trained on",
		}),
		ModelReady: f.NewGauge(prometheus.GaugeOpts{
			Name: "trafficcast_model_ready",
			Help: "1 when a model is available for predictions",
		}),
		PredictionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficcast_predictions_total",
			Help: "Predictions served by outcome",
		}, []string{"outcome"}),
		PredictSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trafficcast_predict_seconds",
			Help:    "Time spent on a single prediction",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		UnseenCategoriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficcast_unseen_categories_total",
			Help: "Categorical values not seen in training, by feature",
		}, []string{"feature"}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficcast_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),
	}
}

func (m *Metrics) SetDatasetRows(n int) { m.DatasetRows.Set(float64(n)) }

// RecordTrain records a successful model hand-off.
func (m *Metrics) RecordTrain(seconds float64, rows int) {
	m.TrainSeconds.Observe(seconds)
	m.TrainingRows.Set(float64(rows))
	m.ModelReady.Set(1)
}

func (m *Metrics) RecordPredict(seconds float64, outcome string) {
	m.PredictSeconds.Observe(seconds)
	m.PredictionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordUnseen(feature string) {
	m.UnseenCategoriesTotal.WithLabelValues(feature).Inc()
}

func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
