package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/HatiCode/trafficcast/cmd/predictor/metrics"
	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/session"
)

// ReadinessNotifier is told whenever a model becomes available.
type ReadinessNotifier interface {
	SetServing(bool)
}

// Predictor drives the session lifecycle: load the dataset, obtain the first
// model, and optionally retrain on an interval.
type Predictor struct {
	sess    *session.Session
	metrics *metrics.Metrics
	notify  ReadinessNotifier
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewPredictor creates a Predictor. notify may be nil.
func NewPredictor(sess *session.Session, m *metrics.Metrics, notify ReadinessNotifier, clock clockwork.Clock, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Predictor{sess: sess, metrics: m, notify: notify, clock: clock, logger: logger}
}

// Start loads the dataset, when the session has a source, and obtains the
// first model.
func (p *Predictor) Start(ctx context.Context) error {
	table, err := p.sess.LoadOnce(ctx)
	switch {
	case errors.Is(err, session.ErrNoDataSource):
		p.logger.Info("no dataset configured, dataset endpoints disabled")
	case err != nil:
		p.metrics.RecordError("adapter", "load_failed")
		return fmt.Errorf("load dataset: %w", err)
	default:
		p.metrics.SetDatasetRows(table.Len())
	}

	start := p.clock.Now()
	m, err := p.sess.TrainOnce(ctx)
	if err != nil {
		p.metrics.RecordError("model", "provide_failed")
		return fmt.Errorf("initial model: %w", err)
	}
	p.ready(m, p.clock.Since(start))
	return nil
}

// Run retrains at the given interval. Blocks until ctx is canceled. A failed
// retrain keeps the current model.
func (p *Predictor) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("starting retrain loop", "interval", interval)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("retrain loop stopped")
			return ctx.Err()
		case <-ticker.Chan():
			if err := p.Tick(ctx); err != nil {
				p.logger.Error("retrain failed, keeping current model", "error", err)
			}
		}
	}
}

// Tick performs one retrain.
// Exported for testing purposes.
func (p *Predictor) Tick(ctx context.Context) error {
	start := p.clock.Now()
	m, err := p.sess.Retrain(ctx)
	if err != nil {
		p.metrics.RecordError("model", "retrain_failed")
		return fmt.Errorf("retrain: %w", err)
	}
	p.ready(m, p.clock.Since(start))
	return nil
}

func (p *Predictor) ready(m *models.FittedModel, took time.Duration) {
	p.metrics.RecordTrain(took.Seconds(), m.Target().Rows)
	if p.notify != nil {
		p.notify.SetServing(true)
	}
	p.logger.Info("model serving",
		"model_id", m.ID(),
		"regressor", m.RegressorName(),
		"trained_at", m.TrainedAt(),
		"rows", m.Target().Rows,
		"duration_ms", took.Milliseconds(),
	)
}
