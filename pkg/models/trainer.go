package models

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
)

// Trainer fits FittedModels from cleaned, derived tables.
type Trainer struct {
	schema features.Schema
	params Params
	clock  clockwork.Clock
	logger *slog.Logger
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithClock sets the clock used to stamp trained models.
func WithClock(c clockwork.Clock) Option { return func(t *Trainer) { t.clock = c } }

// WithLogger sets the trainer's logger.
func WithLogger(l *slog.Logger) Option { return func(t *Trainer) { t.logger = l } }

// WithSchema overrides the default feature schema.
func WithSchema(s features.Schema) Option { return func(t *Trainer) { t.schema = s } }

// NewTrainer creates a trainer. Zero-valued forest parameters fall back to
// DefaultForestParams, and an empty regressor kind means forest.
func NewTrainer(params Params, opts ...Option) *Trainer {
	t := &Trainer{
		schema: features.DefaultSchema(),
		params: withDefaults(params),
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

func withDefaults(p Params) Params {
	def := DefaultForestParams()
	if p.Regressor == "" {
		p.Regressor = RegressorForest
	}
	if p.Forest.Trees == 0 {
		p.Forest.Trees = def.Trees
	}
	if p.Forest.MinSamplesLeaf == 0 {
		p.Forest.MinSamplesLeaf = def.MinSamplesLeaf
	}
	if p.Forest.MaxBins == 0 {
		p.Forest.MaxBins = def.MaxBins
	}
	return p
}

// Params returns the effective training parameters.
func (t *Trainer) Params() Params { return t.params }

// Train fits a new model on a cleaned and derived table, targeting
// traffic_volume. Rows without a target are skipped. If nothing is left to
// train on, Train returns an error wrapping ErrDataInsufficient.
func (t *Trainer) Train(ctx context.Context, table dataset.Table) (*FittedModel, error) {
	start := t.clock.Now()

	inputs, y := features.NewBuilder(t.schema).BuildFeatures(table)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("train on %d rows: %w", len(table), ErrDataInsufficient)
	}

	encoder := FitOneHot(t.schema.Categorical, inputs)
	m := &FittedModel{
		id:      uuid.NewString(),
		schema:  features.Schema{Numeric: slices.Clone(t.schema.Numeric), Categorical: slices.Clone(t.schema.Categorical)},
		encoder: encoder,
		params:  t.params,
		target:  targetStats(y),
	}

	X := make([][]float64, len(inputs))
	for i, in := range inputs {
		X[i] = make([]float64, m.Width())
		m.vectorize(X[i], in)
	}

	reg, err := t.fit(ctx, X, y)
	if err != nil {
		return nil, err
	}
	m.regressor = reg
	m.trainedAt = t.clock.Now()

	t.logger.Info("model trained",
		"model_id", m.id,
		"regressor", reg.Name(),
		"rows", len(y),
		"skipped_rows", len(table)-len(y),
		"features", m.Width(),
		"duration_ms", m.trainedAt.Sub(start).Milliseconds(),
	)
	return m, nil
}

func (t *Trainer) fit(ctx context.Context, X [][]float64, y []float64) (Regressor, error) {
	switch t.params.Regressor {
	case RegressorForest:
		f, err := FitForest(ctx, X, y, t.params.Forest)
		if err != nil {
			return nil, fmt.Errorf("fit forest: %w", err)
		}
		return f, nil
	case RegressorBaseline:
		hour := slices.Index(t.schema.Numeric, features.Hour)
		if hour < 0 {
			return nil, fmt.Errorf("baseline regressor needs a numeric %q feature", features.Hour)
		}
		return FitHourlyBaseline(X, y, hour)
	default:
		return nil, fmt.Errorf("unknown regressor %q", t.params.Regressor)
	}
}

func targetStats(y []float64) TargetStats {
	s := TargetStats{Rows: len(y), Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range y {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(y))
	return s
}
