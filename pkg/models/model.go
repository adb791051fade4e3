// Package models holds the traffic volume regressors, the categorical
// encoder and the fitted model that ties them to the feature schema.
package models

import (
	"errors"
	"math"
	"time"

	"github.com/HatiCode/trafficcast/pkg/features"
)

// Regressor kinds.
const (
	RegressorForest   = "forest"
	RegressorBaseline = "baseline"
)

var (
	// ErrDataInsufficient means there were no usable rows to train on.
	ErrDataInsufficient = errors.New("insufficient data to train")
	// ErrModelUnavailable means a prediction was requested before any model
	// was trained or loaded.
	ErrModelUnavailable = errors.New("no trained model available")
)

// Regressor predicts a traffic volume from an encoded feature vector.
// Implementations must be safe for concurrent Predict calls.
type Regressor interface {
	Name() string
	Predict(x []float64) float64
}

// Params records how a model was trained.
type Params struct {
	Regressor string       `json:"regressor"`
	Forest    ForestParams `json:"forest"`
}

// DefaultParams returns forest training with the default hyperparameters.
func DefaultParams() Params {
	return Params{Regressor: RegressorForest, Forest: DefaultForestParams()}
}

// TargetStats describes the traffic volume seen in training.
type TargetStats struct {
	Rows int     `json:"rows"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Prediction is a scalar prediction plus the unseen categories it had to
// ignore.
type Prediction struct {
	Value  float64
	Unseen []features.UnseenCategoryWarning
}

// FittedModel is an encoder plus a trained regressor, bound to the schema
// it was trained with. It is immutable: retraining produces a new value.
// All methods are safe for concurrent use.
type FittedModel struct {
	id        string
	trainedAt time.Time
	schema    features.Schema
	encoder   *OneHotEncoder
	regressor Regressor
	params    Params
	target    TargetStats
}

func (m *FittedModel) ID() string { return m.id }
func (m *FittedModel) TrainedAt() time.Time { return m.trainedAt }
func (m *FittedModel) Schema() features.Schema { return m.schema }
func (m *FittedModel) Encoder() *OneHotEncoder { return m.encoder }
func (m *FittedModel) Params() Params { return m.params }
func (m *FittedModel) Target() TargetStats { return m.target }
func (m *FittedModel) RegressorName() string { return m.regressor.Name() }

// Width returns the length of the encoded feature vector.
func (m *FittedModel) Width() int { return len(m.schema.Numeric) + m.encoder.Width() }

// Predict returns the predicted vehicles per hour for one input row.
func (m *FittedModel) Predict(in features.Input) (float64, error) {
	p, err := m.PredictDetailed(in)
	if err != nil {
		return 0, err
	}
	return p.Value, nil
}

// PredictDetailed validates in against the schema, encodes it and runs the
// regressor. Unseen categorical values are reported, not rejected. The
// result is never negative.
func (m *FittedModel) PredictDetailed(in features.Input) (Prediction, error) {
	if m == nil {
		return Prediction{}, ErrModelUnavailable
	}
	if err := m.schema.Validate(in); err != nil {
		return Prediction{}, err
	}

	x := make([]float64, m.Width())
	unseen := m.vectorize(x, in)

	v := m.regressor.Predict(x)
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	return Prediction{Value: v, Unseen: unseen}, nil
}

// vectorize lays out numeric features in schema order followed by the
// one-hot blocks.
func (m *FittedModel) vectorize(dst []float64, in features.Input) []features.UnseenCategoryWarning {
	for i, name := range m.schema.Numeric {
		dst[i] = in.Numeric[name]
	}
	return m.encoder.Encode(dst[len(m.schema.Numeric):], in)
}
