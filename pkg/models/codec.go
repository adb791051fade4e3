package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/HatiCode/trafficcast/pkg/features"
)

type modelJSON struct {
	ID        string          `json:"id"`
	TrainedAt time.Time       `json:"trainedAt"`
	Schema    features.Schema `json:"schema"`
	Encoder   encoderJSON     `json:"encoder"`
	Params    Params          `json:"params"`
	Target    TargetStats     `json:"target"`
	Regressor regressorJSON   `json:"regressor"`
}

type encoderJSON struct {
	Features []string   `json:"features"`
	Vocab    [][]string `json:"vocab"`
}

type regressorJSON struct {
	Kind     string          `json:"kind"`
	Forest   *Forest         `json:"forest,omitempty"`
	Baseline *HourlyBaseline `json:"baseline,omitempty"`
}

// MarshalJSON encodes the full model, regressor included.
func (m *FittedModel) MarshalJSON() ([]byte, error) {
	out := modelJSON{
		ID:        m.id,
		TrainedAt: m.trainedAt,
		Schema:    m.schema,
		Encoder:   encoderJSON{Features: m.encoder.features, Vocab: m.encoder.vocab},
		Params:    m.params,
		Target:    m.target,
		Regressor: regressorJSON{Kind: m.regressor.Name()},
	}
	switch r := m.regressor.(type) {
	case *Forest:
		out.Regressor.Forest = r
	case *HourlyBaseline:
		out.Regressor.Baseline = r
	default:
		return nil, fmt.Errorf("cannot encode regressor %T", m.regressor)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a model written by MarshalJSON. It is meant for
// decoding into a fresh FittedModel and rejects structurally invalid input.
func (m *FittedModel) UnmarshalJSON(data []byte) error {
	var in modelJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Schema.Width() == 0 {
		return errors.New("decode model: empty schema")
	}
	if len(in.Encoder.Features) != len(in.Encoder.Vocab) {
		return errors.New("decode model: encoder features and vocabulary differ in length")
	}
	if !slices.Equal(in.Encoder.Features, in.Schema.Categorical) {
		return errors.New("decode model: encoder does not cover the categorical schema")
	}

	decoded := FittedModel{
		id:        in.ID,
		trainedAt: in.TrainedAt,
		schema:    in.Schema,
		encoder:   newOneHotEncoder(in.Encoder.Features, in.Encoder.Vocab),
		params:    in.Params,
		target:    in.Target,
	}
	width := decoded.Width()

	switch in.Regressor.Kind {
	case RegressorForest:
		if in.Regressor.Forest == nil || len(in.Regressor.Forest.Trees) == 0 {
			return errors.New("decode model: forest has no trees")
		}
		for i := range in.Regressor.Forest.Trees {
			if err := in.Regressor.Forest.Trees[i].check(width); err != nil {
				return fmt.Errorf("decode model: tree %d: %w", i, err)
			}
		}
		decoded.regressor = in.Regressor.Forest
	case RegressorBaseline:
		b := in.Regressor.Baseline
		if b == nil || b.HourFeature < 0 || b.HourFeature >= width {
			return errors.New("decode model: invalid baseline regressor")
		}
		decoded.regressor = b
	default:
		return fmt.Errorf("decode model: unknown regressor %q", in.Regressor.Kind)
	}

	*m = decoded
	return nil
}

// check verifies that every split references a valid feature and that
// children point forward, so Predict always terminates.
func (t *Tree) check(width int) error {
	if len(t.Nodes) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= width {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}
