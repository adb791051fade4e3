package models

import (
	"fmt"
	"math"

	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
)

// Evaluation holds holdout error metrics.
type Evaluation struct {
	Rows    int     `json:"rows"`
	Skipped int     `json:"skipped"`
	MAE     float64 `json:"mae"`
	RMSE    float64 `json:"rmse"`
	R2      float64 `json:"r2"`
}

// Evaluate predicts every labelled row of a derived table and compares the
// result with its traffic volume. Rows the model rejects, such as undated
// ones, are counted as skipped.
func Evaluate(m *FittedModel, table dataset.Table) (Evaluation, error) {
	inputs, y := features.NewBuilder(m.Schema()).BuildFeatures(table)

	var ev Evaluation
	preds := make([]float64, 0, len(inputs))
	actual := make([]float64, 0, len(inputs))
	for i, in := range inputs {
		p, err := m.Predict(in)
		if err != nil {
			ev.Skipped++
			continue
		}
		preds = append(preds, p)
		actual = append(actual, y[i])
	}
	if len(preds) == 0 {
		return ev, fmt.Errorf("evaluate on %d rows: %w", len(table), ErrDataInsufficient)
	}

	var mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var absErr, sqErr, ssTot float64
	for i := range preds {
		d := preds[i] - actual[i]
		absErr += math.Abs(d)
		sqErr += d * d
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}

	n := float64(len(preds))
	ev.Rows = len(preds)
	ev.MAE = absErr / n
	ev.RMSE = math.Sqrt(sqErr / n)
	if ssTot > 0 {
		ev.R2 = 1 - sqErr/ssTot
	}
	return ev, nil
}
