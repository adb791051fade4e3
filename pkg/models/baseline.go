package models

import (
	"fmt"
	"math"
)

// minHourSamples is how many observations an hour needs before its own
// mean is trusted over the global mean.
const minHourSamples = 2

// HourlyBaseline predicts the mean traffic volume observed at the same hour
// of day, falling back to the global mean for hours with too little data.
// It ignores every other feature and serves as a reference for the forest.
type HourlyBaseline struct {
	// HourFeature is the position of the hour column in the feature vector.
	HourFeature int `json:"hourFeature"`
	// HourMeans maps hour (0-23) to its mean volume.
	HourMeans map[int]float64 `json:"hourMeans"`
	// Global is the mean volume over all training rows.
	Global float64 `json:"global"`
}

// FitHourlyBaseline computes hour-of-day means from X and y.
func FitHourlyBaseline(X [][]float64, y []float64, hourFeature int) (*HourlyBaseline, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("baseline: need matching non-empty X and y, got %d and %d", len(X), len(y))
	}

	hourSums := make(map[int]float64)
	hourCounts := make(map[int]int)
	var total float64

	for i, row := range X {
		total += y[i]
		hour := row[hourFeature]
		if math.IsNaN(hour) {
			continue
		}
		h := int(hour)
		if h >= 0 && h < 24 {
			hourSums[h] += y[i]
			hourCounts[h]++
		}
	}

	m := &HourlyBaseline{
		HourFeature: hourFeature,
		HourMeans:   make(map[int]float64),
		Global:      total / float64(len(y)),
	}
	for h := range 24 {
		if count := hourCounts[h]; count >= minHourSamples {
			m.HourMeans[h] = hourSums[h] / float64(count)
		}
	}
	return m, nil
}

func (m *HourlyBaseline) Name() string { return RegressorBaseline }

// Predict returns the mean for the vector's hour, or the global mean.
func (m *HourlyBaseline) Predict(x []float64) float64 {
	hour := x[m.HourFeature]
	if !math.IsNaN(hour) {
		if mean, ok := m.HourMeans[int(hour)]; ok {
			return mean
		}
	}
	return m.Global
}
