package features

import (
	"math"
	"time"

	"github.com/HatiCode/trafficcast/pkg/dataset"
)

// TimeFieldsOf derives the calendar fields of ts using its own wall clock.
// Day of week counts from Monday=0.
func TimeFieldsOf(ts time.Time) dataset.TimeFields {
	return dataset.TimeFields{
		Hour:      ts.Hour(),
		Month:     int(ts.Month()),
		DayOfWeek: (int(ts.Weekday()) + 6) % 7,
		Year:      ts.Year(),
		Valid:     true,
	}
}

// DayOfWeekOf returns the Monday=0 day of week of a calendar date.
func DayOfWeekOf(year int, month time.Month, day int) int {
	return TimeFieldsOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC)).DayOfWeek
}

// Derive returns a copy of t with hour, month, dayofweek and year set from
// each row's timestamp. Undated rows keep invalid time fields; nothing is
// dropped. Deriving an already derived table gives the same result.
func Derive(t dataset.Table) dataset.Table {
	out := make(dataset.Table, len(t))
	for i, r := range t {
		if r.Timestamp.Valid {
			r.Time = TimeFieldsOf(r.Timestamp.Time)
		} else {
			r.Time = dataset.TimeFields{}
		}
		out[i] = r
	}
	return out
}

// Builder turns derived records into schema-keyed inputs, so training rows
// and prediction rows go through the same Input shape.
type Builder struct {
	schema Schema
}

// NewBuilder creates a builder for the given schema.
func NewBuilder(schema Schema) *Builder {
	return &Builder{schema: schema}
}

// Schema returns the builder's schema.
func (b *Builder) Schema() Schema { return b.schema }

// BuildFeatures converts a derived table into inputs and traffic volume
// targets. Rows without a target are skipped. Undated rows carry NaN time
// fields.
func (b *Builder) BuildFeatures(t dataset.Table) ([]Input, []float64) {
	inputs := make([]Input, 0, len(t))
	targets := make([]float64, 0, len(t))

	for _, r := range t {
		if !r.TrafficVolume.Valid {
			continue
		}
		inputs = append(inputs, RecordInput(r))
		targets = append(targets, float64(r.TrafficVolume.Int64))
	}
	return inputs, targets
}

// RecordInput builds the Input for a single derived record.
func RecordInput(r dataset.Record) Input {
	hour, month, dow, year := math.NaN(), math.NaN(), math.NaN(), math.NaN()
	if r.Time.Valid {
		hour = float64(r.Time.Hour)
		month = float64(r.Time.Month)
		dow = float64(r.Time.DayOfWeek)
		year = float64(r.Time.Year)
	}

	return Input{
		Numeric: map[string]float64{
			Temp:      r.Temp,
			Rain1h:    r.Rain1h,
			Snow1h:    r.Snow1h,
			CloudsAll: r.CloudsAll,
			Hour:      hour,
			Month:     month,
			DayOfWeek: dow,
			Year:      year,
		},
		Categorical: map[string]string{
			Holiday:     r.Holiday.String,
			WeatherMain: r.WeatherMain.String,
		},
	}
}
