// Package features derives calendar fields from timestamps and defines the
// feature schema shared by training and prediction.
package features

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Feature names.
const (
	Temp        = "temp"
	Rain1h      = "rain_1h"
	Snow1h      = "snow_1h"
	CloudsAll   = "clouds_all"
	Hour        = "hour"
	Month       = "month"
	DayOfWeek   = "dayofweek"
	Year        = "year"
	Holiday     = "holiday"
	WeatherMain = "weather_main"
)

// Schema is the ordered numeric/categorical partition of the model inputs.
// Numeric features pass through unchanged; categorical ones are encoded.
type Schema struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// DefaultSchema returns the traffic model schema. Each call returns fresh
// slices, so callers may not alter the shared definition.
func DefaultSchema() Schema {
	return Schema{
		Numeric:     []string{Temp, Rain1h, Snow1h, CloudsAll, Hour, Month, DayOfWeek, Year},
		Categorical: []string{Holiday, WeatherMain},
	}
}

// Width returns the number of schema fields.
func (s Schema) Width() int { return len(s.Numeric) + len(s.Categorical) }

// Equal reports whether two schemas have the same partition in the same order.
func (s Schema) Equal(o Schema) bool {
	return slices.Equal(s.Numeric, o.Numeric) && slices.Equal(s.Categorical, o.Categorical)
}

// Validate checks that in supplies every schema field in the right
// partition with a finite numeric value. Fields outside the schema are
// ignored.
func (s Schema) Validate(in Input) error {
	for _, name := range s.Numeric {
		v, ok := in.Numeric[name]
		if !ok {
			if _, wrong := in.Categorical[name]; wrong {
				return &SchemaMismatchError{Field: name, Reason: "expected numeric, got categorical"}
			}
			return &SchemaMismatchError{Field: name, Reason: "missing"}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &SchemaMismatchError{Field: name, Reason: "not a finite number"}
		}
	}
	for _, name := range s.Categorical {
		if _, ok := in.Categorical[name]; !ok {
			if _, wrong := in.Numeric[name]; wrong {
				return &SchemaMismatchError{Field: name, Reason: "expected categorical, got numeric"}
			}
			return &SchemaMismatchError{Field: name, Reason: "missing"}
		}
	}
	return nil
}

// ErrSchemaMismatch is matched by every SchemaMismatchError via errors.Is.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaMismatchError reports a prediction input that does not conform to
// the schema. It fails a single call and never invalidates the model.
type SchemaMismatchError struct {
	Field  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: field %q: %s", e.Field, e.Reason)
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// UnseenCategoryWarning notes a categorical value the model never saw in
// training. It is encoded as all zeros and does not fail the prediction.
type UnseenCategoryWarning struct {
	Feature string `json:"feature"`
	Value   string `json:"value"`
}

func (w UnseenCategoryWarning) String() string {
	return fmt.Sprintf("unseen category %q for feature %q", w.Value, w.Feature)
}
