package features

import "time"

// Input is one row handed to a fitted model, keyed by feature name.
// Position plays no role: fields are looked up by name.
type Input struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// Conditions is the typed form of an Input, as collected by a UI.
type Conditions struct {
	Temp        float64 `json:"temp"`
	Rain1h      float64 `json:"rain_1h"`
	Snow1h      float64 `json:"snow_1h"`
	CloudsAll   float64 `json:"clouds_all"`
	Hour        int     `json:"hour"`
	Month       int     `json:"month"`
	DayOfWeek   int     `json:"dayofweek"`
	Year        int     `json:"year"`
	Holiday     string  `json:"holiday"`
	WeatherMain string  `json:"weather_main"`
}

// Input converts c into a schema-keyed Input.
func (c Conditions) Input() Input {
	return Input{
		Numeric: map[string]float64{
			Temp:      c.Temp,
			Rain1h:    c.Rain1h,
			Snow1h:    c.Snow1h,
			CloudsAll: c.CloudsAll,
			Hour:      float64(c.Hour),
			Month:     float64(c.Month),
			DayOfWeek: float64(c.DayOfWeek),
			Year:      float64(c.Year),
		},
		Categorical: map[string]string{
			Holiday:     c.Holiday,
			WeatherMain: c.WeatherMain,
		},
	}
}

// ConditionsAt fills the calendar fields of c from a selected date and hour,
// computing the day of week rather than trusting a caller default.
func ConditionsAt(c Conditions, year int, month time.Month, day, hour int) Conditions {
	tf := TimeFieldsOf(time.Date(year, month, day, hour, 0, 0, 0, time.UTC))
	c.Hour = tf.Hour
	c.Month = tf.Month
	c.DayOfWeek = tf.DayOfWeek
	c.Year = tf.Year
	return c
}

// DecodeInput partitions a decoded JSON object by value type: numbers are
// numeric fields, strings categorical ones. Any other value type is a
// SchemaMismatchError.
func DecodeInput(raw map[string]any) (Input, error) {
	in := Input{
		Numeric:     make(map[string]float64, len(raw)),
		Categorical: make(map[string]string, len(raw)),
	}
	for name, v := range raw {
		switch val := v.(type) {
		case float64:
			in.Numeric[name] = val
		case int:
			in.Numeric[name] = float64(val)
		case string:
			in.Categorical[name] = val
		default:
			return Input{}, &SchemaMismatchError{Field: name, Reason: "value must be a number or a string"}
		}
	}
	return in, nil
}
