// Package dataset holds the in-memory traffic table and the pure row-level
// transforms applied to it before training: validity filtering, null
// sentinels, summaries and train/test splitting.
package dataset

import (
	"database/sql"
	"time"
)

// Column names as they appear in the source file.
const (
	ColHoliday       = "holiday"
	ColTemp          = "temp"
	ColRain1h        = "rain_1h"
	ColSnow1h        = "snow_1h"
	ColCloudsAll     = "clouds_all"
	ColWeatherMain   = "weather_main"
	ColDateTime      = "date_time"
	ColTrafficVolume = "traffic_volume"
)

// Columns lists every column a source file must provide.
var Columns = []string{
	ColHoliday, ColTemp, ColRain1h, ColSnow1h,
	ColCloudsAll, ColWeatherMain, ColDateTime, ColTrafficVolume,
}

// Null sentinels written by Clean.
const (
	NoHoliday      = "None"
	UnknownWeather = "Unknown"
)

// TimeFields are the calendar fields derived from a record's timestamp.
// Valid is false when the timestamp itself is null.
type TimeFields struct {
	Hour      int
	Month     int
	DayOfWeek int // 0=Monday .. 6=Sunday
	Year      int
	Valid     bool
}

// Record is one hourly observation. Numeric weather columns are NaN when
// the source cell was empty.
type Record struct {
	Timestamp     sql.NullTime
	Temp          float64 // Kelvin
	Rain1h        float64 // mm in the last hour
	Snow1h        float64 // mm in the last hour
	CloudsAll     float64 // percent
	Holiday       sql.NullString
	WeatherMain   sql.NullString
	TrafficVolume sql.NullInt64 // vehicles/hour

	// Time is populated by features.Derive.
	Time TimeFields
}

// Table is an ordered set of records. Multiple records may share a timestamp.
type Table []Record

// Len returns the number of rows.
func (t Table) Len() int { return len(t) }

// DropUndated returns the rows that carry a valid timestamp. It is the
// caller-side policy for rows the loader could not date.
func DropUndated(t Table) Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if r.Timestamp.Valid {
			out = append(out, r)
		}
	}
	return out
}

// Day returns the rows falling on the given calendar day, sorted by time.
func Day(t Table, year int, month time.Month, day int) Table {
	out := make(Table, 0)
	for _, r := range t {
		if !r.Timestamp.Valid {
			continue
		}
		ts := r.Timestamp.Time
		if ts.Year() == year && ts.Month() == month && ts.Day() == day {
			out = append(out, r)
		}
	}
	sortByTime(out)
	return out
}
