// Package adapters provides the record sources that load raw hourly
// weather/traffic observations into a dataset.Table.
//
// Adapters only read and type the data. Cleaning and feature derivation are
// left to the dataset and features packages.
package adapters

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/HatiCode/trafficcast/pkg/dataset"
)

// TimestampLayout is the day-month-year layout of the date_time column.
// Day, month and hour may be zero padded or not.
const TimestampLayout = "2-1-2006 15:04"

// missingValues are the cells treated as absent.
var missingValues = []string{"", "NA", "NaN", "nan", "<nil>"}

var columnTypes = map[string]series.Type{
	dataset.ColHoliday:       series.String,
	dataset.ColTemp:          series.Float,
	dataset.ColRain1h:        series.Float,
	dataset.ColSnow1h:        series.Float,
	dataset.ColCloudsAll:     series.Float,
	dataset.ColWeatherMain:   series.String,
	dataset.ColDateTime:      series.String,
	dataset.ColTrafficVolume: series.Int,
}

// CSVAdapter reads a delimited file with a header row.
//
// Either Path or Reader must be set; Reader takes precedence.
type CSVAdapter struct {
	Path   string
	Reader io.Reader
	// Delimiter defaults to ','.
	Delimiter rune
}

func (a *CSVAdapter) Name() string { return "csv" }

// Collect implements Adapter.
func (a *CSVAdapter) Collect(ctx context.Context) (dataset.Table, LoadReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, LoadReport{}, err
	}

	r := a.Reader
	if r == nil {
		if a.Path == "" {
			return nil, LoadReport{}, errors.New("csv adapter: Path or Reader is required")
		}
		f, err := os.Open(a.Path)
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("open dataset: %w", err)
		}
		defer f.Close()
		r = f
	}

	delim := a.Delimiter
	if delim == 0 {
		delim = ','
	}

	cr := csv.NewReader(r)
	cr.Comma = delim
	records, err := cr.ReadAll()
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, LoadReport{}, errors.New("read csv: no header row")
	}
	// gota rejects a header without rows; that is an empty table here.
	if len(records) == 1 {
		if err := requireColumns(records[0]); err != nil {
			return nil, LoadReport{}, err
		}
		return dataset.Table{}, LoadReport{}, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.WithTypes(columnTypes),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, LoadReport{}, fmt.Errorf("load records: %w", df.Err)
	}

	return tableFromFrame(df)
}

// tableFromFrame converts a typed gota frame into records.
func tableFromFrame(df dataframe.DataFrame) (dataset.Table, LoadReport, error) {
	if err := requireColumns(df.Names()); err != nil {
		return nil, LoadReport{}, err
	}

	n := df.Nrow()
	rep := LoadReport{Rows: n}

	temp := df.Col(dataset.ColTemp)
	rain := df.Col(dataset.ColRain1h)
	snow := df.Col(dataset.ColSnow1h)
	clouds := df.Col(dataset.ColCloudsAll)
	holiday := df.Col(dataset.ColHoliday)
	weather := df.Col(dataset.ColWeatherMain)
	dateTime := df.Col(dataset.ColDateTime)
	volume := df.Col(dataset.ColTrafficVolume)

	table := make(dataset.Table, n)
	for i := 0; i < n; i++ {
		rec := dataset.Record{
			Temp:        floatAt(temp, i),
			Rain1h:      floatAt(rain, i),
			Snow1h:      floatAt(snow, i),
			CloudsAll:   floatAt(clouds, i),
			Holiday:     stringAt(holiday, i),
			WeatherMain: stringAt(weather, i),
		}

		raw := stringAt(dateTime, i)
		ts, err := ParseTimestamp(raw.String)
		switch {
		case !raw.Valid:
			rep.BadTimestamps++
		case err != nil:
			rep.BadTimestamps++
			rep.record(&ParseError{Row: i + 1, Column: dataset.ColDateTime, Value: raw.String, Err: err})
		default:
			rec.Timestamp = sql.NullTime{Time: ts, Valid: true}
		}

		if e := volume.Elem(i); !e.IsNA() {
			v, err := e.Int()
			if err != nil {
				rep.record(&ParseError{Row: i + 1, Column: dataset.ColTrafficVolume, Value: e.String(), Err: err})
			} else {
				rec.TrafficVolume = sql.NullInt64{Int64: int64(v), Valid: true}
			}
		}
		if !rec.TrafficVolume.Valid {
			rep.MissingTargets++
		}

		table[i] = rec
	}

	return table, rep, nil
}

// ParseTimestamp parses a date_time cell. The result carries no timezone
// conversion: the wall clock in the file is the wall clock returned.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

func requireColumns(names []string) error {
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	var missing []string
	for _, c := range dataset.Columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("dataset is missing columns %v", missing)
	}
	return nil
}

func floatAt(s series.Series, i int) float64 {
	e := s.Elem(i)
	if e.IsNA() {
		return math.NaN()
	}
	return e.Float()
}

func stringAt(s series.Series, i int) sql.NullString {
	e := s.Elem(i)
	if e.IsNA() {
		return sql.NullString{}
	}
	return sql.NullString{String: e.String(), Valid: true}
}
