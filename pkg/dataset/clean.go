package dataset

// Thresholds applied by Clean.
const (
	// MaxRain1h is the exclusive upper bound for hourly rainfall in mm.
	MaxRain1h = 60.0
	// MaxSnow1h is the exclusive upper bound for hourly snowfall in mm.
	MaxSnow1h = 60.0
)

// CleanReport counts the rows each rule removed. A row failing several
// rules is attributed to the first one checked.
type CleanReport struct {
	Input       int
	Output      int
	DroppedTemp int
	DroppedRain int
	DroppedSnow int
}

// Clean filters out sensor faults and implausible precipitation and fills
// null labels with their sentinels. The input table is not modified and row
// order is preserved. An input that filters down to nothing yields an empty,
// non-nil table.
//
// Comparisons are written so that NaN readings fail them and are dropped.
func Clean(t Table) (Table, CleanReport) {
	rep := CleanReport{Input: len(t)}
	out := make(Table, 0, len(t))

	for _, r := range t {
		switch {
		case !(r.Temp > 0):
			rep.DroppedTemp++
			continue
		case !(r.Rain1h < MaxRain1h):
			rep.DroppedRain++
			continue
		case !(r.Snow1h < MaxSnow1h):
			rep.DroppedSnow++
			continue
		}

		if !r.Holiday.Valid {
			r.Holiday.String = NoHoliday
			r.Holiday.Valid = true
		}
		if !r.WeatherMain.Valid {
			r.WeatherMain.String = UnknownWeather
			r.WeatherMain.Valid = true
		}
		out = append(out, r)
	}

	rep.Output = len(out)
	return out, rep
}
