package dataset

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"
)

// Range describes the spread of a numeric column.
type Range struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Summary carries what a UI needs to bound its inputs: numeric ranges and
// the distinct values of the label and calendar columns, all sorted.
type Summary struct {
	Rows        int      `json:"rows"`
	Temp        Range    `json:"temp"`
	Rain1h      Range    `json:"rain1h"`
	Snow1h      Range    `json:"snow1h"`
	CloudsAll   Range    `json:"cloudsAll"`
	Traffic     Range    `json:"trafficVolume"`
	Holidays    []string `json:"holidays"`
	WeatherMain []string `json:"weatherMain"`
	Years       []int    `json:"years"`
	Months      []int    `json:"months"`
}

// Summarize computes a Summary over a cleaned table. NaN values are ignored.
func Summarize(t Table) Summary {
	s := Summary{Rows: len(t)}

	temps := make([]float64, 0, len(t))
	rains := make([]float64, 0, len(t))
	snows := make([]float64, 0, len(t))
	clouds := make([]float64, 0, len(t))
	traffic := make([]float64, 0, len(t))
	holidays := map[string]struct{}{}
	weather := map[string]struct{}{}
	years := map[int]struct{}{}
	months := map[int]struct{}{}

	for _, r := range t {
		temps = append(temps, r.Temp)
		rains = append(rains, r.Rain1h)
		snows = append(snows, r.Snow1h)
		clouds = append(clouds, r.CloudsAll)
		if r.TrafficVolume.Valid {
			traffic = append(traffic, float64(r.TrafficVolume.Int64))
		}
		if r.Holiday.Valid {
			holidays[r.Holiday.String] = struct{}{}
		}
		if r.WeatherMain.Valid {
			weather[r.WeatherMain.String] = struct{}{}
		}
		if r.Timestamp.Valid {
			years[r.Timestamp.Time.Year()] = struct{}{}
			months[int(r.Timestamp.Time.Month())] = struct{}{}
		}
	}

	s.Temp = rangeOf(temps)
	s.Rain1h = rangeOf(rains)
	s.Snow1h = rangeOf(snows)
	s.CloudsAll = rangeOf(clouds)
	s.Traffic = rangeOf(traffic)
	s.Holidays = sortedKeys(holidays)
	s.WeatherMain = sortedKeys(weather)
	s.Years = sortedKeys(years)
	s.Months = sortedKeys(months)
	return s
}

func rangeOf(values []float64) Range {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Range{}
	}
	slices.Sort(clean)

	n := len(clean)
	median := clean[n/2]
	if n%2 == 0 {
		median = (clean[n/2-1] + clean[n/2]) / 2
	}
	return Range{Min: clean[0], Max: clean[n-1], Median: median}
}

func sortedKeys[K int | string](m map[K]struct{}) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortByTime(t Table) {
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Timestamp.Time.Before(t[j].Timestamp.Time)
	})
}

// Split shuffles row indices with a fixed seed and returns a train and a test
// table. A testFraction outside [0, 1) puts every row in train. The input
// table is not modified.
func Split(t Table, testFraction float64, seed uint64) (train, test Table) {
	if testFraction < 0 || testFraction >= 1 {
		testFraction = 0
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(len(t))

	nTest := int(math.Round(float64(len(t)) * testFraction))
	test = make(Table, 0, nTest)
	train = make(Table, 0, len(t)-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, t[idx])
		} else {
			train = append(train, t[idx])
		}
	}
	return train, test
}
