package features

import "time"

// DemandPoint is one observation in a historical demand series.
type DemandPoint struct {
	Date      time.Time
	Demand    float64
	Promotion bool
}

// TimeSeriesFeatures are the per-point derived features a forecaster
// trainer consumes. Lag and rolling-mean fields use a pointer so a missing
// history (not enough preceding points) can be represented as absent
// rather than defaulted to zero, which would otherwise look like a real
// observation.
type TimeSeriesFeatures struct {
	Date           time.Time
	DayOfWeek      int
	Month          int
	Quarter        int
	DayOfMonth     int
	IsWeekend      bool
	IsHoliday      bool
	Lag1           *float64
	Lag7           *float64
	RollingMean7   *float64
}

// Holidays is the configured calendar checked for the holiday flag, keyed
// by "MM-DD" so a single fixed-date holiday matches every year.
type Holidays map[string]bool

// DeriveTimeSeriesFeatures produces one TimeSeriesFeatures per point in
// series, using only points that precede it for lag and rolling-mean
// computation.
func DeriveTimeSeriesFeatures(series []DemandPoint, holidays Holidays) []TimeSeriesFeatures {
	out := make([]TimeSeriesFeatures, len(series))
	for i, point := range series {
		f := TimeSeriesFeatures{
			Date:       point.Date,
			DayOfWeek:  int(point.Date.Weekday()),
			Month:      int(point.Date.Month()),
			Quarter:    quarterOf(point.Date),
			DayOfMonth: point.Date.Day(),
			IsWeekend:  point.Date.Weekday() == time.Saturday || point.Date.Weekday() == time.Sunday,
			IsHoliday:  holidays[point.Date.Format("01-02")],
		}

		if i >= 1 {
			lag1 := series[i-1].Demand
			f.Lag1 = &lag1
		}
		if i >= 7 {
			lag7 := series[i-7].Demand
			f.Lag7 = &lag7
		}
		if i >= 7 {
			var sum float64
			for _, p := range series[i-7 : i] {
				sum += p.Demand
			}
			mean := sum / 7
			f.RollingMean7 = &mean
		}

		out[i] = f
	}
	return out
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
