package predictors

import (
	"fmt"
	"time"
)

// Granularity is the requested forecast sampling cadence.
type Granularity string

const (
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

func (g Granularity) stride() int {
	if g == Weekly {
		return 7
	}
	return 1
}

// DemandForecastInputs is the validated request for the demand-forecast
// family.
type DemandForecastInputs struct {
	ProductID    string
	Horizon      int
	Granularity  Granularity
	BaselineDate time.Time
}

// ForecastModel is the model-specific surface a loaded demand-forecast
// model handle must expose: dense daily arrays long enough to cover
// horizon*stride points, from which the predictor samples.
type ForecastModel interface {
	Forecast(productID string, baselineDate time.Time, dailyLength int) (forecast, lower, upper []float64, err error)
}

// ForecastPoint is one sampled date in the response's per-date list.
type ForecastPoint struct {
	Date      time.Time
	Forecast  float64
	Lower     float64
	Upper     float64
	Anomalous bool
}

// DemandForecastMetadata carries the full per-date forecast list and
// anomaly count surfaced alongside a demand-forecast prediction.
type DemandForecastMetadata struct {
	Points        []ForecastPoint
	AnomalyCount  int
	ForecastCount int
}

func (m DemandForecastMetadata) ToMap() map[string]any {
	dates := make([]map[string]any, len(m.Points))
	for i, p := range m.Points {
		dates[i] = map[string]any{
			"date":      p.Date.Format("2006-01-02"),
			"forecast":  p.Forecast,
			"lower":     p.Lower,
			"upper":     p.Upper,
			"anomalous": p.Anomalous,
		}
	}
	return map[string]any{
		"forecast_count": m.ForecastCount,
		"anomaly_count":  m.AnomalyCount,
		"dates":          dates,
	}
}

const anomalyDeviationThresholdPct = 40.0

// PredictDemandForecast invokes model over a dense daily series long
// enough to cover the requested horizon at the requested granularity's
// stride, samples every stride-th point, flags anomalies where the lower
// bound deviates from the forecast by more than 40%, and returns the mean
// of the sampled points as the scalar result.
func PredictDemandForecast(model ForecastModel, in DemandForecastInputs, modelVersion string) (Result, error) {
	stride := in.Granularity.stride()
	dailyLength := in.Horizon*stride + 1

	forecast, lower, upper, err := model.Forecast(in.ProductID, in.BaselineDate, dailyLength)
	if err != nil {
		return Result{}, err
	}

	points := make([]ForecastPoint, 0, in.Horizon)
	var sum float64
	var anomalyCount int

	for k := 0; k < in.Horizon; k++ {
		idx := k * stride
		if idx >= len(forecast) {
			break
		}

		f, l, u := forecast[idx], lower[idx], upper[idx]
		anomalous := isAnomalous(f, l)
		if anomalous {
			anomalyCount++
		}

		points = append(points, ForecastPoint{
			Date:      in.BaselineDate.AddDate(0, 0, idx+1),
			Forecast:  f,
			Lower:     l,
			Upper:     u,
			Anomalous: anomalous,
		})
		sum += f
	}

	var mean float64
	if len(points) > 0 {
		mean = sum / float64(len(points))
	}

	return Result{
		Predicted:    mean,
		Unit:         "units",
		LowerBound:   mean, // bound fields at the top level are per-point; the full list lives in metadata
		UpperBound:   mean,
		Explanation:  fmt.Sprintf("%d-point %s forecast for %s, %d anomalous", len(points), in.Granularity, in.ProductID, anomalyCount),
		ModelVersion: modelVersion,
		Metadata: DemandForecastMetadata{
			Points:        points,
			AnomalyCount:  anomalyCount,
			ForecastCount: len(points),
		},
	}, nil
}

// isAnomalous reports whether a forecast point deviates from its lower
// bound by more than the configured threshold. A zero-valued forecast
// cannot be divided into, so it is treated as anomalous whenever the
// bounds disagree at all rather than propagating a divide-by-zero.
func isAnomalous(forecast, lower float64) bool {
	if forecast == 0 {
		return lower != 0
	}
	deviation := absFloat(forecast-lower) / forecast * 100
	return deviation > anomalyDeviationThresholdPct
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
