package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"eve.evalgo.org/internal/cachekey"
	"eve.evalgo.org/internal/mlerrors"
	"eve.evalgo.org/internal/modelstore"
	"eve.evalgo.org/internal/predictors"
)

var productIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)

var validHorizons = map[int]bool{7: true, 30: true, 90: true}

const baselineLookbackYears = 2

// DemandForecastRequest is the demand-forecast family's request surface.
type DemandForecastRequest struct {
	ProductID    string
	Horizon      int
	Granularity  predictors.Granularity
	BaselineDate time.Time
	Now          time.Time // supplied by the caller; defaults to time.Now when zero
}

// DenseForecastModel is the deserialized demand-forecast model payload: a
// dense daily array of point forecasts and bounds anchored at a reference
// date, sampled at whatever stride a request's granularity calls for.
type DenseForecastModel struct {
	ReferenceDate time.Time `json:"referenceDate"`
	Forecast      []float64 `json:"forecast"`
	Lower         []float64 `json:"lower"`
	Upper         []float64 `json:"upper"`
}

// Forecast implements predictors.ForecastModel by slicing the dense series
// starting at the offset between baselineDate and the model's reference
// date. productID is unused by this single-series payload: a
// multi-product model would key its internal series by it instead.
func (m DenseForecastModel) Forecast(productID string, baselineDate time.Time, dailyLength int) ([]float64, []float64, []float64, error) {
	offset := int(baselineDate.Sub(m.ReferenceDate).Hours() / 24)
	if offset < 0 {
		return nil, nil, nil, fmt.Errorf("baseline date precedes model reference date")
	}
	end := offset + dailyLength
	if end > len(m.Forecast) {
		return nil, nil, nil, fmt.Errorf("model series too short: need %d points from offset %d, have %d", dailyLength, offset, len(m.Forecast))
	}
	return m.Forecast[offset:end], m.Lower[offset:end], m.Upper[offset:end], nil
}

// DemandForecastHandler adapts DemandForecastRequest to the Pipeline's
// FamilyHandler contract.
type DemandForecastHandler struct{}

func (DemandForecastHandler) Family() string { return "DemandForecast" }

// Validate enforces the demand-forecast request surface's constraints,
// including the weekly-granularity/short-horizon combination and the
// baseline date window.
func (DemandForecastHandler) Validate(req any) error {
	r, ok := req.(DemandForecastRequest)
	if !ok {
		return mlerrors.Validation("unexpected request type for DemandForecast")
	}
	now := r.Now
	if now.IsZero() {
		now = time.Now()
	}

	var msgs []string
	if !productIDPattern.MatchString(r.ProductID) {
		msgs = append(msgs, "productId must match [a-zA-Z0-9_-]{1,100}")
	}
	if !validHorizons[r.Horizon] {
		msgs = append(msgs, "horizon must be one of 7, 30, 90")
	}
	if r.Granularity != predictors.Daily && r.Granularity != predictors.Weekly {
		msgs = append(msgs, "granularity must be daily or weekly")
	}
	if r.Granularity == predictors.Weekly && r.Horizon < 30 {
		msgs = append(msgs, "weekly granularity requires horizon of at least 30")
	}
	if r.BaselineDate.After(now) {
		msgs = append(msgs, "baselineDate must not be in the future")
	}
	if r.BaselineDate.Before(now.AddDate(-baselineLookbackYears, 0, 0)) {
		msgs = append(msgs, "baselineDate must be within the last 2 years")
	}
	if len(msgs) > 0 {
		return mlerrors.Validation(msgs...)
	}
	return nil
}

func (DemandForecastHandler) CacheInputs(req any) cachekey.Inputs {
	r := req.(DemandForecastRequest)
	return cachekey.Inputs{
		"productId":    r.ProductID,
		"horizon":      r.Horizon,
		"granularity":  string(r.Granularity),
		"baselineDate": r.BaselineDate.Format("2006-01-02"),
	}
}

// Deserializer turns a persisted artifact into a DenseForecastModel.
func (DemandForecastHandler) Deserializer() modelstore.Deserializer {
	return func(artifact []byte, family string) (any, error) {
		var m DenseForecastModel
		if err := json.Unmarshal(artifact, &m); err != nil {
			return nil, fmt.Errorf("deserialize demand-forecast model: %w", err)
		}
		return m, nil
	}
}

func (DemandForecastHandler) Predict(ctx context.Context, req any, modelPayload any, modelVersion string) (predictors.Result, error) {
	r := req.(DemandForecastRequest)
	model, ok := modelPayload.(DenseForecastModel)
	if !ok {
		return predictors.Result{}, fmt.Errorf("demand-forecast model payload has unexpected type %T", modelPayload)
	}
	inputs := predictors.DemandForecastInputs{
		ProductID:    r.ProductID,
		Horizon:      r.Horizon,
		Granularity:  r.Granularity,
		BaselineDate: r.BaselineDate,
	}
	return predictors.PredictDemandForecast(model, inputs, modelVersion)
}

var _ FamilyHandler = DemandForecastHandler{}
