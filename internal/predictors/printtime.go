package predictors

import (
	"fmt"

	"eve.evalgo.org/internal/features"
)

// PrintTimeInputs is the validated request for the print-time family,
// combining parsed STL geometry with the printer/material parameters that
// influence duration.
type PrintTimeInputs struct {
	Geometry    features.Geometry
	Material    string
	Density     float64
	Printer     string
	Speed       float64
	LayerHeight float64
	NozzleTemp  float64
	BedTemp     float64
	Infill      float64
}

// PrintTimeMetadata carries the STL-derived and process fields surfaced
// alongside a print-time prediction.
type PrintTimeMetadata struct {
	Volume            float64
	SurfaceArea       float64
	LayerCount        int
	SupportPercentage float64
	ComplexityScore   float64
	Material          string
	Infill            float64
}

func (m PrintTimeMetadata) ToMap() map[string]any {
	return map[string]any{
		"volume":             m.Volume,
		"surface_area":       m.SurfaceArea,
		"layer_count":        m.LayerCount,
		"support_percentage": m.SupportPercentage,
		"complexity_score":   m.ComplexityScore,
		"material":           m.Material,
		"infill":             m.Infill,
	}
}

// PrintTimeModel is the model-specific surface a loaded print-time model
// handle must expose: minutes predicted for a given geometry and process
// parameter set. The concrete implementation lives behind
// internal/modelstore's deserializer and is opaque here.
type PrintTimeModel interface {
	PredictMinutes(in PrintTimeInputs) (float64, error)
}

const printTimeConfidenceMargin = 0.15

// PredictPrintTime invokes model on in and derives the normalized result,
// including the ±15% confidence band clamped at zero and an explanation
// naming the dominant geometric and process features.
func PredictPrintTime(model PrintTimeModel, in PrintTimeInputs, modelVersion string) (Result, error) {
	predicted, err := model.PredictMinutes(in)
	if err != nil {
		return Result{}, err
	}

	margin := predicted * printTimeConfidenceMargin
	lower := clampNonNegative(predicted - margin)
	upper := predicted + margin

	explanation := fmt.Sprintf(
		"dominant features: volume=%.1fcm3, layers=%d, support=%.0f%%, complexity=%.0f, speed=%.0fmm/s, infill=%.0f%%",
		in.Geometry.Volume, in.Geometry.LayerCount, in.Geometry.SupportPercentage,
		in.Geometry.ComplexityScore, in.Speed, in.Infill,
	)

	return Result{
		Predicted:    predicted,
		Unit:         "minutes",
		LowerBound:   lower,
		UpperBound:   upper,
		Explanation:  explanation,
		ModelVersion: modelVersion,
		Metadata: PrintTimeMetadata{
			Volume:            in.Geometry.Volume,
			SurfaceArea:       in.Geometry.SurfaceArea,
			LayerCount:        in.Geometry.LayerCount,
			SupportPercentage: in.Geometry.SupportPercentage,
			ComplexityScore:   in.Geometry.ComplexityScore,
			Material:          in.Material,
			Infill:            in.Infill,
		},
	}, nil
}
