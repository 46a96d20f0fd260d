package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eve.evalgo.org/internal/pipeline"
	"eve.evalgo.org/internal/registry"
)

// baselineTrainer is the seam where a real trainer/predictor algorithm
// (gradient-boosted trees, singular-spectrum analysis) plugs in; the
// particular algorithm is an external capability this service consumes,
// not specified here. It fits a fixed baseline model per family so the
// dispatcher's training path is exercised end to end without a bound ML
// runtime dependency. Train only sees family and dataset handle, not the
// model id being promoted; dispatcher.Consumer.runJob records lineage
// against the resulting model id itself, after promotion succeeds.
type baselineTrainer struct{}

func newStubTrainer() *baselineTrainer {
	return &baselineTrainer{}
}

func (t *baselineTrainer) Train(ctx context.Context, family, datasetHandle string) ([]byte, string, registry.Metrics, error) {
	version := time.Now().UTC().Format("20060102150405")

	var artifact []byte
	var err error
	switch family {
	case "PrintTime":
		artifact, err = json.Marshal(pipeline.LinearPrintTimeModel{
			Intercept:          5,
			VolumeCoefficient:  0.02,
			SupportCoefficient: 0.5,
			ComplexCoefficient: 0.3,
			SpeedCoefficient:   1000,
			InfillCoefficient:  0.1,
		})
	case "DemandForecast":
		now := time.Now().UTC()
		length := 400
		series := make([]float64, length)
		bounds := make([]float64, length)
		for i := range series {
			series[i] = 10
			bounds[i] = 8
		}
		artifact, err = json.Marshal(pipeline.DenseForecastModel{
			ReferenceDate: now,
			Forecast:      series,
			Lower:         bounds,
			Upper:         series,
		})
	default:
		return nil, "", registry.Metrics{}, fmt.Errorf("no baseline trainer registered for family %q", family)
	}
	if err != nil {
		return nil, "", registry.Metrics{}, fmt.Errorf("marshal baseline artifact for family %s: %w", family, err)
	}

	return artifact, version, registry.Metrics{}, nil
}
