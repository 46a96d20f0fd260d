package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"eve.evalgo.org/internal/cachekey"
	"eve.evalgo.org/internal/features"
	"eve.evalgo.org/internal/mlerrors"
	"eve.evalgo.org/internal/modelstore"
	"eve.evalgo.org/internal/predictors"
)

// maxSTLBytes is the request-surface size limit on an uploaded geometry
// file; a larger upload is a Validation error, not an attempt to parse.
const maxSTLBytes = 50 * 1024 * 1024

var validMaterials = map[string]bool{
	"PLA": true, "ABS": true, "PETG": true, "TPU": true,
	"Nylon": true, "HIPS": true, "ASA": true, "PC": true,
}

// PrintTimeRequest is the print-time family's request surface.
type PrintTimeRequest struct {
	Geometry    []byte
	Material    string
	Density     float64
	Printer     string
	Speed       float64
	LayerHeight float64
	NozzleTemp  float64
	BedTemp     float64
	Infill      float64
}

// LinearPrintTimeModel is the deserialized print-time model payload: a
// linear combination of geometry and process features. A concrete
// gradient-boosted or neural model trained offline would deserialize into
// the same PrintTimeModel interface; this linear form is what the
// service's own trainer produces absent a bound ML-runtime dependency in
// the surrounding stack.
type LinearPrintTimeModel struct {
	Intercept           float64 `json:"intercept"`
	VolumeCoefficient   float64 `json:"volumeCoefficient"`
	SupportCoefficient  float64 `json:"supportCoefficient"`
	ComplexCoefficient  float64 `json:"complexCoefficient"`
	SpeedCoefficient    float64 `json:"speedCoefficient"`
	InfillCoefficient   float64 `json:"infillCoefficient"`
}

// PredictMinutes implements predictors.PrintTimeModel.
func (m LinearPrintTimeModel) PredictMinutes(in predictors.PrintTimeInputs) (float64, error) {
	speedFactor := 0.0
	if in.Speed > 0 {
		speedFactor = m.SpeedCoefficient / in.Speed
	}
	minutes := m.Intercept +
		m.VolumeCoefficient*in.Geometry.Volume +
		m.SupportCoefficient*in.Geometry.SupportPercentage +
		m.ComplexCoefficient*in.Geometry.ComplexityScore +
		m.InfillCoefficient*in.Infill +
		speedFactor
	if minutes < 0 {
		minutes = 0
	}
	return minutes, nil
}

// PrintTimeHandler adapts PrintTimeRequest to the Pipeline's FamilyHandler
// contract.
type PrintTimeHandler struct{}

func (PrintTimeHandler) Family() string { return "PrintTime" }

// Validate enforces the print-time request surface's constraints. STL
// geometry that fails to parse (bad triangle count, truncated body) is
// also a Validation error here: a malformed upload is a client mistake,
// not a predictor fault.
func (PrintTimeHandler) Validate(req any) error {
	r, ok := req.(PrintTimeRequest)
	if !ok {
		return mlerrors.Validation("unexpected request type for PrintTime")
	}
	var msgs []string
	if len(r.Geometry) == 0 {
		msgs = append(msgs, "geometry is required")
	}
	if len(r.Geometry) > maxSTLBytes {
		msgs = append(msgs, "geometry exceeds 50MB limit")
	}
	if !validMaterials[r.Material] {
		msgs = append(msgs, "material must be one of PLA, ABS, PETG, TPU, Nylon, HIPS, ASA, PC")
	}
	if r.Density <= 0 || r.Density > 20 {
		msgs = append(msgs, "density must be in (0,20] g/cm3")
	}
	if len(r.Printer) == 0 || len(r.Printer) > 100 {
		msgs = append(msgs, "printer must be 1-100 characters")
	}
	if r.Speed <= 0 || r.Speed > 500 {
		msgs = append(msgs, "speed must be in (0,500] mm/s")
	}
	if r.LayerHeight <= 0 || r.LayerHeight > 1 {
		msgs = append(msgs, "layerHeight must be in (0,1] mm")
	}
	if r.NozzleTemp < 150 || r.NozzleTemp > 300 {
		msgs = append(msgs, "nozzleTemp must be in [150,300] C")
	}
	if r.BedTemp < 0 || r.BedTemp > 150 {
		msgs = append(msgs, "bedTemp must be in [0,150] C")
	}
	if r.Infill < 0 || r.Infill > 100 {
		msgs = append(msgs, "infill must be in [0,100] %")
	}
	if len(msgs) > 0 {
		return mlerrors.Validation(msgs...)
	}
	if _, err := features.ParseSTL(r.Geometry); err != nil {
		return mlerrors.Wrap(mlerrors.KindValidation, "geometry is not a valid binary STL", err)
	}
	return nil
}

// CacheInputs hashes the raw STL bytes rather than re-deriving features,
// so the cache key for a given upload is stable and cheap to compute.
func (PrintTimeHandler) CacheInputs(req any) cachekey.Inputs {
	r := req.(PrintTimeRequest)
	sum := sha256.Sum256(r.Geometry)
	return cachekey.Inputs{
		"geometryHash": hex.EncodeToString(sum[:]),
		"material":     r.Material,
		"density":      r.Density,
		"printer":      r.Printer,
		"speed":        r.Speed,
		"layerHeight":  r.LayerHeight,
		"nozzleTemp":   r.NozzleTemp,
		"bedTemp":      r.BedTemp,
		"infill":       r.Infill,
	}
}

// Deserializer turns a persisted artifact into a LinearPrintTimeModel.
func (PrintTimeHandler) Deserializer() modelstore.Deserializer {
	return func(artifact []byte, family string) (any, error) {
		var m LinearPrintTimeModel
		if err := json.Unmarshal(artifact, &m); err != nil {
			return nil, fmt.Errorf("deserialize print-time model: %w", err)
		}
		return m, nil
	}
}

func (PrintTimeHandler) Predict(ctx context.Context, req any, modelPayload any, modelVersion string) (predictors.Result, error) {
	r := req.(PrintTimeRequest)
	model, ok := modelPayload.(LinearPrintTimeModel)
	if !ok {
		return predictors.Result{}, fmt.Errorf("print-time model payload has unexpected type %T", modelPayload)
	}
	geometry, err := features.ParseSTL(r.Geometry)
	if err != nil {
		return predictors.Result{}, fmt.Errorf("parse geometry: %w", err)
	}
	inputs := predictors.PrintTimeInputs{
		Geometry:    geometry,
		Material:    r.Material,
		Density:     r.Density,
		Printer:     r.Printer,
		Speed:       r.Speed,
		LayerHeight: r.LayerHeight,
		NozzleTemp:  r.NozzleTemp,
		BedTemp:     r.BedTemp,
		Infill:      r.Infill,
	}
	return predictors.PredictPrintTime(model, inputs, modelVersion)
}

var _ FamilyHandler = PrintTimeHandler{}
