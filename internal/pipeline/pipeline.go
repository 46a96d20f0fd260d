// Package pipeline implements the central prediction algorithm: validate,
// resolve the active model, compute a cache key, check the cache, load the
// model, extract features and invoke the predictor, write the cache, and
// append an audit record — with single-flight deduplication across
// concurrent identical requests.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"eve.evalgo.org/internal/audit"
	"eve.evalgo.org/internal/cache"
	"eve.evalgo.org/internal/cachekey"
	"eve.evalgo.org/internal/mlerrors"
	"eve.evalgo.org/internal/modelstore"
	"eve.evalgo.org/internal/obslog"
	"eve.evalgo.org/internal/obsmetrics"
	"eve.evalgo.org/internal/predictors"
	"eve.evalgo.org/internal/registry"
)

// ActiveModelResolver resolves the current Active model for a family,
// satisfied by internal/registry.Store.
type ActiveModelResolver interface {
	ActiveModel(family string) (*registry.Model, error)
}

// AuditAppender persists one prediction audit record, satisfied by
// internal/audit.Log. Narrowed to a single method so tests can exercise
// Predict's audit-writing behavior without a live Postgres pool.
type AuditAppender interface {
	Append(ctx context.Context, r audit.Record) error
}

// FamilyHandler is the per-family plumbing the Pipeline is generic over:
// validating a family's request shape, deriving the cache-key inputs,
// supplying the model deserializer, and invoking the family's predictor.
// One implementation exists per prediction family (PrintTime,
// DemandForecast, ...).
type FamilyHandler interface {
	Family() string
	Validate(req any) error
	CacheInputs(req any) cachekey.Inputs
	Deserializer() modelstore.Deserializer
	Predict(ctx context.Context, req any, modelPayload any, modelVersion string) (predictors.Result, error)
}

// Response is the normalized, cacheable prediction response returned to
// callers regardless of family.
type Response struct {
	Family       string         `json:"family"`
	Predicted    float64        `json:"predicted"`
	Unit         string         `json:"unit"`
	LowerBound   float64        `json:"lowerBound"`
	UpperBound   float64        `json:"upperBound"`
	Explanation  string         `json:"explanation"`
	ModelVersion string         `json:"modelVersion"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CacheStatus  string         `json:"cacheStatus"`
}

// Pipeline orchestrates a prediction request end to end.
type Pipeline struct {
	registry ActiveModelResolver
	cache    cache.Adapter
	models   *modelstore.ModelCache
	audit    AuditAppender
	ttls     map[string]time.Duration
	handlers map[string]FamilyHandler
	metrics  *obsmetrics.Metrics
	group    singleflight.Group
}

// New builds a Pipeline wiring every collaborator a prediction needs.
// ttls maps family name to cache TTL (internal/config.FamilyTTLs).
func New(registryStore ActiveModelResolver, cacheAdapter cache.Adapter, models *modelstore.ModelCache, auditLog AuditAppender, ttls map[string]time.Duration, metrics *obsmetrics.Metrics) *Pipeline {
	return &Pipeline{
		registry: registryStore,
		cache:    cacheAdapter,
		models:   models,
		audit:    auditLog,
		ttls:     ttls,
		handlers: map[string]FamilyHandler{},
		metrics:  metrics,
	}
}

// Register adds a family's handler. Call once per family at startup.
func (p *Pipeline) Register(h FamilyHandler) {
	p.handlers[h.Family()] = h
}

// Predict runs the full algorithm for one request. correlationID and
// userID are carried onto the audit record; userID may be empty for
// unauthenticated internal callers.
func (p *Pipeline) Predict(ctx context.Context, family string, req any, userID, correlationID string) (Response, error) {
	started := time.Now()

	handler, ok := p.handlers[family]
	if !ok {
		return Response{}, mlerrors.Unavailable(family)
	}

	if err := handler.Validate(req); err != nil {
		if p.metrics != nil {
			p.metrics.RecordPredictionError(family, mlerrors.KindValidation.String())
		}
		return Response{}, mlerrors.Wrap(mlerrors.KindValidation, "request validation failed", err)
	}

	model, err := p.registry.ActiveModel(family)
	if err != nil {
		return Response{}, fmt.Errorf("resolve active model for family %s: %w", family, err)
	}
	if model == nil {
		if p.metrics != nil {
			p.metrics.RecordPredictionError(family, mlerrors.KindUnavailable.String())
		}
		return Response{}, mlerrors.Unavailable(family)
	}

	inputs := handler.CacheInputs(req)
	key := cachekey.Key(family, inputs, model.Version())

	// Shared across every concurrent caller with an identical key: at most
	// one predictor invocation proceeds (P5); each caller below still
	// records its own audit entry, so the audit count matches the number
	// of callers even though compute happened once.
	shared, err, _ := p.group.Do(key, func() (any, error) {
		return p.resolve(ctx, family, handler, req, model, key)
	})

	p.recordMetrics(family, cacheStatusLabel(shared, err), started)

	if err != nil {
		predErr, ok := err.(*mlerrors.Error)
		if ok && predErr.Kind == mlerrors.KindFatal {
			msg := predErr.Error()
			p.appendAudit(ctx, family, model.Version(), inputs, Response{Family: family, ModelVersion: model.Version()}, audit.CacheFailure, userID, correlationID, started, &msg)
		}
		if p.metrics != nil {
			kind := mlerrors.KindFatal
			if ok {
				kind = predErr.Kind
			}
			p.metrics.RecordPredictionError(family, kind.String())
		}
		return Response{}, err
	}

	resp := shared.(Response)
	status := audit.CacheSuccess
	if resp.CacheStatus == "hit" {
		status = audit.CacheHit
	}
	p.appendAudit(ctx, family, model.Version(), inputs, resp, status, userID, correlationID, started, nil)
	return resp, nil
}

func cacheStatusLabel(shared any, err error) string {
	if err != nil {
		return "error"
	}
	resp, ok := shared.(Response)
	if !ok {
		return "error"
	}
	return resp.CacheStatus
}

// resolve performs the cache-lookup/compute/cache-write sequence for one
// cache key; concurrent identical requests share this single call via the
// singleflight group in Predict. Audit recording happens in Predict, once
// per caller, not once per call to resolve.
func (p *Pipeline) resolve(ctx context.Context, family string, handler FamilyHandler, req any, model *registry.Model, key string) (Response, error) {
	ttl := p.ttls[family]

	if cached, ok := p.cacheGet(ctx, family, key); ok {
		cached.CacheStatus = "hit"
		return cached, nil
	}

	handle, err := p.models.Load(ctx, model.ArtifactHandle, family)
	if err != nil {
		return Response{}, mlerrors.Wrap(mlerrors.KindFatal, "load model artifact", err)
	}

	result, err := handler.Predict(ctx, req, handle.Payload, model.Version())
	if err != nil {
		return Response{}, mlerrors.Wrap(mlerrors.KindFatal, "predictor invocation failed", err)
	}

	resp := Response{
		Family:       family,
		Predicted:    result.Predicted,
		Unit:         result.Unit,
		LowerBound:   result.LowerBound,
		UpperBound:   result.UpperBound,
		Explanation:  result.Explanation,
		ModelVersion: result.ModelVersion,
		CacheStatus:  "miss",
	}
	if result.Metadata != nil {
		resp.Metadata = result.Metadata.ToMap()
	}

	p.cacheSet(ctx, family, key, resp, ttl)
	return resp, nil
}

// cacheGet looks up key and decodes it into a Response. Any cache
// failure (transport error, corrupt payload) is logged and treated as a
// miss rather than propagated, per the cache/audit/metrics
// logged-and-swallowed failure semantics.
func (p *Pipeline) cacheGet(ctx context.Context, family, key string) (Response, bool) {
	raw, err := p.cache.Get(ctx, key)
	if err != nil {
		obslog.ForFamily(family).WithError(err).Warn("cache lookup failed, treating as miss")
		return Response{}, false
	}
	if raw == nil {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		obslog.ForFamily(family).WithError(err).Warn("cached payload unreadable, treating as miss")
		return Response{}, false
	}
	return resp, true
}

func (p *Pipeline) cacheSet(ctx context.Context, family, key string, resp Response, ttl time.Duration) {
	raw, err := json.Marshal(resp)
	if err != nil {
		obslog.ForFamily(family).WithError(err).Warn("failed to marshal response for caching")
		return
	}
	if err := p.cache.Set(ctx, key, raw, int(ttl.Seconds())); err != nil {
		obslog.ForFamily(family).WithError(err).Warn("failed to write prediction to cache")
	}
}

func (p *Pipeline) recordMetrics(family, status string, started time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordPrediction(family, status, time.Since(started))
}

func (p *Pipeline) appendAudit(ctx context.Context, family, modelVersion string, inputs cachekey.Inputs, resp Response, status audit.CacheStatus, userID, correlationID string, started time.Time, errMsg *string) {
	if p.audit == nil {
		return
	}
	var userIDPtr *string
	if userID != "" {
		userIDPtr = &userID
	}
	record := audit.Record{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Family:        family,
		ModelVersion:  modelVersion,
		InputFeatures: map[string]any(inputs),
		OutputPrediction: map[string]any{
			"predicted":   resp.Predicted,
			"unit":        resp.Unit,
			"lowerBound":  resp.LowerBound,
			"upperBound":  resp.UpperBound,
			"explanation": resp.Explanation,
		},
		CacheStatus:    status,
		ResponseTimeMS: time.Since(started).Milliseconds(),
		UserID:         userIDPtr,
		Timestamp:      time.Now(),
		ErrorMessage:   errMsg,
	}
	if err := p.audit.Append(ctx, record); err != nil {
		obslog.ForFamily(family).WithError(err).Warn("failed to append audit record, prediction still served")
	}
}
