// Package modelstore persists and loads serialized model artifacts, plus
// maintains a process-local, size- and time-bounded in-memory cache of
// deserialized model handles.
package modelstore

import "context"

// ArtifactStore persists and loads opaque model artifact bytes. Handles are
// opaque strings understood only by the concrete backend (here, S3 object
// keys) and are stored by the Model Registry alongside each Model entity.
type ArtifactStore interface {
	Persist(ctx context.Context, artifact []byte, family, version string) (handle string, err error)
	Load(ctx context.Context, handle string) (artifact []byte, lastModifiedUnix int64, err error)
}

// Model is the deserialized, in-memory representation of a persisted
// artifact, ready for a Predictor to invoke. Deserialize is supplied by
// callers (internal/predictors) so modelstore stays agnostic of the
// concrete model format per family.
type Model struct {
	Handle  string
	Version string
	Family  string
	Payload any
}
