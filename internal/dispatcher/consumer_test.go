package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"eve.evalgo.org/internal/registry"
)

type fakeModelLookup struct {
	models map[string]*registry.Model
}

func (f fakeModelLookup) Get(id string) (*registry.Model, error) {
	return f.models[id], nil
}

type fakeDatasetLookup struct {
	handle string
	found  bool
}

func (f fakeDatasetLookup) LatestDatasetHandle(ctx context.Context, family string) (string, bool, error) {
	return f.handle, f.found, nil
}

type fakeTrainer struct {
	artifact []byte
	version  string
	metrics  registry.Metrics
	err      error
}

func (f fakeTrainer) Train(ctx context.Context, family, datasetHandle string) ([]byte, string, registry.Metrics, error) {
	return f.artifact, f.version, f.metrics, f.err
}

type fakeArtifactPersister struct {
	handle string
}

func (f fakeArtifactPersister) Persist(ctx context.Context, artifact []byte, family, version string) (string, error) {
	return f.handle, nil
}

type fakePromoter struct {
	promoted *registry.Model
}

func (f *fakePromoter) PromoteActive(ctx context.Context, newModel *registry.Model) error {
	f.promoted = newModel
	return nil
}

type recordedLineage struct {
	modelID       string
	trainingJobID string
	family        string
	datasetHandle string
}

type fakeLineageRecorder struct {
	recorded *recordedLineage
}

func (f *fakeLineageRecorder) RecordTraining(ctx context.Context, modelID, trainingJobID, family, datasetHandle string) error {
	f.recorded = &recordedLineage{modelID: modelID, trainingJobID: trainingJobID, family: family, datasetHandle: datasetHandle}
	return nil
}

func TestConsumerRunJobHappyPath(t *testing.T) {
	models := fakeModelLookup{models: map[string]*registry.Model{
		"m1": {ID: "m1", Family: "PrintTime"},
	}}
	datasets := fakeDatasetLookup{handle: "dataset-1", found: true}
	trainer := fakeTrainer{artifact: []byte("trained"), version: "1.0.1", metrics: registry.Metrics{R2: 0.9}}
	store := fakeArtifactPersister{handle: "handle-1"}
	promoter := &fakePromoter{}

	c := NewConsumer(nil, models, datasets, trainer, store, promoter, nil, nil)

	err := c.runJob(context.Background(), Job{ModelID: "m1", Family: "PrintTime"})
	require.NoError(t, err)
	require.NotNil(t, promoter.promoted)
	require.Equal(t, "handle-1", promoter.promoted.ArtifactHandle)
	require.Equal(t, 0.9, promoter.promoted.Metrics.R2)
	require.NotNil(t, promoter.promoted.TrainingJobID)
}

func TestConsumerRunJobRecordsLineageAfterPromotion(t *testing.T) {
	models := fakeModelLookup{models: map[string]*registry.Model{
		"m1": {ID: "m1", Family: "PrintTime"},
	}}
	datasets := fakeDatasetLookup{handle: "dataset-1", found: true}
	trainer := fakeTrainer{artifact: []byte("trained"), version: "1.0.1"}
	store := fakeArtifactPersister{handle: "handle-1"}
	promoter := &fakePromoter{}
	lineage := &fakeLineageRecorder{}

	c := NewConsumer(nil, models, datasets, trainer, store, promoter, lineage, nil)

	err := c.runJob(context.Background(), Job{ModelID: "m1", Family: "PrintTime"})
	require.NoError(t, err)
	require.NotNil(t, lineage.recorded)
	require.Equal(t, "m1", lineage.recorded.modelID)
	require.Equal(t, "PrintTime", lineage.recorded.family)
	require.Equal(t, "dataset-1", lineage.recorded.datasetHandle)
	require.NotEmpty(t, lineage.recorded.trainingJobID)
	require.NotNil(t, promoter.promoted.TrainingJobID)
	require.Equal(t, lineage.recorded.trainingJobID, *promoter.promoted.TrainingJobID)
}

func TestConsumerRunJobSkipsWhenModelMissing(t *testing.T) {
	models := fakeModelLookup{models: map[string]*registry.Model{}}
	datasets := fakeDatasetLookup{found: true}
	promoter := &fakePromoter{}

	c := NewConsumer(nil, models, datasets, fakeTrainer{}, fakeArtifactPersister{}, promoter, nil, nil)

	err := c.runJob(context.Background(), Job{ModelID: "missing", Family: "PrintTime"})
	require.NoError(t, err)
	require.Nil(t, promoter.promoted)
}

func TestConsumerRunJobSkipsWhenNoDataset(t *testing.T) {
	models := fakeModelLookup{models: map[string]*registry.Model{
		"m1": {ID: "m1", Family: "PrintTime"},
	}}
	datasets := fakeDatasetLookup{found: false}
	promoter := &fakePromoter{}

	c := NewConsumer(nil, models, datasets, fakeTrainer{}, fakeArtifactPersister{}, promoter, nil, nil)

	err := c.runJob(context.Background(), Job{ModelID: "m1", Family: "PrintTime"})
	require.NoError(t, err)
	require.Nil(t, promoter.promoted)
}
