package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eve.evalgo.org/internal/obslog"
	"eve.evalgo.org/internal/obsmetrics"
	"eve.evalgo.org/internal/registry"
)

const jobTimeout = 30 * time.Minute

// ModelLookup resolves a model by id, satisfied by *registry.Store.
type ModelLookup interface {
	Get(id string) (*registry.Model, error)
}

// DatasetLookup resolves the most recent training dataset handle for a
// family, satisfied by internal/datasetstore.
type DatasetLookup interface {
	LatestDatasetHandle(ctx context.Context, family string) (handle string, found bool, err error)
}

// ArtifactPersister persists a new model artifact, satisfied by
// internal/modelstore.ArtifactStore.
type ArtifactPersister interface {
	Persist(ctx context.Context, artifact []byte, family, version string) (handle string, err error)
}

// ActivePromoter runs the active-swap protocol, satisfied by
// internal/lifecycle.Manager.
type ActivePromoter interface {
	PromoteActive(ctx context.Context, newModel *registry.Model) error
}

// LineageRecorder records the supplementary Model->TrainingJob->Dataset
// provenance graph, satisfied by internal/lineage.Graph. Optional: a nil
// LineageRecorder disables provenance recording without affecting
// training itself.
type LineageRecorder interface {
	RecordTraining(ctx context.Context, modelID, trainingJobID, family, datasetHandle string) error
}

// Trainer invokes a family's training algorithm over a dataset and
// produces a new artifact plus its performance metrics. The concrete
// algorithm (gradient-boosted trees, singular-spectrum analysis, ...) is
// a capability consumed here, not specified by this package.
type Trainer interface {
	Train(ctx context.Context, family, datasetHandle string) (artifact []byte, version string, metrics registry.Metrics, err error)
}

// Consumer implements the single-consumer training job loop: exactly one
// goroutine calls Run, mirroring worker/pool.go's Worker.processNext but
// configured to a single worker per the dispatcher's single-consumer
// requirement, and generalized from its queue-name-keyed jobs to this
// package's fixed (modelID, family) job shape.
type Consumer struct {
	queue    *Queue
	models   ModelLookup
	datasets DatasetLookup
	trainer  Trainer
	store    ArtifactPersister
	promoter ActivePromoter
	lineage  LineageRecorder
	metrics  *obsmetrics.Metrics
}

// NewConsumer builds a Consumer wiring every collaborator the training
// pipeline needs. lineage may be nil, disabling provenance recording.
func NewConsumer(queue *Queue, models ModelLookup, datasets DatasetLookup, trainer Trainer, store ArtifactPersister, promoter ActivePromoter, lineage LineageRecorder, metrics *obsmetrics.Metrics) *Consumer {
	return &Consumer{queue: queue, models: models, datasets: datasets, trainer: trainer, store: store, promoter: promoter, lineage: lineage, metrics: metrics}
}

// Run blocks, dequeuing and processing jobs one at a time (FIFO by
// enqueue order) until ctx is cancelled. There must be exactly one caller
// of Run across the process for the single-consumer guarantee to hold.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := c.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			obslog.Logger.WithError(err).Error("dispatcher dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		c.processJob(ctx, *job)
	}
}

func (c *Consumer) processJob(ctx context.Context, job Job) {
	started := time.Now()
	deadline := started.Add(jobTimeout)
	if err := c.queue.MarkProcessing(ctx, job.ModelID, deadline); err != nil {
		obslog.ForFamily(job.Family).WithError(err).Warn("failed to mark job processing")
	}
	defer func() {
		if err := c.queue.CompleteJob(ctx, job.ModelID); err != nil {
			obslog.ForFamily(job.Family).WithError(err).Warn("failed to clear job from processing set")
		}
	}()

	jobCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if err := c.runJob(jobCtx, job); err != nil {
		obslog.ForFamily(job.Family).WithError(err).WithField("model_id", job.ModelID).Error("training job failed, not retried automatically")
		if c.metrics != nil {
			c.metrics.RecordDispatcherJob(job.Family, "failed", time.Since(started))
		}
		return
	}
	if c.metrics != nil {
		c.metrics.RecordDispatcherJob(job.Family, "completed", time.Since(started))
	}
}

func (c *Consumer) runJob(ctx context.Context, job Job) error {
	model, err := c.models.Get(job.ModelID)
	if err != nil {
		return fmt.Errorf("look up model %s: %w", job.ModelID, err)
	}
	if model == nil {
		obslog.ForFamily(job.Family).WithField("model_id", job.ModelID).Warn("model not found, skipping job")
		return nil
	}

	datasetHandle, found, err := c.datasets.LatestDatasetHandle(ctx, job.Family)
	if err != nil {
		return fmt.Errorf("look up latest dataset for family %s: %w", job.Family, err)
	}
	if !found {
		obslog.ForFamily(job.Family).Warn("no dataset available, skipping job")
		return nil
	}

	artifact, version, metrics, err := c.trainer.Train(ctx, job.Family, datasetHandle)
	if err != nil {
		return fmt.Errorf("train family %s: %w", job.Family, err)
	}

	handle, err := c.store.Persist(ctx, artifact, job.Family, version)
	if err != nil {
		return fmt.Errorf("persist trained artifact for family %s: %w", job.Family, err)
	}

	now := time.Now()
	trainingJobID := uuid.NewString()
	model.ArtifactHandle = handle
	model.Metrics = metrics
	model.TrainingDate = now
	model.TrainingJobID = &trainingJobID

	if err := c.promoter.PromoteActive(ctx, model); err != nil {
		return fmt.Errorf("promote newly trained model active for family %s: %w", job.Family, err)
	}

	if c.lineage != nil {
		if err := c.lineage.RecordTraining(ctx, model.ID, trainingJobID, job.Family, datasetHandle); err != nil {
			obslog.ForFamily(job.Family).WithError(err).Warn("lineage recording failed, provenance graph is supplementary")
		}
	}
	return nil
}
