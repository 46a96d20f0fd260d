package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/streadway/amqp"

	"eve.evalgo.org/internal/dispatcher"
	"eve.evalgo.org/internal/features"
	"eve.evalgo.org/internal/mlerrors"
	"eve.evalgo.org/internal/obslog"
	"eve.evalgo.org/internal/obsmetrics"
	"eve.evalgo.org/internal/registry"
)

// defaultRetrainThreshold is the dataset record count that triggers an
// automatic retraining job the first time it is crossed.
const defaultRetrainThreshold = 1000

// defaultDedupCapacity bounds the process-local idempotency set. Stronger
// durable deduplication across process restarts is not implemented; a
// duplicate that this bound lets through (or that arrives after a
// restart) is appended to the dataset a second time, since dataset
// appends are not idempotent.
const defaultDedupCapacity = 100_000

// DatasetAppender accumulates training records per family, satisfied by
// internal/datasetstore.Store.
type DatasetAppender interface {
	AppendRecords(ctx context.Context, family string, n int, occurredAt time.Time, isHoliday bool) (int, error)
}

// RetrainEnqueuer enqueues a training job, satisfied by
// internal/dispatcher.Queue.
type RetrainEnqueuer interface {
	Enqueue(ctx context.Context, job dispatcher.Job) error
}

// ActiveModelResolver looks up the family's current Active model so an
// auto-triggered retraining job can reference it, satisfied by
// internal/registry.Store.
type ActiveModelResolver interface {
	ActiveModel(family string) (*registry.Model, error)
}

// FamilyResolver maps a line item's product to the prediction family its
// demand history belongs to.
type FamilyResolver func(productID string) string

// Consumer ingests OrderCreated events, one per line item, into the
// training dataset, enforcing idempotency, validation, and the
// retraining-trigger threshold.
type Consumer struct {
	channel    AMQPChannel
	queueName  string
	datasets   DatasetAppender
	dispatcher RetrainEnqueuer
	models     ActiveModelResolver
	resolver   FamilyResolver
	holidays   features.Holidays
	threshold  int
	seen       *lru.Cache[string, struct{}]
	metrics    *obsmetrics.Metrics
}

// NewConsumer builds a Consumer bound to an already-declared queue
// channel. threshold<=0 defaults to 1000.
func NewConsumer(channel AMQPChannel, queueName string, datasets DatasetAppender, dispatcher RetrainEnqueuer, models ActiveModelResolver, resolver FamilyResolver, holidays features.Holidays, threshold int, metrics *obsmetrics.Metrics) (*Consumer, error) {
	if threshold <= 0 {
		threshold = defaultRetrainThreshold
	}
	seen, err := lru.New[string, struct{}](defaultDedupCapacity)
	if err != nil {
		return nil, fmt.Errorf("construct dedup cache: %w", err)
	}
	return &Consumer{
		channel:    channel,
		queueName:  queueName,
		datasets:   datasets,
		dispatcher: dispatcher,
		models:     models,
		resolver:   resolver,
		holidays:   holidays,
		threshold:  threshold,
		seen:       seen,
		metrics:    metrics,
	}, nil
}

// Run consumes deliveries until ctx is cancelled or the delivery channel
// closes. Deliveries are acked after successful processing; a malformed
// payload is also acked (never re-raised, to avoid a poison-pill loop),
// while a transport-level failure to process is nacked with requeue so
// the broker retries per its own policy.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", c.queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var order OrderCreated
	if err := json.Unmarshal(d.Body, &order); err != nil {
		obslog.Logger.WithError(err).Warn("discarding order event with unparseable body")
		if c.metrics != nil {
			c.metrics.EventMalformed.WithLabelValues("unknown").Inc()
		}
		d.Ack(false)
		return
	}

	if err := c.Ingest(ctx, order); err != nil {
		if mlerrors.Is(err, mlerrors.KindMalformedEvent) {
			obslog.Logger.WithError(err).WithField("message_id", order.MessageID).Warn("discarding malformed order event")
			d.Ack(false)
			return
		}
		obslog.Logger.WithError(err).WithField("message_id", order.MessageID).Error("order event processing failed, requeuing for broker retry")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// Ingest validates, deduplicates, and folds order into the training
// dataset, enqueuing a retraining job if the family's record count
// crosses the configured threshold. Exported so tests and a
// non-AMQP-backed caller can drive it directly without a live broker.
func (c *Consumer) Ingest(ctx context.Context, order OrderCreated) error {
	if err := order.Validate(); err != nil {
		return err
	}

	if _, duplicate := c.seen.Get(order.MessageID); duplicate {
		if c.metrics != nil {
			c.metrics.EventDuplicates.WithLabelValues("order").Inc()
		}
		return nil
	}

	byFamily := map[string]int{}
	for _, item := range order.Items {
		family := c.resolver(item.ProductID)
		byFamily[family]++
	}

	isHoliday := c.holidays[order.CreatedAt.Format("01-02")]

	for family, count := range byFamily {
		total, err := c.datasets.AppendRecords(ctx, family, count, order.CreatedAt, isHoliday)
		if err != nil {
			return fmt.Errorf("append records for family %s: %w", family, err)
		}
		if c.metrics != nil {
			c.metrics.EventIngested.WithLabelValues(family).Add(float64(count))
		}
		if total >= c.threshold && total-count < c.threshold {
			if err := c.enqueueRetrain(ctx, family); err != nil {
				obslog.ForFamily(family).WithError(err).Warn("failed to enqueue retraining job after crossing dataset threshold")
			}
		}
	}

	c.seen.Add(order.MessageID, struct{}{})
	return nil
}

// enqueueRetrain resolves family's current Active model, if any, and
// enqueues a retraining job referencing it. A family with no Active
// model yet (first-ever training) is enqueued with an empty ModelID; the
// dispatcher consumer skips jobs whose model lookup misses, logging the
// gap for an operator to seed an initial model.
func (c *Consumer) enqueueRetrain(ctx context.Context, family string) error {
	modelID := ""
	if active, err := c.models.ActiveModel(family); err == nil && active != nil {
		modelID = active.ID
	}
	return c.dispatcher.Enqueue(ctx, dispatcher.Job{ModelID: modelID, Family: family})
}
