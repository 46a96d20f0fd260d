package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eve.evalgo.org/internal/dispatcher"
	"eve.evalgo.org/internal/features"
	"eve.evalgo.org/internal/registry"
)

type fakeDatasetAppender struct {
	counts map[string]int
}

func newFakeDatasetAppender() *fakeDatasetAppender {
	return &fakeDatasetAppender{counts: map[string]int{}}
}

func (f *fakeDatasetAppender) AppendRecords(ctx context.Context, family string, n int, occurredAt time.Time, isHoliday bool) (int, error) {
	f.counts[family] += n
	return f.counts[family], nil
}

type fakeRetrainEnqueuer struct {
	jobs []dispatcher.Job
}

func (f *fakeRetrainEnqueuer) Enqueue(ctx context.Context, job dispatcher.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeActiveModelResolver struct{}

func (fakeActiveModelResolver) ActiveModel(family string) (*registry.Model, error) {
	return nil, nil
}

func fixedFamilyResolver(family string) FamilyResolver {
	return func(productID string) string { return family }
}

func validOrder(messageID string) OrderCreated {
	return OrderCreated{
		MessageID:  messageID,
		OrderID:    "order-1",
		CustomerID: "cust-1",
		Items: []OrderLineItem{
			{ProductID: "widget", Quantity: 2, UnitPrice: 5, LineTotal: 10},
		},
		CreatedAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestIngestAppendsOneRecordPerLineItem(t *testing.T) {
	datasets := newFakeDatasetAppender()
	dispatch := &fakeRetrainEnqueuer{}
	c, err := NewConsumer(nil, "orders", datasets, dispatch, fakeActiveModelResolver{}, fixedFamilyResolver("PrintTime"), features.Holidays{}, 1000, nil)
	require.NoError(t, err)

	require.NoError(t, c.Ingest(context.Background(), validOrder("m1")))
	require.Equal(t, 1, datasets.counts["PrintTime"])
}

func TestIngestDuplicateMessageIDIsANoOp(t *testing.T) {
	datasets := newFakeDatasetAppender()
	dispatch := &fakeRetrainEnqueuer{}
	c, err := NewConsumer(nil, "orders", datasets, dispatch, fakeActiveModelResolver{}, fixedFamilyResolver("PrintTime"), features.Holidays{}, 1000, nil)
	require.NoError(t, err)

	order := validOrder("dup-1")
	require.NoError(t, c.Ingest(context.Background(), order))
	require.NoError(t, c.Ingest(context.Background(), order))

	require.Equal(t, 1, datasets.counts["PrintTime"])
}

func TestIngestRejectsEmptyMessageID(t *testing.T) {
	datasets := newFakeDatasetAppender()
	dispatch := &fakeRetrainEnqueuer{}
	c, err := NewConsumer(nil, "orders", datasets, dispatch, fakeActiveModelResolver{}, fixedFamilyResolver("PrintTime"), features.Holidays{}, 1000, nil)
	require.NoError(t, err)

	order := validOrder("")
	err = c.Ingest(context.Background(), order)
	require.Error(t, err)
	require.Equal(t, 0, datasets.counts["PrintTime"])
}

func TestIngestRejectsInconsistentLineTotal(t *testing.T) {
	datasets := newFakeDatasetAppender()
	dispatch := &fakeRetrainEnqueuer{}
	c, err := NewConsumer(nil, "orders", datasets, dispatch, fakeActiveModelResolver{}, fixedFamilyResolver("PrintTime"), features.Holidays{}, 1000, nil)
	require.NoError(t, err)

	order := validOrder("m2")
	order.Items[0].LineTotal = 999
	err = c.Ingest(context.Background(), order)
	require.Error(t, err)
}

func TestIngestRejectsNonPositiveQuantity(t *testing.T) {
	datasets := newFakeDatasetAppender()
	dispatch := &fakeRetrainEnqueuer{}
	c, err := NewConsumer(nil, "orders", datasets, dispatch, fakeActiveModelResolver{}, fixedFamilyResolver("PrintTime"), features.Holidays{}, 1000, nil)
	require.NoError(t, err)

	order := validOrder("m3")
	order.Items[0].Quantity = 0
	order.Items[0].LineTotal = 0
	err = c.Ingest(context.Background(), order)
	require.Error(t, err)
}

func TestIngestEnqueuesRetrainWhenThresholdCrossed(t *testing.T) {
	datasets := newFakeDatasetAppender()
	datasets.counts["PrintTime"] = 998
	dispatch := &fakeRetrainEnqueuer{}
	c, err := NewConsumer(nil, "orders", datasets, dispatch, fakeActiveModelResolver{}, fixedFamilyResolver("PrintTime"), features.Holidays{}, 1000, nil)
	require.NoError(t, err)

	order := validOrder("m4")
	order.Items = append(order.Items, OrderLineItem{ProductID: "widget", Quantity: 1, UnitPrice: 5, LineTotal: 5})
	require.NoError(t, c.Ingest(context.Background(), order))

	require.Len(t, dispatch.jobs, 1)
	require.Equal(t, "PrintTime", dispatch.jobs[0].Family)
}

func TestIngestDoesNotReenqueueAfterThresholdAlreadyCrossed(t *testing.T) {
	datasets := newFakeDatasetAppender()
	datasets.counts["PrintTime"] = 1500
	dispatch := &fakeRetrainEnqueuer{}
	c, err := NewConsumer(nil, "orders", datasets, dispatch, fakeActiveModelResolver{}, fixedFamilyResolver("PrintTime"), features.Holidays{}, 1000, nil)
	require.NoError(t, err)

	require.NoError(t, c.Ingest(context.Background(), validOrder("m5")))
	require.Empty(t, dispatch.jobs)
}
