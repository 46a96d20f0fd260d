// Package lifecycle enforces the Model state-machine invariants and runs
// the active-swap protocol and periodic staleness sweep, generalizing
// statemanager/manager.go's single RWMutex-guarded map to one mutex per
// family so swaps on independent families never contend.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eve.evalgo.org/internal/cache"
	"eve.evalgo.org/internal/cachekey"
	"eve.evalgo.org/internal/dispatcher"
	"eve.evalgo.org/internal/obslog"
	"eve.evalgo.org/internal/obsmetrics"
	"eve.evalgo.org/internal/registry"
)

const staleAfter = 30 * 24 * time.Hour

// Manager owns the per-family mutex map and coordinates the registry and
// cache adapter around every state transition.
type Manager struct {
	mu        sync.Mutex
	familyMus map[string]*sync.Mutex

	store   *registry.Store
	cache   cache.Adapter
	queue   *dispatcher.Queue
	metrics *obsmetrics.Metrics
}

// New builds a Manager over the given Model Registry store, cache
// adapter, and dispatcher queue (used only by the staleness sweep to
// enqueue retraining jobs). metrics may be nil.
func New(store *registry.Store, cacheAdapter cache.Adapter, queue *dispatcher.Queue, metrics *obsmetrics.Metrics) *Manager {
	return &Manager{
		familyMus: make(map[string]*sync.Mutex),
		store:     store,
		cache:     cacheAdapter,
		queue:     queue,
		metrics:   metrics,
	}
}

func (m *Manager) familyMutex(family string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.familyMus[family]
	if !ok {
		mu = &sync.Mutex{}
		m.familyMus[family] = mu
	}
	return mu
}

// PromoteActive installs newModel as Active for its family, deprecating
// whatever was Active before it, and invalidates the family's cache
// entries. The new Active model and the deprecated previous one are saved
// as two separate registry writes with no transaction around them: between
// the two, both models are Active, and if the second save fails the
// previous model stays Active. The cache invalidation that follows is
// best-effort.
func (m *Manager) PromoteActive(ctx context.Context, newModel *registry.Model) error {
	family := newModel.Family
	mu := m.familyMutex(family)
	mu.Lock()
	defer mu.Unlock()

	oldActive, err := m.store.ActiveModel(family)
	if err != nil {
		return fmt.Errorf("load current active model for family %s: %w", family, err)
	}

	now := time.Now()
	newModel.State = registry.StateActive
	newModel.DeploymentDate = &now
	if err := m.store.Save(newModel); err != nil {
		return fmt.Errorf("persist new active model for family %s: %w", family, err)
	}

	if oldActive != nil {
		oldActive.State = registry.StateDeprecated
		if err := m.store.Save(oldActive); err != nil {
			return fmt.Errorf("deprecate previous active model for family %s: %w", family, err)
		}
	}

	if err := m.cache.InvalidatePattern(ctx, cachekey.InvalidationPattern(family, "")); err != nil {
		obslog.ForFamily(family).WithError(err).Warn("cache invalidation after active-swap failed")
	}

	if m.metrics != nil {
		m.metrics.RecordActiveSwap()
	}

	return nil
}

// Sweep lists every Active model whose TrainingDate precedes the staleness
// cutoff and enqueues a retraining job for each. Intended to run on a
// fixed interval (default 6h, see internal/config) as an independent
// long-running activity from the Training Dispatcher's consumer loop.
func (m *Manager) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-staleAfter)
	stale, err := m.store.StaleActiveModels(cutoff)
	if err != nil {
		return fmt.Errorf("list stale active models: %w", err)
	}

	for _, model := range stale {
		job := dispatcher.Job{ModelID: model.ID, Family: model.Family}
		if err := m.queue.Enqueue(ctx, job); err != nil {
			obslog.ForFamily(model.Family).WithError(err).Error("failed to enqueue staleness-sweep retraining job")
			continue
		}
		obslog.ForFamily(model.Family).WithField("model_id", model.ID).Info("enqueued retraining job from staleness sweep")
	}
	return nil
}

// RunSweepForever invokes Sweep on the given interval until ctx is
// cancelled, independent of and possibly concurrent with the dispatcher
// consumer loop.
func (m *Manager) RunSweepForever(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				obslog.Logger.WithError(err).Error("staleness sweep failed")
			}
		}
	}
}
