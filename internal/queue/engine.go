package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"fleetsync/internal/remote"
)

// Storage is the durable store contract the engine mutates through.
//
// Both collections are read and written as whole snapshots: every mutation
// is load-all, mutate in memory, save-all. Loads degrade to an empty
// snapshot on read or parse failure instead of erroring, so the engine sees
// "queue empty" rather than crashing. Saves propagate failures, because an
// unacknowledged queue write must not be reported as success to the caller.
//
// Implementations preserve insertion order across load/save cycles.
type Storage interface {
	LoadQueue(ctx context.Context) []QueueItem
	SaveQueue(ctx context.Context, items []QueueItem) error
	LoadEntities(ctx context.Context) []LocalEntity
	SaveEntities(ctx context.Context, entities []LocalEntity) error
}

// Connectivity reports the last known network state. The getter performs no
// I/O and is safe to call from any context.
type Connectivity interface {
	IsOnline() bool
}

// Defaults for engine tunables.
const (
	// DefaultMaxRetries is the per-item retry ceiling. Once RetryCount
	// reaches it the item is dead-lettered.
	DefaultMaxRetries = 3

	// DefaultAttemptTimeout bounds each remote insert. A hung remote call
	// must not stall a drain pass indefinitely.
	DefaultAttemptTimeout = 10 * time.Second

	// DefaultCompletedTTL is how long completed items stay in the queue
	// before the post-drain garbage collection removes them.
	DefaultCompletedTTL = 24 * time.Hour
)

// Engine decides, for each creation request, whether to write remotely at
// once or to queue, and drains the queue when connectivity allows,
// reconciling local and server-assigned identifiers.
//
// Drains are single-flight: an overlapping DrainQueue call is rejected with
// ErrCodeDrainInProgress rather than double-submitting the same snapshot.
// All other methods are safe to call concurrently with a running drain only
// to the extent the Storage implementation tolerates it; in the intended
// single-process deployment the engine is driven from one goroutine plus the
// connectivity listener.
type Engine struct {
	store    Storage
	remote   remote.Store
	net      Connectivity
	clock    Clock
	logger   *slog.Logger
	draining atomic.Bool

	maxRetries     int
	attemptTimeout time.Duration
	completedTTL   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock substitutes the wall clock. Used by tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxRetries sets the per-item retry ceiling.
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// WithAttemptTimeout bounds each remote insert attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Engine) { e.attemptTimeout = d }
}

// WithCompletedTTL sets how long completed items are retained in the queue.
func WithCompletedTTL(d time.Duration) Option {
	return func(e *Engine) { e.completedTTL = d }
}

// New creates an Engine over the given durable store, remote store, and
// connectivity oracle.
func New(store Storage, rs remote.Store, net Connectivity, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		remote:         rs,
		net:            net,
		clock:          SystemClock{},
		logger:         slog.Default(),
		maxRetries:     DefaultMaxRetries,
		attemptTimeout: DefaultAttemptTimeout,
		completedTTL:   DefaultCompletedTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateEntity applies a creation request immediately when possible and
// queues it otherwise.
//
// While online it attempts a direct remote insert; on success the entity is
// mirrored locally with Synced=true and no queue item is created. A failed
// insert falls back to queueing: a network blip mid-request must not surface
// as a hard failure when the request can still be remembered. While offline,
// or when opts carries a dependency on an unsynced parent, the request goes
// straight to the queue.
//
// The only error CreateEntity returns is a persistence failure — the one
// case where the engine cannot guarantee it remembered the request.
func (e *Engine) CreateEntity(ctx context.Context, entityType string, fields map[string]any, opts CreateOptions) (CreateResult, error) {
	if opts.DependsOn != "" || !e.net.IsOnline() {
		return e.QueueCreation(ctx, entityType, fields, opts)
	}

	actx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	rec, err := e.remote.Insert(actx, entityType, fields)
	cancel()
	if err != nil {
		e.logger.Warn("online creation failed, queueing",
			"entity_type", entityType,
			"error", err)
		return e.QueueCreation(ctx, entityType, fields, opts)
	}

	now := e.clock.Now()
	entity := LocalEntity{
		ID:         serverLocalID(rec.ID),
		EntityType: entityType,
		Fields:     cloneFields(fields),
		ServerID:   rec.ID,
		Synced:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	entities := e.store.LoadEntities(ctx)
	entities = append(entities, entity)
	if err := e.store.SaveEntities(ctx, entities); err != nil {
		return CreateResult{}, newPersistenceError(entityType, err)
	}

	e.logger.Info("entity created remotely",
		"entity_type", entityType,
		"server_id", rec.ID)

	return CreateResult{
		Success: true,
		Synced:  true,
		LocalID: entity.ID,
		Data:    rec.Fields,
	}, nil
}

// QueueCreation records a creation request locally without touching the
// remote store. It mirrors the entity with Synced=false, enqueues a pending
// queue item, and persists both collections before returning. This path is
// unconditionally offline-safe.
func (e *Engine) QueueCreation(ctx context.Context, entityType string, fields map[string]any, opts CreateOptions) (CreateResult, error) {
	now := e.clock.Now()
	localID := newLocalID(now)

	entity := LocalEntity{
		ID:         localID,
		EntityType: entityType,
		Fields:     cloneFields(fields),
		Synced:     false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	entities := e.store.LoadEntities(ctx)
	entities = append(entities, entity)
	if err := e.store.SaveEntities(ctx, entities); err != nil {
		return CreateResult{}, newPersistenceError(entityType, err)
	}

	item := QueueItem{
		ID:         newQueueID(now),
		Action:     ActionCreate,
		EntityType: entityType,
		RecordID:   localID,
		Payload:    cloneFields(fields),
		RetryCount: 0,
		Status:     StatusPending,
		DependsOn:  opts.DependsOn,
		RefField:   opts.RefField,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	items := e.store.LoadQueue(ctx)
	items = append(items, item)
	if err := e.store.SaveQueue(ctx, items); err != nil {
		return CreateResult{}, newPersistenceError(entityType, err)
	}

	e.logger.Info("creation queued",
		"entity_type", entityType,
		"local_id", localID,
		"queue_id", item.ID)

	return CreateResult{
		Success: true,
		Synced:  false,
		LocalID: localID,
	}, nil
}

// DrainQueue submits all pending queue items to the remote store, one at a
// time in insertion order.
//
// While offline the drain is a no-op, not an error. One item's failure never
// aborts the pass: each item succeeds, fails (consuming a retry), or is
// deferred independently. After the pass both collections are persisted and
// completed items older than the TTL are garbage collected.
//
// A second DrainQueue call while one is in flight returns a SyncError with
// ErrCodeDrainInProgress and an empty result.
func (e *Engine) DrainQueue(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	if !e.net.IsOnline() {
		e.logger.Debug("offline, skipping drain")
		return res, nil
	}

	if !e.draining.CompareAndSwap(false, true) {
		return res, newDrainInProgressError()
	}
	defer e.draining.Store(false)

	items := e.store.LoadQueue(ctx)
	hasPending := false
	for i := range items {
		if items[i].Status == StatusPending {
			hasPending = true
			break
		}
	}
	if !hasPending {
		return res, nil
	}

	entities := e.store.LoadEntities(ctx)

	for i := range items {
		item := &items[i]
		if item.Status != StatusPending {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		payload := item.Payload
		if item.DependsOn != "" {
			parent := findEntity(entities, item.DependsOn)
			if parent == nil || !parent.Synced {
				res.Deferred++
				e.logger.Debug("item deferred, parent not synced",
					"queue_id", item.ID,
					"depends_on", item.DependsOn)
				continue
			}
			if item.RefField != "" {
				payload = cloneFields(item.Payload)
				payload[item.RefField] = parent.ServerID
				item.Payload = payload
			}
		}

		actx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		rec, err := e.remote.Insert(actx, item.EntityType, payload)
		cancel()

		now := e.clock.Now()
		if err != nil {
			item.RetryCount++
			item.ErrorMessage = err.Error()
			if item.RetryCount >= e.maxRetries {
				item.Status = StatusFailed
				e.logger.Error("item dead-lettered",
					"queue_id", item.ID,
					"entity_type", item.EntityType,
					"retry_count", item.RetryCount,
					"error", err)
			} else {
				e.logger.Warn("item sync failed, will retry",
					"queue_id", item.ID,
					"retry_count", item.RetryCount,
					"error", err)
			}
			item.UpdatedAt = now
			res.Failed++
			continue
		}

		if entity := findEntity(entities, item.RecordID); entity != nil {
			entity.Synced = true
			entity.ServerID = rec.ID
			entity.UpdatedAt = now
		}
		item.Status = StatusCompleted
		item.UpdatedAt = now
		res.Synced++
		e.logger.Info("item synced",
			"queue_id", item.ID,
			"entity_type", item.EntityType,
			"server_id", rec.ID)
	}

	if err := e.store.SaveQueue(ctx, items); err != nil {
		return res, newPersistenceError("", err)
	}
	if err := e.store.SaveEntities(ctx, entities); err != nil {
		return res, newPersistenceError("", err)
	}

	if err := e.collectCompleted(ctx, items); err != nil {
		return res, err
	}

	return res, nil
}

// collectCompleted removes completed items whose UpdatedAt is older than the
// TTL, persisting the queue again only when something was removed.
func (e *Engine) collectCompleted(ctx context.Context, items []QueueItem) error {
	cutoff := e.clock.Now().Add(-e.completedTTL)
	kept := items[:0:0]
	for _, item := range items {
		if item.Status == StatusCompleted && item.UpdatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == len(items) {
		return nil
	}

	e.logger.Debug("garbage collected completed items",
		"removed", len(items)-len(kept))
	if err := e.store.SaveQueue(ctx, kept); err != nil {
		return newPersistenceError("", err)
	}
	return nil
}

// PendingCount returns the number of queue items awaiting sync.
func (e *Engine) PendingCount(ctx context.Context) int {
	return e.countByStatus(ctx, StatusPending)
}

// FailedCount returns the number of dead-lettered queue items.
func (e *Engine) FailedCount(ctx context.Context) int {
	return e.countByStatus(ctx, StatusFailed)
}

func (e *Engine) countByStatus(ctx context.Context, status ItemStatus) int {
	n := 0
	for _, item := range e.store.LoadQueue(ctx) {
		if item.Status == status {
			n++
		}
	}
	return n
}

// ListFailed returns all dead-lettered queue items, in insertion order, so
// callers can surface terminal failures instead of losing them silently.
func (e *Engine) ListFailed(ctx context.Context) []QueueItem {
	failed := []QueueItem{}
	for _, item := range e.store.LoadQueue(ctx) {
		if item.Status == StatusFailed {
			failed = append(failed, item)
		}
	}
	return failed
}

// ListEntities returns a snapshot of the local mirror, optionally filtered
// by entity type. An empty entityType returns everything.
func (e *Engine) ListEntities(ctx context.Context, entityType string) []LocalEntity {
	all := e.store.LoadEntities(ctx)
	if entityType == "" {
		return all
	}
	filtered := []LocalEntity{}
	for _, entity := range all {
		if entity.EntityType == entityType {
			filtered = append(filtered, entity)
		}
	}
	return filtered
}

// GetEntity looks up a single local entity by id.
func (e *Engine) GetEntity(ctx context.Context, id string) (LocalEntity, bool) {
	for _, entity := range e.store.LoadEntities(ctx) {
		if entity.ID == id {
			return entity, true
		}
	}
	return LocalEntity{}, false
}

// findEntity returns a pointer into entities for in-place mutation during a
// drain pass.
func findEntity(entities []LocalEntity, id string) *LocalEntity {
	for i := range entities {
		if entities[i].ID == id {
			return &entities[i]
		}
	}
	return nil
}

// cloneFields shallow-copies a payload map so queued snapshots are isolated
// from later caller mutation.
func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
