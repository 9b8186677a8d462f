package queue

import "time"

// Action identifies the kind of remote mutation a queue item carries.
// Only creation is modeled; updates and deletes are written through directly
// by their callers and never queued.
type Action string

const (
	// ActionCreate inserts a new record into a remote collection.
	ActionCreate Action = "create"
)

// ItemStatus tracks a queue item through its lifecycle.
//
// Valid transitions:
//
//	(none) → Pending          enqueue
//	Pending → Completed       drain succeeded (terminal)
//	Pending → Pending         drain failed, retries remain
//	Pending → Failed          drain failed, retry ceiling reached (terminal)
//
// There is no transition out of Completed or Failed.
type ItemStatus string

const (
	// StatusPending means the item has not yet been applied remotely.
	StatusPending ItemStatus = "pending"
	// StatusCompleted means the remote insert succeeded.
	StatusCompleted ItemStatus = "completed"
	// StatusFailed means the item exhausted its retries (dead-lettered).
	StatusFailed ItemStatus = "failed"
)

// QueueItem is a pending or historical mutation request.
type QueueItem struct {
	// ID uniquely identifies the item. Assigned at enqueue time, never reused.
	ID string

	// Action is the mutation kind. Currently always ActionCreate.
	Action Action

	// EntityType names the target remote collection (e.g. "vehicles").
	EntityType string

	// RecordID is the local id of the entity this mutation applies to.
	RecordID string

	// Payload holds the entity fields submitted to the remote store.
	Payload map[string]any

	// RetryCount is incremented on each failed drain attempt.
	RetryCount int

	// Status is the item's position in the lifecycle above.
	Status ItemStatus

	// ErrorMessage records the last failure reason, if any.
	ErrorMessage string

	// DependsOn optionally names the local id of a parent entity that must
	// sync before this item can be submitted. Items with an unsynced parent
	// are deferred by the drain, not failed.
	DependsOn string

	// RefField names the payload key that references the parent entity.
	// When the parent has synced, the drain rewrites this key to the
	// parent's server-assigned id before submitting.
	RefField string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LocalEntity is the on-device mirror of a created object.
type LocalEntity struct {
	// ID is "local_<ms>_<suffix>" for entities created offline and
	// "server_<serverID>" for entities created while online.
	ID string

	// EntityType names the collection the entity belongs to.
	EntityType string

	// Fields mirrors the creation payload.
	Fields map[string]any

	// ServerID is set once the corresponding queue item completes.
	ServerID string

	// Synced is true once a server identifier exists.
	Synced bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateResult reports the outcome of a creation request.
type CreateResult struct {
	// Success is true whenever the request was either applied remotely or
	// durably queued. A false value never escapes CreateEntity: failures
	// surface as errors instead.
	Success bool

	// Synced is true when the entity was written to the remote store
	// immediately. False means the request was queued for a later drain.
	Synced bool

	// LocalID identifies the local mirror entity.
	LocalID string

	// Data holds the remote record fields for the immediate-write path.
	Data map[string]any
}

// DrainResult reports the outcome of a single drain pass.
type DrainResult struct {
	// Synced counts items that completed during this pass.
	Synced int
	// Failed counts items whose remote insert failed during this pass,
	// whether or not retries remain.
	Failed int
	// Deferred counts items skipped because their parent entity has not
	// synced yet. Deferred items keep their retry budget.
	Deferred int
}

// CreateOptions carries optional dependency metadata for creation requests.
type CreateOptions struct {
	// DependsOn is the local id of a parent entity that must sync first.
	// Setting it forces the queued path even while online, since the
	// payload cannot reference the parent until a server id exists.
	DependsOn string

	// RefField is the payload key rewritten with the parent's server id.
	RefField string
}
