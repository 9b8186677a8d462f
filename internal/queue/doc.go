// Package queue implements the offline-first mutation queue and its sync
// engine.
//
// Creation requests either write through to the remote store immediately
// (online path) or are buffered durably and replayed later (offline path).
// The engine owns the reconciliation between client-generated local ids and
// server-assigned ids.
//
// # Lifecycle
//
//   - CreateEntity: online → direct remote insert, mirrored locally as
//     synced; offline or failed → QueueCreation.
//   - QueueCreation: mirrors the entity locally as unsynced and enqueues a
//     pending item. Never calls the remote store.
//   - DrainQueue: submits pending items sequentially, applies the bounded
//     retry / dead-letter policy, records server ids on the local mirror,
//     and garbage collects old completed items.
//
// # Invariants
//
//   - A queue item's status only moves Pending → Completed or
//     Pending → ... → Failed. Terminal states are never left.
//   - At most one pending item exists per local entity: items are created
//     only at enqueue time and a local id is never re-enqueued.
//   - Items are drained in insertion order; the store never reorders.
//   - Drains are single-flight (overlap is rejected, not serialized).
//
// The engine's collaborators are injected: Storage (durable store),
// remote.Store (remote sink), Connectivity (network oracle), and Clock.
package queue
