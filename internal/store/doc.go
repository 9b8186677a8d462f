// Package store provides SQLite-backed durable storage for the mutation
// queue and the local entity mirror.
//
// The store implements a whole-collection snapshot contract:
//   - Loads return the full ordered collection, degrading to empty (never an
//     error) when the data cannot be read or parsed.
//   - Saves rewrite the full collection inside one transaction and propagate
//     failures, because a silently dropped queue write would let the engine
//     acknowledge a request it never remembered.
//
// Insertion order is preserved via an explicit position column; the drain
// relies on it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema version is stamped in PRAGMA user_version so the on-disk format
// can evolve without silent corruption across upgrades.
//
// The store assumes external mutual exclusion between processes: two
// processes saving snapshots concurrently would last-write-win at the
// collection level.
package store
