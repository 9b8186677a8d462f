package queue_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetsync/internal/queue"
	"fleetsync/internal/testutil"
)

// testRig bundles the engine with its injected fakes.
type testRig struct {
	engine *queue.Engine
	store  *testutil.MemStorage
	remote *testutil.FakeRemote
	net    *testutil.FakeConnectivity
	clock  *testutil.ManualClock
}

func newRig(t *testing.T, online bool, opts ...queue.Option) *testRig {
	t.Helper()
	rig := &testRig{
		store:  testutil.NewMemStorage(),
		remote: testutil.NewFakeRemote(),
		net:    testutil.NewFakeConnectivity(online),
		clock:  testutil.NewManualClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	opts = append([]queue.Option{queue.WithClock(rig.clock)}, opts...)
	rig.engine = queue.New(rig.store, rig.remote, rig.net, opts...)
	return rig
}

func TestCreateEntity_OnlineSuccess(t *testing.T) {
	rig := newRig(t, true)
	ctx := context.Background()

	res, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "ABC-123"}, queue.CreateOptions{})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.Synced)
	assert.Equal(t, "server_srv-1", res.LocalID)
	assert.Equal(t, "ABC-123", res.Data["plate"])

	// No queue item on the direct path.
	assert.Empty(t, rig.store.LoadQueue(ctx))

	entities := rig.store.LoadEntities(ctx)
	require.Len(t, entities, 1)
	assert.True(t, entities[0].Synced)
	assert.Equal(t, "srv-1", entities[0].ServerID)
	assert.Equal(t, "vehicles", entities[0].EntityType)
}

func TestCreateEntity_OfflineQueues(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	res, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "ABC-123"}, queue.CreateOptions{})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.False(t, res.Synced)
	assert.True(t, strings.HasPrefix(res.LocalID, "local_"))
	assert.Zero(t, rig.remote.CallCount(), "offline creation must not touch the remote store")

	items := rig.store.LoadQueue(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, queue.StatusPending, items[0].Status)
	assert.Equal(t, queue.ActionCreate, items[0].Action)
	assert.Equal(t, res.LocalID, items[0].RecordID)
	assert.Equal(t, 0, items[0].RetryCount)

	entities := rig.store.LoadEntities(ctx)
	require.Len(t, entities, 1)
	assert.False(t, entities[0].Synced)
	assert.Equal(t, res.LocalID, entities[0].ID)
}

func TestCreateEntity_OfflineRepeatsAreIndependent(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		res, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"n": i}, queue.CreateOptions{})
		require.NoError(t, err)
		assert.False(t, seen[res.LocalID], "local ids must be unique")
		seen[res.LocalID] = true
	}

	assert.Len(t, rig.store.LoadQueue(ctx), 5)
	assert.Len(t, rig.store.LoadEntities(ctx), 5)
}

func TestCreateEntity_OnlineFailureFallsBackToQueue(t *testing.T) {
	rig := newRig(t, true)
	ctx := context.Background()
	rig.remote.FailNext(1)

	res, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "ABC-123"}, queue.CreateOptions{})
	require.NoError(t, err, "a network blip must not surface as a hard failure")

	assert.True(t, res.Success)
	assert.False(t, res.Synced)
	assert.True(t, strings.HasPrefix(res.LocalID, "local_"))

	// Exactly one remote attempt: the fallback queues, it does not retry inline.
	assert.Equal(t, 1, rig.remote.CallCount())
	assert.Len(t, rig.store.LoadQueue(ctx), 1)
}

func TestCreateEntity_QueueWriteFailurePropagates(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()
	rig.store.FailQueueSaves(errors.New("disk full"))

	_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "ABC-123"}, queue.CreateOptions{})
	require.Error(t, err)
	assert.True(t, queue.IsPersistenceError(err))
}

func TestDrainQueue_OfflineNoOp(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "A"}, queue.CreateOptions{})
	require.NoError(t, err)
	savesBefore := rig.store.QueueSaves()
	entitySavesBefore := rig.store.EntitySaves()

	res, err := rig.engine.DrainQueue(ctx)
	require.NoError(t, err)

	assert.Equal(t, queue.DrainResult{}, res)
	assert.Zero(t, rig.remote.CallCount())
	assert.Equal(t, savesBefore, rig.store.QueueSaves(), "offline drain must not rewrite the queue")
	assert.Equal(t, entitySavesBefore, rig.store.EntitySaves(), "offline drain must not rewrite the mirror")
}

func TestDrainQueue_EmptyQueueReturnsZero(t *testing.T) {
	rig := newRig(t, true)

	res, err := rig.engine.DrainQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, queue.DrainResult{}, res)
}

func TestDrainQueue_SyncsPendingAndRecordsServerID(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	created, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "A"}, queue.CreateOptions{})
	require.NoError(t, err)

	rig.net.SetOnline(true)
	res, err := rig.engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.DrainResult{Synced: 1}, res)

	items := rig.store.LoadQueue(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, queue.StatusCompleted, items[0].Status)

	entity, ok := rig.engine.GetEntity(ctx, created.LocalID)
	require.True(t, ok)
	assert.True(t, entity.Synced)
	assert.Equal(t, "srv-1", entity.ServerID)
}

func TestDrainQueue_RetryCeilingDeadLetters(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "A"}, queue.CreateOptions{})
	require.NoError(t, err)

	rig.net.SetOnline(true)
	rig.remote.SetError(errors.New("boom"))

	for attempt := 1; attempt <= 3; attempt++ {
		res, err := rig.engine.DrainQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.DrainResult{Failed: 1}, res)

		items := rig.store.LoadQueue(ctx)
		require.Len(t, items, 1)
		assert.Equal(t, attempt, items[0].RetryCount)
		assert.Equal(t, "boom", items[0].ErrorMessage)
		if attempt < 3 {
			assert.Equal(t, queue.StatusPending, items[0].Status)
		} else {
			assert.Equal(t, queue.StatusFailed, items[0].Status)
		}
	}

	// A fourth drain only selects pending items; the dead letter stays put.
	calls := rig.remote.CallCount()
	res, err := rig.engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.DrainResult{}, res)
	assert.Equal(t, calls, rig.remote.CallCount())

	items := rig.store.LoadQueue(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].RetryCount)
	assert.Equal(t, queue.StatusFailed, items[0].Status)
}

func TestDrainQueue_FailureIsolation(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "first"}, queue.CreateOptions{})
	require.NoError(t, err)
	_, err = rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "second"}, queue.CreateOptions{})
	require.NoError(t, err)

	rig.net.SetOnline(true)
	rig.remote.FailNext(1)

	res, err := rig.engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.DrainResult{Synced: 1, Failed: 1}, res)

	items := rig.store.LoadQueue(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, queue.StatusPending, items[0].Status)
	assert.Equal(t, 1, items[0].RetryCount)
	assert.Equal(t, queue.StatusCompleted, items[1].Status)
}

func TestDrainQueue_GarbageCollectsOldCompleted(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "old"}, queue.CreateOptions{})
	require.NoError(t, err)

	rig.net.SetOnline(true)
	_, err = rig.engine.DrainQueue(ctx)
	require.NoError(t, err)

	// Completed an hour ago: retained by the next drain.
	rig.clock.Advance(time.Hour)
	_, err = rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "fresh"}, queue.CreateOptions{})
	require.NoError(t, err)
	_, err = rig.engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, rig.store.LoadQueue(ctx), 2)

	// 25 hours after the first completion: collected on the next pass.
	rig.clock.Advance(25 * time.Hour)
	_, err = rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "newer"}, queue.CreateOptions{})
	require.NoError(t, err)
	_, err = rig.engine.DrainQueue(ctx)
	require.NoError(t, err)

	var completedPlates []string
	for _, item := range rig.store.LoadQueue(ctx) {
		completedPlates = append(completedPlates, item.Payload["plate"].(string))
	}
	assert.NotContains(t, completedPlates, "old")
	assert.Contains(t, completedPlates, "newer")
}

func TestDrainQueue_RejectsOverlap(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "A"}, queue.CreateOptions{})
	require.NoError(t, err)

	rig.net.SetOnline(true)
	release := rig.remote.BlockInserts()

	type drainOutcome struct {
		res queue.DrainResult
		err error
	}
	done := make(chan drainOutcome, 1)
	go func() {
		res, err := rig.engine.DrainQueue(ctx)
		done <- drainOutcome{res, err}
	}()

	// Wait for the first drain to reach the remote call.
	require.Eventually(t, func() bool { return rig.remote.CallCount() == 1 }, time.Second, time.Millisecond)

	_, err = rig.engine.DrainQueue(ctx)
	require.Error(t, err)
	assert.True(t, queue.IsDrainInProgress(err))

	release()
	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, queue.DrainResult{Synced: 1}, out.res)
}

func TestDrainQueue_DefersDependentUntilParentSynced(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	parent, err := rig.engine.CreateEntity(ctx, "companies", map[string]any{"name": "Acme"}, queue.CreateOptions{})
	require.NoError(t, err)

	child, err := rig.engine.QueueCreation(ctx, "vehicles",
		map[string]any{"plate": "A", "company_id": parent.LocalID},
		queue.CreateOptions{DependsOn: parent.LocalID, RefField: "company_id"})
	require.NoError(t, err)

	rig.net.SetOnline(true)

	// Parent insert fails, so the child must be deferred without burning a retry.
	rig.remote.FailNext(1)
	res, err := rig.engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.DrainResult{Failed: 1, Deferred: 1}, res)

	items := rig.store.LoadQueue(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[1].RetryCount, "deferred item keeps its retry budget")
	assert.Equal(t, queue.StatusPending, items[1].Status)

	// Next pass: parent syncs first, child follows in the same pass with the
	// reference rewritten to the parent's server id.
	res, err = rig.engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.DrainResult{Synced: 2}, res)

	calls := rig.remote.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "vehicles", last.Collection)
	assert.Equal(t, "srv-1", last.Fields["company_id"])

	childEntity, ok := rig.engine.GetEntity(ctx, child.LocalID)
	require.True(t, ok)
	assert.True(t, childEntity.Synced)
}

func TestCreateEntity_DependencyForcesQueueEvenOnline(t *testing.T) {
	rig := newRig(t, true)
	ctx := context.Background()

	res, err := rig.engine.CreateEntity(ctx, "vehicles",
		map[string]any{"plate": "A", "company_id": "local_123_abc"},
		queue.CreateOptions{DependsOn: "local_123_abc", RefField: "company_id"})
	require.NoError(t, err)

	assert.False(t, res.Synced)
	assert.Zero(t, rig.remote.CallCount(), "a payload referencing an unsynced parent cannot be inserted yet")
}

func TestCounts_And_ListFailed(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"n": i}, queue.CreateOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, rig.engine.PendingCount(ctx))
	assert.Equal(t, 0, rig.engine.FailedCount(ctx))

	rig.net.SetOnline(true)
	rig.remote.SetError(errors.New("boom"))
	for i := 0; i < 3; i++ {
		_, err := rig.engine.DrainQueue(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 0, rig.engine.PendingCount(ctx))
	assert.Equal(t, 3, rig.engine.FailedCount(ctx))

	failed := rig.engine.ListFailed(ctx)
	require.Len(t, failed, 3)
	for _, item := range failed {
		assert.Equal(t, queue.StatusFailed, item.Status)
		assert.Equal(t, "boom", item.ErrorMessage)
	}
}

func TestListEntities_FiltersByType(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	_, err := rig.engine.CreateEntity(ctx, "vehicles", map[string]any{"plate": "A"}, queue.CreateOptions{})
	require.NoError(t, err)
	_, err = rig.engine.CreateEntity(ctx, "companies", map[string]any{"name": "Acme"}, queue.CreateOptions{})
	require.NoError(t, err)

	assert.Len(t, rig.engine.ListEntities(ctx, "vehicles"), 1)
	assert.Len(t, rig.engine.ListEntities(ctx, "companies"), 1)
	assert.Len(t, rig.engine.ListEntities(ctx, ""), 2)
}

func TestQueueCreation_PayloadSnapshotIsolated(t *testing.T) {
	rig := newRig(t, false)
	ctx := context.Background()

	fields := map[string]any{"plate": "A"}
	_, err := rig.engine.CreateEntity(ctx, "vehicles", fields, queue.CreateOptions{})
	require.NoError(t, err)

	// Caller mutation after the fact must not leak into the queued payload.
	fields["plate"] = "MUTATED"

	items := rig.store.LoadQueue(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Payload["plate"])
}
