package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workboard/internal/domain"
	"workboard/internal/store"
	"workboard/internal/store/memory"
	id "workboard/pkg/domain"
)

var fixedNow = time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

func newTestSyncer(t *testing.T, st store.Store, opts ...Option) *Syncer {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s := New(st, opts...)
	t.Cleanup(s.Stop)
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func mustEncodeItem(t *testing.T, item domain.WorkItem) []byte {
	t.Helper()
	data, err := domain.EncodeWorkItem(item)
	require.NoError(t, err)
	return data
}

func TestSyncerMirrorsFollowCommits(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	s := newTestSyncer(t, st)
	s.Start(ctx)

	waitFor(t, func() bool { return !s.Stale(store.CollectionWorkItems) })

	itemID := id.NewWorkItemID()
	item := domain.WorkItem{
		ID:      itemID,
		Title:   "ship the release",
		Impact:  domain.LevelHigh,
		Urgency: domain.LevelHigh,
		DueDate: fixedNow.AddDate(0, 0, 1),
		Status:  domain.StatusTodo,
	}
	require.NoError(t, st.Insert(ctx, store.CollectionWorkItems, store.Document{
		ID:   itemID.String(),
		Data: mustEncodeItem(t, item),
	}))

	waitFor(t, func() bool { return len(s.WorkItems()) == 1 })

	got := s.WorkItems()[0]
	assert.Equal(t, itemID, got.ID)
	// impact 3*3 + urgency 3*2 + deadline 10*5 with defaults
	assert.InDelta(t, 65.0, got.PriorityScore, 1e-9)
	assert.EqualValues(t, 1, s.Commit(store.CollectionWorkItems))
}

func TestSyncerDropsStaleSnapshots(t *testing.T) {
	s := newTestSyncer(t, memory.New())
	ctx := context.Background()

	fresh := store.Snapshot{
		Collection: store.CollectionUsers,
		Commit:     5,
		Docs:       []store.Document{{ID: id.NewUserID().String(), Data: []byte(`{"name":"Dana","role":"manager"}`)}},
	}
	s.apply(ctx, fresh)
	require.Len(t, s.Users(), 1)

	stale := store.Snapshot{Collection: store.CollectionUsers, Commit: 3}
	s.apply(ctx, stale)

	assert.Len(t, s.Users(), 1, "older commit must not clobber the mirror")
	assert.EqualValues(t, 5, s.Commit(store.CollectionUsers))
}

func TestSyncerDropsUndecodableDocuments(t *testing.T) {
	s := newTestSyncer(t, memory.New())

	s.apply(context.Background(), store.Snapshot{
		Collection: store.CollectionWorkItems,
		Commit:     1,
		Docs: []store.Document{
			{ID: id.NewWorkItemID().String(), Data: []byte(`{"title":"ok"}`)},
			{ID: id.NewWorkItemID().String(), Data: []byte(`not json at all`)},
		},
	})

	items := s.WorkItems()
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].Title)
}

func TestSyncerSetWeightsRescoresLocally(t *testing.T) {
	s := newTestSyncer(t, memory.New())
	ctx := context.Background()

	itemID := id.NewWorkItemID()
	s.apply(ctx, store.Snapshot{
		Collection: store.CollectionWorkItems,
		Commit:     1,
		Docs: []store.Document{{
			ID:   itemID.String(),
			Data: mustEncodeItem(t, domain.WorkItem{ID: itemID, Impact: domain.LevelHigh, Urgency: domain.LevelHigh, DueDate: fixedNow.AddDate(0, 0, 1)}),
		}},
	})
	require.InDelta(t, 65.0, s.WorkItems()[0].PriorityScore, 1e-9)

	s.SetWeights(domain.Weights{Impact: 1, Urgency: 1, Deadline: 1})
	assert.InDelta(t, 16.0, s.WorkItems()[0].PriorityScore, 1e-9)

	select {
	case <-s.Changes():
	default:
		t.Fatal("weight change should notify")
	}
}

func TestSyncerStopDiscardsLateSnapshots(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	s := newTestSyncer(t, st)
	s.Start(ctx)
	waitFor(t, func() bool { return !s.Stale(store.CollectionUsers) })

	s.Stop()
	assert.True(t, s.Stale(store.CollectionUsers), "stopped mirrors are stale")

	userID := id.NewUserID()
	require.NoError(t, st.Insert(ctx, store.CollectionUsers, store.Document{
		ID:   userID.String(),
		Data: []byte(`{"name":"Avery"}`),
	}))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, s.Users(), "writes after Stop never reach the mirror")
}

// failingStore lets one collection's subscriptions fail while the rest are
// served by the memory backend.
type failingStore struct {
	*memory.Store
	broken store.Collection
}

func (f *failingStore) Subscribe(ctx context.Context, c store.Collection) (store.Subscription, error) {
	if c == f.broken {
		return nil, errors.New("stream unavailable")
	}
	return f.Store.Subscribe(ctx, c)
}

func TestSyncerIsolatesCollectionFailures(t *testing.T) {
	ctx := context.Background()
	st := &failingStore{Store: memory.New(), broken: store.CollectionUsers}
	s := newTestSyncer(t, st)
	s.Start(ctx)

	waitFor(t, func() bool { return !s.Stale(store.CollectionWorkItems) })
	assert.True(t, s.Stale(store.CollectionUsers), "broken stream stays stale")

	itemID := id.NewWorkItemID()
	require.NoError(t, st.Insert(ctx, store.CollectionWorkItems, store.Document{
		ID:   itemID.String(),
		Data: mustEncodeItem(t, domain.WorkItem{ID: itemID, Title: "still flowing"}),
	}))
	waitFor(t, func() bool { return len(s.WorkItems()) == 1 })
}

func TestSyncerRestartRebuildsMirrors(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	s := newTestSyncer(t, st)
	s.Start(ctx)
	waitFor(t, func() bool { return !s.Stale(store.CollectionWorkItems) })
	s.Stop()

	itemID := id.NewWorkItemID()
	require.NoError(t, st.Insert(ctx, store.CollectionWorkItems, store.Document{
		ID:   itemID.String(),
		Data: mustEncodeItem(t, domain.WorkItem{ID: itemID, Title: "written while away"}),
	}))

	s.Start(ctx)
	waitFor(t, func() bool { return len(s.WorkItems()) == 1 })
	assert.False(t, s.Stale(store.CollectionWorkItems))
}

func TestSyncerRescoresOnReadAsTimeAdvances(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	var clockMu stdsync.Mutex
	now := fixedNow
	s := New(st, WithClock(func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}))
	t.Cleanup(s.Stop)
	s.Start(ctx)
	waitFor(t, func() bool { return !s.Stale(store.CollectionWorkItems) })

	itemID := id.NewWorkItemID()
	require.NoError(t, st.Insert(ctx, store.CollectionWorkItems, store.Document{
		ID: itemID.String(),
		Data: mustEncodeItem(t, domain.WorkItem{
			ID:      itemID,
			Title:   "quiet board item",
			Impact:  domain.LevelLow,
			Urgency: domain.LevelLow,
			DueDate: fixedNow.AddDate(0, 0, 10),
			Status:  domain.StatusTodo,
		}),
	}))
	waitFor(t, func() bool { return len(s.WorkItems()) == 1 })

	// Ten days out the deadline term bottoms at 1: 3*1 + 2*1 + 5*1.
	assert.InDelta(t, 10.0, s.WorkItems()[0].PriorityScore, 1e-9)

	// Nine quiet days later, with no commits at all, reads must serve a
	// fresh deadline term: one day left means 3*1 + 2*1 + 5*10.
	clockMu.Lock()
	now = fixedNow.AddDate(0, 0, 9)
	clockMu.Unlock()
	assert.InDelta(t, 55.0, s.WorkItems()[0].PriorityScore, 1e-9)
}
