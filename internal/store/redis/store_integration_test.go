//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"workboard/internal/store"
	redisstore "workboard/internal/store/redis"
	"workboard/pkg/platform/sentinel"
	"workboard/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = redisstore.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestInsertGetDelete() {
	ctx := context.Background()

	err := s.store.Insert(ctx, store.CollectionWorkItems, store.Document{ID: "a", Data: []byte(`{"title":"x"}`)})
	s.Require().NoError(err)

	err = s.store.Insert(ctx, store.CollectionWorkItems, store.Document{ID: "a", Data: []byte(`{}`)})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	doc, err := s.store.Get(ctx, store.CollectionWorkItems, "a")
	s.Require().NoError(err)
	s.JSONEq(`{"title":"x"}`, string(doc.Data))

	s.Require().NoError(s.store.Delete(ctx, store.CollectionWorkItems, "a"))
	_, err = s.store.Get(ctx, store.CollectionWorkItems, "a")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSubscribeDeliversInitialAndCommits() {
	ctx := context.Background()

	s.Require().NoError(s.store.Insert(ctx, store.CollectionUsers, store.Document{ID: "u1", Data: []byte(`{}`)}))

	sub, err := s.store.Subscribe(ctx, store.CollectionUsers)
	s.Require().NoError(err)
	defer sub.Close()

	initial := s.recv(sub)
	s.Len(initial.Docs, 1)
	s.Equal(uint64(1), initial.Commit)

	s.Require().NoError(s.store.Insert(ctx, store.CollectionUsers, store.Document{ID: "u2", Data: []byte(`{}`)}))

	next := s.recv(sub)
	s.Len(next.Docs, 2)
	s.Greater(next.Commit, initial.Commit)
}

func (s *RedisStoreSuite) TestApplyBatchIsAtomic() {
	ctx := context.Background()

	sub, err := s.store.Subscribe(ctx, store.CollectionWorkItems)
	s.Require().NoError(err)
	defer sub.Close()
	s.recv(sub)

	err = s.store.ApplyBatch(ctx, []store.Write{
		{Op: store.OpPut, Collection: store.CollectionWorkItems, Doc: store.Document{ID: "w1", Data: []byte(`{}`)}},
		{Op: store.OpPut, Collection: store.CollectionWorkItems, Doc: store.Document{ID: "w2", Data: []byte(`{}`)}},
		{Op: store.OpPut, Collection: store.CollectionUsers, Doc: store.Document{ID: "u1", Data: []byte(`{}`)}},
	})
	s.Require().NoError(err)

	snap := s.recv(sub)
	s.Len(snap.Docs, 2, "both work item writes land in one commit")

	docs, err := s.store.List(ctx, store.CollectionUsers)
	s.Require().NoError(err)
	s.Len(docs, 1)
}

func (s *RedisStoreSuite) TestUpdateTxPreconditionFailureLeavesDocument() {
	ctx := context.Background()

	s.Require().NoError(s.store.Insert(ctx, store.CollectionProposals, store.Document{ID: "p", Data: []byte(`{"approval_status":"approved"}`)}))

	err := s.store.UpdateTx(ctx, store.CollectionProposals, "p", func(current []byte) ([]byte, error) {
		return nil, sentinel.ErrInvalidState
	})
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	doc, err := s.store.Get(ctx, store.CollectionProposals, "p")
	s.Require().NoError(err)
	s.JSONEq(`{"approval_status":"approved"}`, string(doc.Data))
}

func (s *RedisStoreSuite) recv(sub store.Subscription) store.Snapshot {
	s.T().Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		s.Require().True(ok, "subscription closed: %v", sub.Err())
		return snap
	case <-time.After(5 * time.Second):
		s.T().Fatal("timed out waiting for snapshot")
		return store.Snapshot{}
	}
}
