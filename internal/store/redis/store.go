// Package redis is the Redis document store backend. Each collection lives
// in one hash, commits are an INCR counter, and changes fan out over pub/sub.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"workboard/internal/store"
	"workboard/pkg/platform/sentinel"
)

const (
	docsKeyPrefix   = "workboard:docs:"
	commitKeyPrefix = "workboard:commit:"
	changesPrefix   = "workboard:changes:"

	// updateTx retries on WATCH conflicts before giving up.
	txRetries = 5
)

// Store implements store.Store on top of Redis.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Redis-backed document store.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func docsKey(c store.Collection) string   { return docsKeyPrefix + string(c) }
func commitKey(c store.Collection) string { return commitKeyPrefix + string(c) }
func changesKey(c store.Collection) string {
	return changesPrefix + string(c)
}

func validate(c store.Collection) error {
	if !c.Valid() {
		return sentinel.ErrNotFound
	}
	return nil
}

// Insert stores a new document; inserting an existing ID is a conflict.
func (s *Store) Insert(ctx context.Context, c store.Collection, doc store.Document) error {
	if err := validate(c); err != nil {
		return err
	}
	set, err := s.client.HSetNX(ctx, docsKey(c), doc.ID, doc.Data).Result()
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", c, doc.ID, err)
	}
	if !set {
		return sentinel.ErrConflict
	}
	return s.commit(ctx, c)
}

// Update replaces an existing document via a WATCH transaction so a
// concurrent delete cannot resurrect it.
func (s *Store) Update(ctx context.Context, c store.Collection, doc store.Document) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.watched(ctx, c, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, docsKey(c), doc.ID).Result()
		if err != nil {
			return err
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return s.execCommit(ctx, tx, c, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, docsKey(c), doc.ID, doc.Data)
		})
	})
}

// UpdateTx runs fn against the current body under WATCH so the commit only
// lands if nobody raced the read.
func (s *Store) UpdateTx(ctx context.Context, c store.Collection, docID string, fn func(current []byte) ([]byte, error)) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.watched(ctx, c, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, docsKey(c), docID).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return s.execCommit(ctx, tx, c, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, docsKey(c), docID, next)
		})
	})
}

// Delete removes a document; deleting a missing ID is not found.
func (s *Store) Delete(ctx context.Context, c store.Collection, docID string) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.watched(ctx, c, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, docsKey(c), docID).Result()
		if err != nil {
			return err
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return s.execCommit(ctx, tx, c, func(pipe redis.Pipeliner) {
			pipe.HDel(ctx, docsKey(c), docID)
		})
	})
}

// Get fetches one document by ID.
func (s *Store) Get(ctx context.Context, c store.Collection, docID string) (store.Document, error) {
	if err := validate(c); err != nil {
		return store.Document{}, err
	}
	data, err := s.client.HGet(ctx, docsKey(c), docID).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Document{}, sentinel.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("get %s/%s: %w", c, docID, err)
	}
	return store.Document{ID: docID, Data: data}, nil
}

// List returns the current documents of a collection.
func (s *Store) List(ctx context.Context, c store.Collection) ([]store.Document, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	raw, err := s.client.HGetAll(ctx, docsKey(c)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	docs := make([]store.Document, 0, len(raw))
	for docID, data := range raw {
		docs = append(docs, store.Document{ID: docID, Data: []byte(data)})
	}
	return docs, nil
}

// ApplyBatch applies all writes in one MULTI/EXEC transaction, committing
// each touched collection once.
func (s *Store) ApplyBatch(ctx context.Context, writes []store.Write) error {
	touched := make(map[store.Collection]struct{})
	for _, w := range writes {
		if err := validate(w.Collection); err != nil {
			return err
		}
		if w.Op != store.OpPut && w.Op != store.OpDelete {
			return sentinel.ErrInvalidState
		}
		touched[w.Collection] = struct{}{}
	}

	pipe := s.client.TxPipeline()
	for _, w := range writes {
		switch w.Op {
		case store.OpPut:
			pipe.HSet(ctx, docsKey(w.Collection), w.Doc.ID, w.Doc.Data)
		case store.OpDelete:
			pipe.HDel(ctx, docsKey(w.Collection), w.Doc.ID)
		}
	}
	commits := make(map[store.Collection]*redis.IntCmd, len(touched))
	for c := range touched {
		commits[c] = pipe.Incr(ctx, commitKey(c))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	for c, cmd := range commits {
		s.publish(ctx, c, uint64(cmd.Val()))
	}
	return nil
}

// Subscribe opens a push stream backed by pub/sub. The current snapshot is
// delivered immediately; each published commit triggers a re-read.
func (s *Store) Subscribe(ctx context.Context, c store.Collection) (store.Subscription, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	pubsub := s.client.Subscribe(ctx, changesKey(c))
	// Force the SUBSCRIBE to complete before the initial read so no commit
	// between the two is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", c, err)
	}

	sub := &subscription{
		ch:     make(chan store.Snapshot, 1),
		closed: make(chan struct{}),
	}
	go sub.run(ctx, s, c, pubsub)
	return sub, nil
}

// watched retries fn under WATCH on the collection hash.
func (s *Store) watched(ctx context.Context, c store.Collection, fn func(tx *redis.Tx) error) error {
	var err error
	for i := 0; i < txRetries; i++ {
		err = s.client.Watch(ctx, fn, docsKey(c))
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("tx on %s: %w", c, err)
}

// execCommit runs the writes plus the commit bump in one EXEC, then
// publishes the new commit.
func (s *Store) execCommit(ctx context.Context, tx *redis.Tx, c store.Collection, writes func(pipe redis.Pipeliner)) error {
	var commitCmd *redis.IntCmd
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		writes(pipe)
		commitCmd = pipe.Incr(ctx, commitKey(c))
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, c, uint64(commitCmd.Val()))
	return nil
}

// commit bumps a collection's counter and publishes it.
func (s *Store) commit(ctx context.Context, c store.Collection) error {
	n, err := s.client.Incr(ctx, commitKey(c)).Result()
	if err != nil {
		return fmt.Errorf("commit %s: %w", c, err)
	}
	s.publish(ctx, c, uint64(n))
	return nil
}

func (s *Store) publish(ctx context.Context, c store.Collection, commit uint64) {
	if err := s.client.Publish(ctx, changesKey(c), strconv.FormatUint(commit, 10)).Err(); err != nil {
		// Subscribers recover on the next commit; worth a log line, not a failure.
		s.logger.WarnContext(ctx, "publish commit notification failed",
			"collection", string(c), "commit", commit, "error", err)
	}
}

type subscription struct {
	ch     chan store.Snapshot
	closed chan struct{}

	mu       sync.Mutex
	err      error
	closeOne sync.Once
}

func (sub *subscription) run(ctx context.Context, s *Store, c store.Collection, pubsub *redis.PubSub) {
	defer pubsub.Close()
	defer close(sub.ch)

	if err := sub.deliverCurrent(ctx, s, c, 0); err != nil {
		sub.fail(err)
		return
	}

	var lastSeen uint64
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.closed:
			return
		case msg, ok := <-msgs:
			if !ok {
				sub.fail(sentinel.ErrUnavailable)
				return
			}
			commit, err := strconv.ParseUint(msg.Payload, 10, 64)
			if err != nil || commit <= lastSeen {
				continue
			}
			lastSeen = commit
			if err := sub.deliverCurrent(ctx, s, c, commit); err != nil {
				sub.fail(err)
				return
			}
		}
	}
}

func (sub *subscription) deliverCurrent(ctx context.Context, s *Store, c store.Collection, minCommit uint64) error {
	docs, err := s.List(ctx, c)
	if err != nil {
		return err
	}
	raw, err := s.client.Get(ctx, commitKey(c)).Result()
	commit := minCommit
	if err == nil {
		if n, perr := strconv.ParseUint(raw, 10, 64); perr == nil && n > commit {
			commit = n
		}
	} else if !errors.Is(err, redis.Nil) {
		return err
	}
	sub.deliver(store.Snapshot{Collection: c, Commit: commit, Docs: docs})
	return nil
}

// deliver coalesces with drop-oldest semantics; only the run goroutine sends.
func (sub *subscription) deliver(snap store.Snapshot) {
	select {
	case sub.ch <- snap:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- snap
}

func (sub *subscription) fail(err error) {
	sub.mu.Lock()
	sub.err = err
	sub.mu.Unlock()
}

func (sub *subscription) Snapshots() <-chan store.Snapshot { return sub.ch }

func (sub *subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

func (sub *subscription) Close() {
	sub.closeOne.Do(func() { close(sub.closed) })
}
