// Package memory is the in-process document store backend. It favors
// clarity over performance: one mutex, full-snapshot fan-out, copies
// everywhere.
package memory

import (
	"context"
	"sync"

	"workboard/internal/store"
	"workboard/pkg/platform/sentinel"
)

// Store implements store.Store with mutex-guarded maps and a per-collection
// commit sequence. Subscribers receive coalesced snapshots: a slow consumer
// may skip intermediate commits but always observes the latest one.
type Store struct {
	mu          sync.Mutex
	collections map[store.Collection]*collection
}

type collection struct {
	docs   map[string][]byte
	commit uint64
	subs   map[*subscription]struct{}
}

// New builds an empty memory store with all known collections.
func New() *Store {
	s := &Store{collections: make(map[store.Collection]*collection)}
	for _, c := range store.Collections {
		s.collections[c] = &collection{
			docs: make(map[string][]byte),
			subs: make(map[*subscription]struct{}),
		}
	}
	return s
}

func (s *Store) coll(c store.Collection) (*collection, error) {
	coll, ok := s.collections[c]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return coll, nil
}

// Insert stores a new document; inserting an existing ID is a conflict.
func (s *Store) Insert(ctx context.Context, c store.Collection, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll(c)
	if err != nil {
		return err
	}
	if _, exists := coll.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	coll.docs[doc.ID] = cloneBytes(doc.Data)
	s.commitLocked(coll, c)
	return nil
}

// Update replaces an existing document; updating a missing ID is not found.
func (s *Store) Update(ctx context.Context, c store.Collection, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll(c)
	if err != nil {
		return err
	}
	if _, exists := coll.docs[doc.ID]; !exists {
		return sentinel.ErrNotFound
	}
	coll.docs[doc.ID] = cloneBytes(doc.Data)
	s.commitLocked(coll, c)
	return nil
}

// UpdateTx runs fn against the current document body and commits the
// replacement atomically. fn errors abort the transaction with no commit.
func (s *Store) UpdateTx(ctx context.Context, c store.Collection, docID string, fn func(current []byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll(c)
	if err != nil {
		return err
	}
	current, exists := coll.docs[docID]
	if !exists {
		return sentinel.ErrNotFound
	}
	next, err := fn(cloneBytes(current))
	if err != nil {
		return err
	}
	coll.docs[docID] = cloneBytes(next)
	s.commitLocked(coll, c)
	return nil
}

// Delete removes a document; deleting a missing ID is not found.
func (s *Store) Delete(ctx context.Context, c store.Collection, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll(c)
	if err != nil {
		return err
	}
	if _, exists := coll.docs[docID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(coll.docs, docID)
	s.commitLocked(coll, c)
	return nil
}

// Get fetches one document by ID.
func (s *Store) Get(ctx context.Context, c store.Collection, docID string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll(c)
	if err != nil {
		return store.Document{}, err
	}
	data, exists := coll.docs[docID]
	if !exists {
		return store.Document{}, sentinel.ErrNotFound
	}
	return store.Document{ID: docID, Data: cloneBytes(data)}, nil
}

// List returns the current documents of a collection.
func (s *Store) List(ctx context.Context, c store.Collection) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll(c)
	if err != nil {
		return nil, err
	}
	return coll.snapshotDocsLocked(), nil
}

// ApplyBatch applies all writes under one lock acquisition: either every
// write lands or none does, and each affected collection commits exactly
// once.
func (s *Store) ApplyBatch(ctx context.Context, writes []store.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate first so a bad write cannot leave a partial batch behind.
	for _, w := range writes {
		if _, err := s.coll(w.Collection); err != nil {
			return err
		}
		if w.Op != store.OpPut && w.Op != store.OpDelete {
			return sentinel.ErrInvalidState
		}
	}

	touched := make(map[store.Collection]*collection)
	for _, w := range writes {
		coll := s.collections[w.Collection]
		switch w.Op {
		case store.OpPut:
			coll.docs[w.Doc.ID] = cloneBytes(w.Doc.Data)
		case store.OpDelete:
			delete(coll.docs, w.Doc.ID)
		}
		touched[w.Collection] = coll
	}
	for c, coll := range touched {
		s.commitLocked(coll, c)
	}
	return nil
}

// Subscribe opens a push stream and delivers the current snapshot
// immediately. Cancelling ctx closes the stream.
func (s *Store) Subscribe(ctx context.Context, c store.Collection) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	coll, err := s.coll(c)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	sub := &subscription{
		store:  s,
		c:      c,
		ch:     make(chan store.Snapshot, 1),
		closed: make(chan struct{}),
	}
	coll.subs[sub] = struct{}{}
	sub.deliverLocked(store.Snapshot{
		Collection: c,
		Commit:     coll.commit,
		Docs:       coll.snapshotDocsLocked(),
	})
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()
	return sub, nil
}

// commitLocked bumps the collection commit and fans the new snapshot out to
// subscribers. Caller holds s.mu.
func (s *Store) commitLocked(coll *collection, c store.Collection) {
	coll.commit++
	snap := store.Snapshot{
		Collection: c,
		Commit:     coll.commit,
		Docs:       coll.snapshotDocsLocked(),
	}
	for sub := range coll.subs {
		sub.deliverLocked(snap)
	}
}

func (coll *collection) snapshotDocsLocked() []store.Document {
	docs := make([]store.Document, 0, len(coll.docs))
	for docID, data := range coll.docs {
		docs = append(docs, store.Document{ID: docID, Data: cloneBytes(data)})
	}
	return docs
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

type subscription struct {
	store    *Store
	c        store.Collection
	ch       chan store.Snapshot
	closeOne sync.Once
	closed   chan struct{}
}

// deliverLocked sends with drop-oldest coalescing so a slow consumer never
// blocks a commit and always ends up with the latest snapshot. Caller holds
// the store mutex, which serializes sends.
func (sub *subscription) deliverLocked(snap store.Snapshot) {
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

func (sub *subscription) Snapshots() <-chan store.Snapshot { return sub.ch }

// Err is always nil for the memory backend; the stream only ends via Close.
func (sub *subscription) Err() error { return nil }

func (sub *subscription) Close() {
	sub.closeOne.Do(func() {
		sub.store.mu.Lock()
		if coll, ok := sub.store.collections[sub.c]; ok {
			delete(coll.subs, sub)
		}
		close(sub.ch)
		sub.store.mu.Unlock()
		close(sub.closed)
	})
}
