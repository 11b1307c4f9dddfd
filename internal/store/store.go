// Package store defines the document store contract the rest of workboard
// is written against: per-collection documents, atomic multi-document
// batches, and standing subscriptions that push full collection snapshots in
// commit order.
//
// Three backends implement it: memory (tests and single-process dev), redis
// (shared cache with pub/sub pushes), and postgres (durable, LISTEN/NOTIFY
// pushes). The in-process mirrors built on top of this contract have no
// independent durability; on restart they are rebuilt from the store.
package store

import "context"

// Collection names the four synchronized document collections.
type Collection string

const (
	CollectionWorkItems  Collection = "workitems"
	CollectionUsers      Collection = "users"
	CollectionProposals  Collection = "proposals"
	CollectionDirectives Collection = "directives"
)

// Collections lists every collection a session subscribes to.
var Collections = []Collection{
	CollectionWorkItems,
	CollectionUsers,
	CollectionProposals,
	CollectionDirectives,
}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Document is an opaque JSON body keyed by ID. The store never interprets
// the body; entity codecs live in internal/domain.
type Document struct {
	ID   string
	Data []byte
}

// Snapshot is the full state of one collection as of a single commit.
// Commit numbers are monotonically increasing per collection, so a consumer
// can discard anything older than the latest it has applied.
type Snapshot struct {
	Collection Collection
	Commit     uint64
	Docs       []Document
}

// Op distinguishes batch write operations.
type Op string

const (
	// OpPut sets the document, creating or replacing it.
	OpPut Op = "put"
	// OpDelete removes the document; deleting a missing document is a no-op
	// inside a batch.
	OpDelete Op = "delete"
)

// Write is one entry of an atomic batch.
type Write struct {
	Op         Op
	Collection Collection
	Doc        Document
}

// Subscription is a standing push stream for one collection. The current
// snapshot is delivered immediately on subscribe; afterwards every commit to
// the collection produces a new full snapshot. Streams may coalesce
// intermediate states, but the last snapshot delivered always reflects the
// latest commit, never an interleaving of two commits.
type Subscription interface {
	// Snapshots returns the push channel. It is closed when the
	// subscription ends, after which Err reports why.
	Snapshots() <-chan Snapshot
	// Err returns the terminal error, or nil after a clean Close.
	Err() error
	// Close tears the subscription down. Safe to call more than once.
	Close()
}

// Store is the external document store boundary.
//
// Writes return acknowledgment or error only; authoritative state always
// arrives through the subscription push that echoes the commit. UpdateTx is
// the single-document transaction used for state-machine preconditions: fn
// receives the current body and returns the replacement, and whichever
// concurrent transaction commits first wins — the loser re-runs against the
// new state.
type Store interface {
	Insert(ctx context.Context, c Collection, doc Document) error
	Update(ctx context.Context, c Collection, doc Document) error
	UpdateTx(ctx context.Context, c Collection, docID string, fn func(current []byte) ([]byte, error)) error
	Delete(ctx context.Context, c Collection, docID string) error
	Get(ctx context.Context, c Collection, docID string) (Document, error)
	List(ctx context.Context, c Collection) ([]Document, error)
	ApplyBatch(ctx context.Context, writes []Write) error
	Subscribe(ctx context.Context, c Collection) (Subscription, error)
}
