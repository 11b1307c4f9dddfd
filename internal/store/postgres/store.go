// Package postgres is the Postgres document store backend. Documents live in
// a jsonb table, commits in a per-collection counter row, and change
// notifications ride LISTEN/NOTIFY so subscribers re-read on every commit.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workboard/internal/store"
	"workboard/pkg/platform/sentinel"
)

const notifyChannel = "workboard_changes"

// Store implements store.Store on top of a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
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

// New constructs a Postgres-backed document store.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the store tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT    NOT NULL,
			doc_id     TEXT    NOT NULL,
			data       JSONB   NOT NULL,
			PRIMARY KEY (collection, doc_id)
		);
		CREATE TABLE IF NOT EXISTS collection_commits (
			collection TEXT   PRIMARY KEY,
			commit_seq BIGINT NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
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
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO documents (collection, doc_id, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (collection, doc_id) DO NOTHING
		`, string(c), doc.ID, doc.Data)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return sentinel.ErrConflict
		}
		return s.bumpAndNotify(ctx, tx, c)
	})
}

// Update replaces an existing document; updating a missing ID is not found.
func (s *Store) Update(ctx context.Context, c store.Collection, doc store.Document) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE documents SET data = $3
			WHERE collection = $1 AND doc_id = $2
		`, string(c), doc.ID, doc.Data)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return sentinel.ErrNotFound
		}
		return s.bumpAndNotify(ctx, tx, c)
	})
}

// UpdateTx runs fn against the current body under SELECT FOR UPDATE so the
// precondition check and the write are one transaction.
func (s *Store) UpdateTx(ctx context.Context, c store.Collection, docID string, fn func(current []byte) ([]byte, error)) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var current []byte
		err := tx.QueryRow(ctx, `
			SELECT data FROM documents
			WHERE collection = $1 AND doc_id = $2
			FOR UPDATE
		`, string(c), docID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE documents SET data = $3
			WHERE collection = $1 AND doc_id = $2
		`, string(c), docID, next); err != nil {
			return err
		}
		return s.bumpAndNotify(ctx, tx, c)
	})
}

// Delete removes a document; deleting a missing ID is not found.
func (s *Store) Delete(ctx context.Context, c store.Collection, docID string) error {
	if err := validate(c); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM documents
			WHERE collection = $1 AND doc_id = $2
		`, string(c), docID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return sentinel.ErrNotFound
		}
		return s.bumpAndNotify(ctx, tx, c)
	})
}

// Get fetches one document by ID.
func (s *Store) Get(ctx context.Context, c store.Collection, docID string) (store.Document, error) {
	if err := validate(c); err != nil {
		return store.Document{}, err
	}
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM documents
		WHERE collection = $1 AND doc_id = $2
	`, string(c), docID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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
	return s.list(ctx, s.pool, c)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Store) list(ctx context.Context, q querier, c store.Collection) ([]store.Document, error) {
	rows, err := q.Query(ctx, `
		SELECT doc_id, data FROM documents
		WHERE collection = $1
	`, string(c))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	return docs, nil
}

// ApplyBatch applies all writes in one transaction, bumping each touched
// collection's commit once.
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

	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, w := range writes {
			var err error
			switch w.Op {
			case store.OpPut:
				_, err = tx.Exec(ctx, `
					INSERT INTO documents (collection, doc_id, data)
					VALUES ($1, $2, $3)
					ON CONFLICT (collection, doc_id) DO UPDATE SET data = EXCLUDED.data
				`, string(w.Collection), w.Doc.ID, w.Doc.Data)
			case store.OpDelete:
				_, err = tx.Exec(ctx, `
					DELETE FROM documents
					WHERE collection = $1 AND doc_id = $2
				`, string(w.Collection), w.Doc.ID)
			}
			if err != nil {
				return err
			}
		}
		for c := range touched {
			if err := s.bumpAndNotify(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Subscribe opens a push stream on a dedicated LISTEN connection. The
// current snapshot is delivered immediately; each NOTIFY triggers a re-read.
func (s *Store) Subscribe(ctx context.Context, c store.Collection) (store.Subscription, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c, err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", c, err)
	}

	sub := &subscription{
		ch:     make(chan store.Snapshot, 1),
		closed: make(chan struct{}),
	}
	go sub.run(ctx, s, c, conn)
	return sub, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// bumpAndNotify advances the collection commit and queues a NOTIFY that
// fires when the surrounding transaction commits.
func (s *Store) bumpAndNotify(ctx context.Context, tx pgx.Tx, c store.Collection) error {
	var commit int64
	err := tx.QueryRow(ctx, `
		INSERT INTO collection_commits (collection, commit_seq)
		VALUES ($1, 1)
		ON CONFLICT (collection) DO UPDATE SET commit_seq = collection_commits.commit_seq + 1
		RETURNING commit_seq
	`, string(c)).Scan(&commit)
	if err != nil {
		return fmt.Errorf("bump commit %s: %w", c, err)
	}
	payload := string(c) + ":" + strconv.FormatInt(commit, 10)
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, payload); err != nil {
		return fmt.Errorf("notify %s: %w", c, err)
	}
	return nil
}

func (s *Store) currentCommit(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, c store.Collection) (uint64, error) {
	var commit int64
	err := q.QueryRow(ctx, `
		SELECT commit_seq FROM collection_commits WHERE collection = $1
	`, string(c)).Scan(&commit)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(commit), nil
}

type subscription struct {
	ch     chan store.Snapshot
	closed chan struct{}

	mu       sync.Mutex
	err      error
	closeOne sync.Once
}

func (sub *subscription) run(ctx context.Context, s *Store, c store.Collection, conn *pgxpool.Conn) {
	defer close(sub.ch)
	defer conn.Release()

	// Stop WaitForNotification when the subscriber closes.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sub.closed:
			cancel()
		case <-runCtx.Done():
		}
	}()

	var lastSeen uint64
	if err := sub.deliverCurrent(runCtx, s, conn, c, &lastSeen); err != nil {
		sub.fail(runCtx, err)
		return
	}

	for {
		notification, err := conn.Conn().WaitForNotification(runCtx)
		if err != nil {
			sub.fail(runCtx, err)
			return
		}
		collection, commit, ok := parsePayload(notification.Payload)
		if !ok || collection != c || commit <= lastSeen {
			continue
		}
		if err := sub.deliverCurrent(runCtx, s, conn, c, &lastSeen); err != nil {
			sub.fail(runCtx, err)
			return
		}
	}
}

func (sub *subscription) deliverCurrent(ctx context.Context, s *Store, conn *pgxpool.Conn, c store.Collection, lastSeen *uint64) error {
	commit, err := s.currentCommit(ctx, conn, c)
	if err != nil {
		return err
	}
	docs, err := s.list(ctx, conn, c)
	if err != nil {
		return err
	}
	if commit > *lastSeen {
		*lastSeen = commit
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

// fail records the stream error unless the stream simply ended via Close or
// context cancellation.
func (sub *subscription) fail(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return
	}
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

func parsePayload(payload string) (store.Collection, uint64, bool) {
	i := strings.LastIndexByte(payload, ':')
	if i < 0 {
		return "", 0, false
	}
	commit, err := strconv.ParseUint(payload[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return store.Collection(payload[:i]), commit, true
}
