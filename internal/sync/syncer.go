// Package sync keeps in-memory mirrors of the four board collections fed by
// push snapshots from the document store. Mirrors are the authoritative read
// model: writes go to the store optimistically and the matching snapshot
// updates the mirror.
package sync

import (
	"context"
	"log/slog"
	"sort"
	stdsync "sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"workboard/internal/domain"
	"workboard/internal/store"
	"workboard/internal/workitem/scoring"
	id "workboard/pkg/domain"
)

const (
	resubscribeBaseDelay = 100 * time.Millisecond
	resubscribeMaxDelay  = 5 * time.Second
)

// Syncer subscribes to every collection and maintains decoded, scored
// mirrors. A failing subscription marks only its own mirror stale; the other
// collections keep flowing.
type Syncer struct {
	store   store.Store
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time

	mu         stdsync.RWMutex
	weights    domain.Weights
	items      []domain.WorkItem
	users      []domain.User
	proposals  []domain.Proposal
	directives []domain.Directive
	commits    map[store.Collection]uint64
	stale      map[store.Collection]bool

	changes chan struct{}

	runMu  stdsync.Mutex
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

// WithWeights sets the initial scoring weights.
func WithWeights(w domain.Weights) Option {
	return func(s *Syncer) { s.weights = w }
}

// WithClock overrides the time source used for rescoring.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Syncer over the given store.
func New(st store.Store, opts ...Option) *Syncer {
	s := &Syncer{
		store:   st,
		logger:  slog.Default(),
		tracer:  otel.Tracer("workboard/sync"),
		now:     time.Now,
		weights: domain.DefaultWeights(),
		commits: make(map[store.Collection]uint64),
		stale:   make(map[store.Collection]bool),
		changes: make(chan struct{}, 1),
	}
	// Until the first snapshot of a collection lands, its mirror is stale.
	for _, c := range store.Collections {
		s.stale[c] = true
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start launches one subscription loop per collection. Calling Start on a
// running Syncer restarts it, which is how a sign-in rebuilds the mirrors.
func (s *Syncer) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, c := range store.Collections {
		s.wg.Add(1)
		go func(c store.Collection) {
			defer s.wg.Done()
			s.runCollection(runCtx, c)
		}(c)
	}
}

// Stop tears the subscriptions down. Snapshots arriving after Stop are
// discarded; the mirrors keep their last contents but are marked stale.
func (s *Syncer) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.stopLocked()
}

func (s *Syncer) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.wg.Wait()

	s.mu.Lock()
	for _, c := range store.Collections {
		s.stale[c] = true
	}
	s.mu.Unlock()
}

// SetWeights replaces the scoring weights and rescores the work item mirror
// locally; no store round trip is involved.
func (s *Syncer) SetWeights(w domain.Weights) {
	s.mu.Lock()
	s.weights = w
	s.items = scoring.Rescore(s.items, s.now(), w)
	s.mu.Unlock()
	s.notify()
}

// Weights returns the current scoring weights.
func (s *Syncer) Weights() domain.Weights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights
}

// Changes is a coalesced notification channel: at least one receive is
// pending after any mirror update.
func (s *Syncer) Changes() <-chan struct{} {
	return s.changes
}

// WorkItems returns a copy of the work item mirror with priority scores
// recomputed against the current clock. The deadline term moves as time
// passes, so a score cached at the last snapshot would drift stale on a
// commit-quiet board.
func (s *Syncer) WorkItems() []domain.WorkItem {
	s.mu.RLock()
	out := make([]domain.WorkItem, len(s.items))
	copy(out, s.items)
	w := s.weights
	s.mu.RUnlock()
	return scoring.Rescore(out, s.now(), w)
}

// Users returns a copy of the roster mirror.
func (s *Syncer) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.users))
	copy(out, s.users)
	return out
}

// User looks a roster member up in the mirror.
func (s *Syncer) User(userID id.UserID) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == userID {
			return u, true
		}
	}
	return domain.User{}, false
}

// Proposals returns a copy of the proposal mirror.
func (s *Syncer) Proposals() []domain.Proposal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Proposal, len(s.proposals))
	copy(out, s.proposals)
	return out
}

// Directives returns a copy of the directive mirror.
func (s *Syncer) Directives() []domain.Directive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Directive, len(s.directives))
	copy(out, s.directives)
	return out
}

// Commit reports the last applied commit of a collection.
func (s *Syncer) Commit(c store.Collection) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits[c]
}

// Stale reports whether a collection mirror is behind its stream.
func (s *Syncer) Stale(c store.Collection) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale[c]
}

func (s *Syncer) runCollection(ctx context.Context, c store.Collection) {
	delay := resubscribeBaseDelay
	for {
		if ctx.Err() != nil {
			return
		}
		sub, err := s.store.Subscribe(ctx, c)
		if err != nil {
			s.streamFailed(ctx, c, err)
			if !sleep(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		for snap := range sub.Snapshots() {
			s.apply(ctx, snap)
			delay = resubscribeBaseDelay
		}
		sub.Close()

		if ctx.Err() != nil {
			return
		}
		// Stream ended on its own: transport trouble. Mark the mirror
		// stale and try again.
		s.streamFailed(ctx, c, sub.Err())
		if !sleep(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

func (s *Syncer) streamFailed(ctx context.Context, c store.Collection, err error) {
	s.mu.Lock()
	s.stale[c] = true
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SubscriptionFailures.WithLabelValues(string(c)).Inc()
	}
	s.logger.WarnContext(ctx, "collection stream failed",
		"collection", string(c), "error", err)
	s.notify()
}

// apply replaces one mirror with the snapshot contents. Snapshots carrying a
// commit older than the mirror are dropped.
func (s *Syncer) apply(ctx context.Context, snap store.Snapshot) {
	ctx, span := s.tracer.Start(ctx, "sync.apply",
		trace.WithAttributes(
			attribute.String("collection", string(snap.Collection)),
			attribute.Int64("commit", int64(snap.Commit)),
			attribute.Int("documents", len(snap.Docs)),
		))
	defer span.End()

	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if last, seen := s.commits[snap.Collection]; seen && snap.Commit < last {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.StaleSnapshots.WithLabelValues(string(snap.Collection)).Inc()
		}
		return
	}

	malformed := 0
	switch snap.Collection {
	case store.CollectionWorkItems:
		items := make([]domain.WorkItem, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			item, err := domain.DecodeWorkItem(doc.ID, doc.Data)
			if err != nil {
				malformed++
				continue
			}
			items = append(items, item)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ID.String() < items[j].ID.String() })
		s.items = scoring.Rescore(items, s.now(), s.weights)
	case store.CollectionUsers:
		users := make([]domain.User, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			u, err := domain.DecodeUser(doc.ID, doc.Data)
			if err != nil {
				malformed++
				continue
			}
			users = append(users, u)
		}
		sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
		s.users = users
	case store.CollectionProposals:
		proposals := make([]domain.Proposal, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			p, err := domain.DecodeProposal(doc.ID, doc.Data)
			if err != nil {
				malformed++
				continue
			}
			proposals = append(proposals, p)
		}
		sort.Slice(proposals, func(i, j int) bool { return proposals[i].CreatedAt.After(proposals[j].CreatedAt) })
		s.proposals = proposals
	case store.CollectionDirectives:
		directives := make([]domain.Directive, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			d, err := domain.DecodeDirective(doc.ID, doc.Data)
			if err != nil {
				malformed++
				continue
			}
			directives = append(directives, d)
		}
		sort.Slice(directives, func(i, j int) bool { return directives[i].CreatedAt.After(directives[j].CreatedAt) })
		s.directives = directives
	}
	s.commits[snap.Collection] = snap.Commit
	s.stale[snap.Collection] = false
	s.mu.Unlock()

	if malformed > 0 {
		s.logger.WarnContext(ctx, "dropped undecodable documents",
			"collection", string(snap.Collection), "count", malformed)
	}
	if s.metrics != nil {
		s.metrics.SnapshotsApplied.WithLabelValues(string(snap.Collection)).Inc()
		s.metrics.MirrorDocuments.WithLabelValues(string(snap.Collection)).Set(float64(len(snap.Docs) - malformed))
		if malformed > 0 {
			s.metrics.MalformedDocuments.WithLabelValues(string(snap.Collection)).Add(float64(malformed))
		}
	}
	s.notify()
}

func (s *Syncer) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > resubscribeMaxDelay {
		return resubscribeMaxDelay
	}
	return d
}
