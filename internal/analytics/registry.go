package analytics

import (
	"context"
	"sync"

	id "workboard/pkg/domain"
	"workboard/pkg/requestcontext"
)

// Registry hands out the tracker for a session, creating it on first use.
// Ending a session drops its tracker and every timer it held.
type Registry struct {
	sink Sink
	opts []TrackerOption

	mu       sync.Mutex
	trackers map[id.SessionID]*Tracker
}

func NewRegistry(sink Sink, opts ...TrackerOption) *Registry {
	return &Registry{
		sink:     sink,
		opts:     opts,
		trackers: make(map[id.SessionID]*Tracker),
	}
}

// ForSession returns the session's tracker, creating one if needed.
func (r *Registry) ForSession(sessionID id.SessionID, userID id.UserID) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trackers[sessionID]; ok {
		return t
	}
	t := NewTracker(sessionID, userID, r.sink, r.opts...)
	r.trackers[sessionID] = t
	return t
}

// EndSession forgets the session's tracker.
func (r *Registry) EndSession(sessionID id.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, sessionID)
}

// Login records a sign-in for the session carried in ctx. A missing session
// is ignored.
func (r *Registry) Login(ctx context.Context) {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return
	}
	r.ForSession(sessionID, requestcontext.UserID(ctx)).Login(ctx)
}

// ChatMessageSent records a chat message for the session carried in ctx.
func (r *Registry) ChatMessageSent(ctx context.Context) {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return
	}
	r.ForSession(sessionID, requestcontext.UserID(ctx)).ChatMessageSent(ctx)
}
