package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mssola/useragent"

	id "workboard/pkg/domain"
	"workboard/pkg/requestcontext"
)

// Tracker records events for one session. It owns the funnel timers, so
// concurrent sessions never see each other's elapsed times.
type Tracker struct {
	sessionID id.SessionID
	userID    id.UserID
	sink      Sink
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time

	mu         sync.Mutex
	formOpened time.Time
	lastField  string
	pageStarts map[string]time.Time
}

type TrackerOption func(*Tracker)

func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock overrides the tracker's time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTracker(sessionID id.SessionID, userID id.UserID, sink Sink, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		sessionID:  sessionID,
		userID:     userID,
		sink:       sink,
		logger:     slog.Default(),
		now:        time.Now,
		pageStarts: make(map[string]time.Time),
	}
	if t.sink == nil {
		t.sink = NopSink{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Login records a sign-in with device info parsed from the request's
// User-Agent.
func (t *Tracker) Login(ctx context.Context) {
	fields := map[string]any{}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		parsed := useragent.New(ua)
		browser, version := parsed.Browser()
		fields["browser"] = browser
		fields["browser_version"] = version
		fields["os"] = parsed.OS()
		fields["mobile"] = parsed.Mobile()
	}
	t.emit(ctx, EventLogin, fields)
}

// FormOpened starts the task-form funnel timer.
func (t *Tracker) FormOpened(ctx context.Context) {
	t.mu.Lock()
	t.formOpened = t.now()
	t.lastField = ""
	t.mu.Unlock()
	t.emit(ctx, EventTaskFormOpen, nil)
}

// FormField notes the most recently touched form field.
func (t *Tracker) FormField(field string) {
	t.mu.Lock()
	t.lastField = field
	t.mu.Unlock()
}

// FormSubmitted closes the funnel with a submit.
func (t *Tracker) FormSubmitted(ctx context.Context) {
	t.emit(ctx, EventTaskFormSubmit, t.closeForm())
}

// FormAbandoned closes the funnel without a submit, recording how far the
// user got.
func (t *Tracker) FormAbandoned(ctx context.Context) {
	t.emit(ctx, EventTaskFormAbandon, t.closeForm())
}

func (t *Tracker) closeForm() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	fields := map[string]any{}
	if !t.formOpened.IsZero() {
		fields["elapsed_seconds"] = t.now().Sub(t.formOpened).Seconds()
	}
	if t.lastField != "" {
		fields["last_field"] = t.lastField
	}
	t.formOpened = time.Time{}
	t.lastField = ""
	return fields
}

// ChatMessageSent records one assistant chat message.
func (t *Tracker) ChatMessageSent(ctx context.Context) {
	t.emit(ctx, EventChatMessageSent, nil)
}

// PageView starts the dwell timer for a page.
func (t *Tracker) PageView(ctx context.Context, page string) {
	t.mu.Lock()
	t.pageStarts[page] = t.now()
	t.mu.Unlock()
	t.emit(ctx, EventPageView, map[string]any{"page": page})
}

// PageLeave records leaving a page with the dwell time since its view.
func (t *Tracker) PageLeave(ctx context.Context, page string) {
	fields := map[string]any{"page": page}
	t.mu.Lock()
	if start, ok := t.pageStarts[page]; ok {
		fields["dwell_seconds"] = t.now().Sub(start).Seconds()
		delete(t.pageStarts, page)
	}
	t.mu.Unlock()
	t.emit(ctx, EventPageLeave, fields)
}

func (t *Tracker) emit(ctx context.Context, typ EventType, fields map[string]any) {
	event := Event{
		Type:      typ,
		SessionID: t.sessionID.String(),
		UserID:    t.userID.String(),
		At:        t.now().UTC(),
		Fields:    fields,
	}
	if t.metrics != nil {
		t.metrics.Events.WithLabelValues(string(typ)).Inc()
	}
	t.sink.Emit(ctx, event)
}
