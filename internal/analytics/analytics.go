// Package analytics records product events scoped to a session. Trackers
// hold the funnel timers; sinks carry the events out of the process.
package analytics

import (
	"context"
	"time"
)

// EventType names a product event.
type EventType string

const (
	EventLogin           EventType = "login"
	EventTaskFormOpen    EventType = "task_form_open"
	EventTaskFormSubmit  EventType = "task_form_submit"
	EventTaskFormAbandon EventType = "task_form_abandon"
	EventChatMessageSent EventType = "chat_message_sent"
	EventPageView        EventType = "page_view"
	EventPageLeave       EventType = "page_leave"
)

// Event is one emitted product event. Fields carry event-specific details
// such as elapsed seconds or device info.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	At        time.Time      `json:"at"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Sink carries events out of the process. Emit must not block the request
// path for long; sinks that can fail should log and drop.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// MultiSink fans an event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		s.Emit(ctx, event)
	}
}
