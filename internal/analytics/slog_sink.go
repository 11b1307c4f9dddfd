package analytics

import (
	"context"
	"log/slog"
)

// SlogSink writes events to structured logs. It is the always-on sink.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event Event) {
	s.logger.InfoContext(ctx, "analytics event",
		"type", event.Type,
		"session_id", event.SessionID,
		"user_id", event.UserID,
		"at", event.At,
		"fields", event.Fields,
	)
}
