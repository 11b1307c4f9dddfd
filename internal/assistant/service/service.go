// Package service is the AI assistant boundary. It turns board state into
// prompt context, calls a text generator, and keeps generator failures
// advisory so a broken AI never takes down a session.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"workboard/internal/domain"
	"workboard/internal/store"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/requestcontext"
)

// Generator is one request/response text generation call. Implementations
// classify failures with domain-error codes: CodeUnauthorized/CodeForbidden
// for rejected credentials, CodeQuotaExceeded for rate limits,
// CodeUnavailable for transport problems.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Advisory strings returned in place of a reply when the generator fails.
const (
	AdvisoryBadCredentials = "The assistant's credentials were rejected. Ask an administrator to check the configured API key."
	AdvisoryQuotaExceeded  = "The assistant has hit its usage quota. Please try again in a little while."
	AdvisoryNetwork        = "The assistant service could not be reached. Check the network and try again."
	AdvisoryGeneric        = "The assistant could not produce a reply right now. Please try again."
)

// Mirror is the synced board state the assistant reads for prompt context.
type Mirror interface {
	WorkItems() []domain.WorkItem
	Users() []domain.User
	User(userID id.UserID) (domain.User, bool)
	Directives() []domain.Directive
}

// Reply is the assistant's answer. Advisory replies carry a failure notice
// instead of generated text.
type Reply struct {
	Text     string
	Advisory bool
}

// Events receives product events from the chat flow.
type Events interface {
	ChatMessageSent(ctx context.Context)
}

type Service struct {
	generator Generator
	mirror    Mirror
	store     store.Store
	logger    *slog.Logger
	metrics   *Metrics
	events    Events
	tracer    trace.Tracer
	timeout   time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEvents(e Events) Option {
	return func(s *Service) { s.events = e }
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func New(generator Generator, mirror Mirror, st store.Store, opts ...Option) *Service {
	s := &Service{
		generator: generator,
		mirror:    mirror,
		store:     st,
		logger:    slog.Default(),
		tracer:    otel.Tracer("workboard/assistant"),
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// StrategyReply answers a chat message with the current board state and the
// stored directives as context. Generator failures come back as advisory
// replies, never as errors.
func (s *Service) StrategyReply(ctx context.Context, message string) (Reply, error) {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return Reply{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, dErrors.New(dErrors.CodeValidation, "message is required")
	}

	ctx, span := s.tracer.Start(ctx, "assistant.strategy_reply",
		trace.WithAttributes(attribute.String("user_id", actor.String())),
	)
	defer span.End()

	if s.events != nil {
		s.events.ChatMessageSent(ctx)
	}

	tc, err := s.gatherTeamContext(ctx, actor)
	if err != nil {
		return Reply{}, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.generator.Generate(genCtx, s.strategyPrompt(tc, message))
	if err != nil {
		advisory, class := classify(err)
		span.SetAttributes(attribute.String("failure_class", class))
		if s.metrics != nil {
			s.metrics.GeneratorFailures.WithLabelValues(class).Inc()
		}
		s.logger.WarnContext(ctx, "generator failed, replying with advisory",
			"class", class,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return Reply{Text: advisory, Advisory: true}, nil
	}

	if s.metrics != nil {
		s.metrics.Replies.Inc()
	}
	return Reply{Text: strings.TrimSpace(text)}, nil
}

// LearnDirective condenses manager input into a one-line summary and stores
// it as a directive. Manager-only. A generator failure falls back to a
// truncated first line so the directive is never lost.
func (s *Service) LearnDirective(ctx context.Context, text string) (domain.Directive, error) {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return domain.Directive{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if requestcontext.Role(ctx) != string(domain.RoleManager) {
		return domain.Directive{}, dErrors.New(dErrors.CodeForbidden, "only managers may teach directives")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Directive{}, dErrors.New(dErrors.CodeValidation, "text is required")
	}

	ctx, span := s.tracer.Start(ctx, "assistant.learn_directive")
	defer span.End()

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	summary, err := s.generator.Generate(genCtx, s.summarizePrompt(text))
	if err != nil {
		_, class := classify(err)
		span.SetAttributes(attribute.String("failure_class", class))
		if s.metrics != nil {
			s.metrics.GeneratorFailures.WithLabelValues(class).Inc()
		}
		s.logger.WarnContext(ctx, "generator failed, storing truncated directive",
			"class", class,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		summary = text
	}

	directive := domain.Directive{
		ID:        id.NewDirectiveID(),
		Text:      text,
		Summary:   oneLine(summary),
		CreatedAt: requestcontext.Now(ctx),
		CreatedBy: actor,
	}
	if author, ok := s.mirror.User(actor); ok {
		directive.CreatedByName = author.Name
	}

	data, err := domain.EncodeDirective(directive)
	if err != nil {
		return domain.Directive{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode directive")
	}
	if err := s.store.Insert(ctx, store.CollectionDirectives, store.Document{ID: directive.ID.String(), Data: data}); err != nil {
		return domain.Directive{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store directive")
	}

	if s.metrics != nil {
		s.metrics.DirectivesLearned.Inc()
	}
	s.logger.InfoContext(ctx, "directive learned",
		"directive_id", directive.ID,
		"created_by", actor,
		"request_id", requestcontext.RequestID(ctx),
	)
	return directive, nil
}

func classify(err error) (advisory, class string) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnauthorized, dErrors.CodeForbidden:
		return AdvisoryBadCredentials, "credentials"
	case dErrors.CodeQuotaExceeded:
		return AdvisoryQuotaExceeded, "quota"
	case dErrors.CodeUnavailable:
		return AdvisoryNetwork, "network"
	default:
		return AdvisoryGeneric, "other"
	}
}

// oneLine clamps a summary to its first line and a sane length.
func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	runes := []rune(s)
	if len(runes) > 160 {
		s = string(runes[:160])
	}
	return s
}
