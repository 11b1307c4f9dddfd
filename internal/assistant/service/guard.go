package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/circuit"
)

const defaultGuardCooldown = 30 * time.Second

// GuardedGenerator wraps a Generator with a circuit breaker so that repeated
// transport failures stop hitting the upstream on every chat turn. While the
// breaker is open, calls fail fast; one trial call is let through per
// cooldown window so the breaker can close again once the upstream recovers.
type GuardedGenerator struct {
	inner    Generator
	breaker  *circuit.Breaker
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	lastTrial time.Time
}

// GuardOption configures a GuardedGenerator.
type GuardOption func(*GuardedGenerator)

// WithGuardLogger sets the logger for breaker transitions.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *GuardedGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardCooldown sets the delay between trial calls while open.
func WithGuardCooldown(d time.Duration) GuardOption {
	return func(g *GuardedGenerator) {
		if d > 0 {
			g.cooldown = d
		}
	}
}

// WithGuardBreaker substitutes the breaker, mainly to tune thresholds.
func WithGuardBreaker(b *circuit.Breaker) GuardOption {
	return func(g *GuardedGenerator) {
		if b != nil {
			g.breaker = b
		}
	}
}

// WithGuardClock injects the clock used for the cooldown window in tests.
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *GuardedGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGuardedGenerator wraps gen with a circuit breaker.
func NewGuardedGenerator(gen Generator, opts ...GuardOption) *GuardedGenerator {
	g := &GuardedGenerator{
		inner:    gen,
		breaker:  circuit.New("assistant"),
		cooldown: defaultGuardCooldown,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate delegates to the wrapped generator, failing fast while the
// breaker is open. Only transport and upstream errors count toward opening;
// credential and quota errors pass through untouched so their advisories
// stay accurate.
func (g *GuardedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.breaker.IsOpen() && !g.takeTrial() {
		return "", dErrors.New(dErrors.CodeUnavailable, "assistant upstream is cooling down")
	}

	text, err := g.inner.Generate(ctx, prompt)
	if err != nil {
		if transientGeneratorError(err) {
			if _, change := g.breaker.RecordFailure(); change.Opened {
				g.logger.Warn("assistant circuit opened",
					"breaker", g.breaker.Name(),
					"error", err,
				)
				g.markTrial()
			}
		}
		return "", err
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.Info("assistant circuit closed", "breaker", g.breaker.Name())
	}
	return text, nil
}

// takeTrial claims the single trial slot for the current cooldown window.
func (g *GuardedGenerator) takeTrial() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.now().Sub(g.lastTrial) < g.cooldown {
		return false
	}
	g.lastTrial = g.now()
	return true
}

func (g *GuardedGenerator) markTrial() {
	g.mu.Lock()
	g.lastTrial = g.now()
	g.mu.Unlock()
}

func transientGeneratorError(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnavailable, dErrors.CodeInternal:
		return true
	default:
		return false
	}
}
