package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"workboard/internal/assistant/service/mocks"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/circuit"
)

func TestGuardedGeneratorFailsFastWhileOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("", dErrors.New(dErrors.CodeUnavailable, "connection refused")).
		Times(2)

	ctx := context.Background()
	guard := NewGuardedGenerator(gen,
		WithGuardBreaker(circuit.New("assistant", circuit.WithFailureThreshold(2))),
		WithGuardCooldown(time.Hour),
		WithGuardLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	for i := 0; i < 2; i++ {
		_, err := guard.Generate(ctx, "hello")
		require.Error(t, err)
	}

	// The breaker is open now; the upstream must not be called again.
	_, err := guard.Generate(ctx, "hello")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Contains(t, err.Error(), "cooling down")
}

func TestGuardedGeneratorRetriesAfterCooldownAndCloses(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	guard := NewGuardedGenerator(gen,
		WithGuardBreaker(circuit.New("assistant",
			circuit.WithFailureThreshold(1),
			circuit.WithSuccessThreshold(1),
		)),
		WithGuardCooldown(30*time.Second),
		WithGuardClock(clock),
		WithGuardLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	gen.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("", dErrors.New(dErrors.CodeUnavailable, "connection refused"))
	_, err := guard.Generate(ctx, "hello")
	require.Error(t, err)

	// Still inside the cooldown window: no upstream call.
	_, err = guard.Generate(ctx, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooling down")

	// Past the window the trial call goes through and a success closes the circuit.
	now = now.Add(time.Minute)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("recovered", nil).Times(2)

	text, err := guard.Generate(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)

	text, err = guard.Generate(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
}

func TestGuardedGeneratorIgnoresNonTransientErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	ctx := context.Background()

	badKey := dErrors.New(dErrors.CodeUnauthorized, "API key rejected")
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", badKey).Times(5)

	guard := NewGuardedGenerator(gen,
		WithGuardBreaker(circuit.New("assistant", circuit.WithFailureThreshold(2))),
		WithGuardLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	// Credential failures never open the circuit; each call reaches the
	// upstream and the original error comes back for classification.
	for i := 0; i < 5; i++ {
		_, err := guard.Generate(ctx, "hello")
		require.ErrorIs(t, err, badKey)
	}
}
