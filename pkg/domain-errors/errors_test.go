package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches wrapped code anywhere in the chain", func(t *testing.T) {
		inner := New(CodeConflict, "terminal state")
		outer := Wrap(inner, CodeInternal, "approve failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeConflict))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil cause wraps to nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause remains reachable via errors.Is", func(t *testing.T) {
		sentinel := errors.New("gone")
		err := Wrap(sentinel, CodeNotFound, "lookup failed")
		assert.True(t, errors.Is(err, sentinel))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "nope")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))
}
