package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWrapf(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "wrapped: %d", 42)

	assert.Contains(t, wrapped.Error(), "wrapped: 42")
	assert.Contains(t, wrapped.Error(), "original")
}

func TestSentinels(t *testing.T) {
	assert.True(t, IsNotFound(Wrap(ErrNotFound, "entity EN123")))
	assert.False(t, IsNotFound(New("something else")))
	assert.False(t, IsNotFound(nil))

	assert.True(t, IsRetryable(NewRetryablef("extractor returned %d", 503)))
	assert.False(t, IsRetryable(ErrInvalidInput))
}

func TestNewNotFoundf(t *testing.T) {
	err := NewNotFoundf("entity %s", "EN42")
	require.NotNil(t, err)
	assert.True(t, Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "EN42")
}

func TestConflictWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrConflict, "alias %q already registered", "epstein")
	assert.True(t, Is(err, ErrConflict))
}
