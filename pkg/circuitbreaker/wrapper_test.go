package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapper_TripsAfterFailures(t *testing.T) {
	cfg := DefaultConfig("test-trip")
	cfg.Timeout = time.Hour
	w := NewWrapper(cfg)

	failing := func() (interface{}, error) { return nil, errors.New("refused") }
	for i := 0; i < 3; i++ {
		_, err := w.ExecuteWithContext(context.Background(), failing)
		require.Error(t, err)
		assert.False(t, IsRejection(err))
	}

	assert.True(t, w.IsOpen())
	_, err := w.ExecuteWithContext(context.Background(), failing)
	assert.True(t, IsRejection(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestWrapper_IsSuccessfulKeepsBreakerClosed(t *testing.T) {
	errClient := errors.New("unauthorized")
	cfg := DefaultConfig("test-success")
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errClient) }
	w := NewWrapper(cfg)

	for i := 0; i < 5; i++ {
		_, err := w.ExecuteWithContext(context.Background(), func() (interface{}, error) { return nil, errClient })
		assert.ErrorIs(t, err, errClient)
	}
	assert.Equal(t, gobreaker.StateClosed, w.State())
}

func TestWrapper_CancelledContextSkipsCall(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-ctx"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := w.ExecuteWithContext(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, uint32(0), w.Counts().Requests)
}
