package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	calls atomic.Int32
	n     int64
	err   error
	block chan struct{}
}

func (f *fakeCleaner) Cleanup(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.n, f.err
}

func TestNewSweeper_Schedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "empty uses default", schedule: ""},
		{name: "descriptor", schedule: "@every 30m"},
		{name: "standard cron", schedule: "0 * * * *"},
		{name: "garbage", schedule: "every hour", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := NewSweeper(&fakeCleaner{}, test.schedule, nil)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if test.schedule == "" {
				assert.Equal(t, DefaultCleanupSchedule, s.schedule)
			}
		})
	}
}

func TestSweeper_RunOnce(t *testing.T) {
	ok := &fakeCleaner{n: 4}
	s, err := NewSweeper(ok, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.RunOnce(context.Background()))

	failing := &fakeCleaner{n: 4, err: errors.New("db down")}
	s, err = NewSweeper(failing, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.RunOnce(context.Background()))
}

// Requirement: the sweep runs on schedule once started and not after Stop.
func TestSweeper_StartStop(t *testing.T) {
	// Arrange
	c := &fakeCleaner{}
	s, err := NewSweeper(c, "@every 1s", nil)
	require.NoError(t, err)

	// Act
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second Start is a no-op")

	// Assert
	require.Eventually(t, func() bool { return c.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "second Stop is a no-op")

	after := c.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, c.calls.Load())
}

// Requirement: Stop gives up waiting when its context ends and cancels the in-flight sweep.
func TestSweeper_Stop_Deadline(t *testing.T) {
	c := &fakeCleaner{block: make(chan struct{})}
	defer close(c.block)

	s, err := NewSweeper(c, "@every 1s", nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return c.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSweeper_Stop_NotStarted(t *testing.T) {
	s, err := NewSweeper(&fakeCleaner{}, "", nil)
	require.NoError(t, err)

	assert.NoError(t, s.Stop(context.Background()))
}
