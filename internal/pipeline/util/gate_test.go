package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateSpacesCalls(t *testing.T) {
	const interval = 30 * time.Millisecond
	g := NewGate(interval)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Acquire(context.Background()))
	}
	elapsed := time.Since(start)

	// first acquire is immediate, the next two wait a full interval each
	require.GreaterOrEqual(t, elapsed, 2*interval)
}

func TestGateZeroIntervalNeverBlocks(t *testing.T) {
	g := NewGate(0)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = g.Acquire(context.Background())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("gate with no interval blocked")
	}
}

func TestGateHonorsContext(t *testing.T) {
	g := NewGate(time.Hour)
	require.NoError(t, g.Acquire(context.Background())) // consume the burst token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := g.Acquire(ctx)
	require.Error(t, err)
}
