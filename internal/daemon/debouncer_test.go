package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var fires atomic.Int32
	d := NewDebouncer(50*time.Millisecond, time.Second, func() { fires.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for i := 0; i < 5; i++ {
		d.Request()
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return fires.Load() == 1 },
		time.Second, 10*time.Millisecond, "burst should coalesce into one trigger")

	// No further requests, no further fires.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load())
}

func TestDebouncerMaxDelayBoundsPostponement(t *testing.T) {
	var fires atomic.Int32
	d := NewDebouncer(100*time.Millisecond, 250*time.Millisecond, func() { fires.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// Keep the quiet window from ever elapsing.
	done := time.After(600 * time.Millisecond)
	ticker := time.NewTicker(30 * time.Millisecond)
	defer ticker.Stop()

spam:
	for {
		select {
		case <-done:
			break spam
		case <-ticker.C:
			d.Request()
		}
	}

	assert.GreaterOrEqual(t, fires.Load(), int32(1),
		"max delay must force a build despite continuous changes")
}

func TestDebouncerSeparateBursts(t *testing.T) {
	var fires atomic.Int32
	d := NewDebouncer(40*time.Millisecond, time.Second, func() { fires.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Request()
	assert.Eventually(t, func() bool { return fires.Load() == 1 }, time.Second, 5*time.Millisecond)

	d.Request()
	assert.Eventually(t, func() bool { return fires.Load() == 2 }, time.Second, 5*time.Millisecond)
}

// Cancellation must not abandon a trigger callback that is already running:
// callers rely on Run returning only between fires to drain cleanly.
func TestDebouncerRunWaitsForInFlightFire(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	d := NewDebouncer(10*time.Millisecond, time.Second, func() {
		close(started)
		<-release
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Request()
	<-started
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while the trigger callback was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the callback completed")
	}
}

func TestDebouncerRequestNeverBlocks(t *testing.T) {
	d := NewDebouncer(time.Hour, time.Hour, func() {})
	// No Run goroutine: a flood of requests must still return promptly.
	for i := 0; i < 1000; i++ {
		d.Request()
	}
}
