package daemon

import (
	"context"
	"time"
)

// Debouncer coalesces bursts of change notifications into single build
// triggers: a build fires once the quiet window elapses without further
// requests, and MaxDelay bounds how long a continuous stream of changes can
// postpone it.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	fire     func()

	requests chan struct{}
}

// NewDebouncer creates a debouncer calling fire from its Run goroutine.
func NewDebouncer(quiet, maxDelay time.Duration, fire func()) *Debouncer {
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		fire:     fire,
		requests: make(chan struct{}, 64),
	}
}

// Request notifies the debouncer of a change. Never blocks; an overflowing
// burst collapses into the already-pending trigger.
func (d *Debouncer) Request() {
	select {
	case d.requests <- struct{}{}:
	default:
	}
}

// Run processes requests until ctx is canceled. Safe to run as a single
// goroutine.
func (d *Debouncer) Run(ctx context.Context) {
	var (
		quietTimer *time.Timer
		maxTimer   *time.Timer
		quietC     <-chan time.Time
		maxC       <-chan time.Time
	)

	stopTimers := func() {
		if quietTimer != nil {
			quietTimer.Stop()
		}
		if maxTimer != nil {
			maxTimer.Stop()
		}
		quietC, maxC = nil, nil
	}

	trigger := func() {
		stopTimers()
		d.fire()
	}

	for {
		select {
		case <-ctx.Done():
			stopTimers()
			return

		case <-d.requests:
			if quietC == nil {
				// First request of a burst: arm both timers.
				quietTimer = time.NewTimer(d.quiet)
				maxTimer = time.NewTimer(d.maxDelay)
				quietC = quietTimer.C
				maxC = maxTimer.C
			} else {
				// Subsequent request: extend the quiet window only.
				if !quietTimer.Stop() {
					select {
					case <-quietTimer.C:
					default:
					}
				}
				quietTimer.Reset(d.quiet)
			}

		case <-quietC:
			trigger()

		case <-maxC:
			trigger()
		}
	}
}
