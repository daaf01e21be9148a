package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// attempt tracks one fetch+decode pipeline between issuance and settlement.
// settle publishes the outcome exactly once; detectors only ever read it.
type attempt struct {
	done    chan struct{}
	settled atomic.Bool
	once    sync.Once

	res *Result
	err error
}

func newAttempt() *attempt {
	return &attempt{done: make(chan struct{})}
}

// settle publishes the outcome. res/err are written before settled flips
// and done closes, so any observer that sees settlement reads final values.
func (a *attempt) settle(res *Result, err error) {
	a.once.Do(func() {
		a.res, a.err = res, err
		a.settled.Store(true)
		close(a.done)
	})
}

// completionDetector delivers an attempt's settlement to the caller.
// Two interchangeable strategies exist so the rest of the pipeline is
// written against one interface regardless of platform.
type completionDetector interface {
	await(ctx context.Context, a *attempt) (*Result, error)
}

// eventDetector waits on the attempt's done channel directly. The normal
// strategy on engines with reliable completion signaling.
type eventDetector struct{}

func (eventDetector) await(ctx context.Context, a *attempt) (*Result, error) {
	select {
	case <-a.done:
		return a.res, a.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// pollDetector re-checks actual completion on a fixed ticker, driving
// success or failure manually when the native signal is missed.
type pollDetector struct {
	interval time.Duration
}

func (p pollDetector) await(ctx context.Context, a *attempt) (*Result, error) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if a.settled.Load() {
				return a.res, a.err
			}
		case <-ctx.Done():
			// One last check: the attempt may have settled in the same
			// instant the deadline fired.
			if a.settled.Load() {
				return a.res, a.err
			}
			return nil, ErrTimeout
		}
	}
}
