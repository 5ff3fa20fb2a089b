package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// DefaultInterval is the pause between consecutive external calls of the
// same kind within a run.
const DefaultInterval = 2 * time.Second

// Pacer spaces out calls: the first Wait returns immediately and every later
// Wait sleeps for the interval.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	sleep    resilience.SleepFunc
	calls    int
}

// NewPacer creates a Pacer. A nil sleep uses resilience.Sleep.
func NewPacer(interval time.Duration, sleep resilience.SleepFunc) *Pacer {
	if sleep == nil {
		sleep = resilience.Sleep
	}
	return &Pacer{interval: interval, sleep: sleep}
}

// Wait blocks until the next call may start. It returns the context error if
// ctx ends first.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	first := p.calls == 0
	p.calls++
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if first || p.interval <= 0 {
		return nil
	}
	return p.sleep(ctx, p.interval)
}
