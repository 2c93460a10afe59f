package reconciler

import (
	"sync"
	"time"
)

// ReconnectSchedule is the push reconnect delay sequence. The last step
// repeats.
var ReconnectSchedule = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

// StepBackOff walks a fixed schedule of delays and then holds the last one.
// It satisfies backoff.BackOff from cenkalti/backoff.
type StepBackOff struct {
	mu    sync.Mutex
	steps []time.Duration
	next  int
}

func NewStepBackOff(steps ...time.Duration) *StepBackOff {
	if len(steps) == 0 {
		steps = ReconnectSchedule
	}
	return &StepBackOff{steps: append([]time.Duration(nil), steps...)}
}

func (b *StepBackOff) NextBackOff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.steps[b.next]
	if b.next < len(b.steps)-1 {
		b.next++
	}
	return d
}

func (b *StepBackOff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = 0
}
