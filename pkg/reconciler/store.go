package reconciler

import (
	"sync"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/metrics"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

// Store is the merged view owned by one subscription
type Store struct {
	mu       sync.RWMutex
	rows     []liveview.Row
	opts     Options
	lastPull time.Time
}

func NewStore(opts Options) *Store {
	return &Store{
		rows: []liveview.Row{},
		opts: opts.withDefaults(),
	}
}

// ApplyPull merges a fresh snapshot into the view
func (s *Store) ApplyPull(rows []liveview.Row, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = Merge(s.rows, rows, now, s.opts)
	s.lastPull = now
	metrics.ReconcilerMergesTotal.WithLabelValues("pull").Inc()
	metrics.ReconcilerViewSize.Set(float64(len(s.rows)))
}

// ApplyPush merges one notification and reports whether the view changed.
// Replaying a notification is a no-op.
func (s *Store) ApplyPush(n models.SightingNotification, now time.Time) bool {
	row := RowFromNotification(n)

	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := insert(s.rows, row, now, s.opts)
	if !changed {
		return false
	}
	s.rows = next
	metrics.ReconcilerMergesTotal.WithLabelValues("push").Inc()
	metrics.ReconcilerViewSize.Set(float64(len(s.rows)))
	return true
}

// View returns the rows matching f. The stored view is left untouched.
func (s *Store) View(f Filter, now time.Time) []liveview.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.Apply(s.rows, now)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// LastPull is the time of the most recent successful pull
func (s *Store) LastPull() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPull
}
