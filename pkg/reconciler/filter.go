package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
)

// Window limits a view to recent rows
type Window string

const (
	WindowAll Window = "all"
	Window5m  Window = "5m"
	Window15m Window = "15m"
	Window60m Window = "60m"
)

// ParseWindow accepts all, 5m, 15m or 60m. Empty means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "", WindowAll:
		return WindowAll, nil
	case Window5m, Window15m, Window60m:
		return w, nil
	default:
		return "", fmt.Errorf("window must be one of all, 5m, 15m, 60m, got %q", s)
	}
}

// Duration is zero for WindowAll
func (w Window) Duration() time.Duration {
	switch w {
	case Window5m:
		return 5 * time.Minute
	case Window15m:
		return 15 * time.Minute
	case Window60m:
		return 60 * time.Minute
	default:
		return 0
	}
}

// Filter selects rows from a merged view. Empty fields match anything.
type Filter struct {
	Gate     string
	Category string
	Status   string
	Window   Window
}

func (f Filter) Validate() error {
	_, err := ParseWindow(string(f.Window))
	return err
}

// Match reports whether r passes every populated criterion
func (f Filter) Match(r liveview.Row, now time.Time) bool {
	if !matchText(f.Gate, r.Gate) {
		return false
	}
	if !matchText(f.Category, r.Category) {
		return false
	}
	if !matchText(f.Status, r.Status) {
		return false
	}
	if d := f.Window.Duration(); d > 0 && r.LastSeenAt.Before(now.Add(-d)) {
		return false
	}
	return true
}

// Apply returns the matching rows in a new slice, keeping their order
func (f Filter) Apply(rows []liveview.Row, now time.Time) []liveview.Row {
	out := make([]liveview.Row, 0, len(rows))
	for _, r := range rows {
		if f.Match(r, now) {
			out = append(out, r)
		}
	}
	return out
}

func matchText(want string, got *string) bool {
	if want == "" {
		return true
	}
	return got != nil && strings.EqualFold(strings.TrimSpace(*got), strings.TrimSpace(want))
}
