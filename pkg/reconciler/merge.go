package reconciler

import (
	"sort"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/metrics"
)

const (
	DefaultRetention = time.Hour
	DefaultLimit     = 500
)

// Options bound the merged view
type Options struct {
	// Retention is how long a row missing from the latest pull survives
	Retention time.Duration
	// Limit caps the view to the most recent rows
	Limit int
}

func DefaultOptions() Options {
	return Options{
		Retention: DefaultRetention,
		Limit:     DefaultLimit,
	}
}

func (o Options) withDefaults() Options {
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

// Merge folds a fresh pull into the prior view. The view holds one row per
// identity:
//   - pull rows win for their key
//   - a prior row absent from the pull survives only inside the retention
//     window, and only if it is newer than the pull's row for its identity
//   - a surviving prior row borrows catalog fields it lacks from the pull row
//     it replaces
//
// Neither input is modified.
func Merge(prior, pull []liveview.Row, now time.Time, opts Options) []liveview.Row {
	opts = opts.withDefaults()
	cutoff := now.Add(-opts.Retention)

	merged := make([]liveview.Row, 0, len(pull)+len(prior))
	byIdentity := make(map[string]int, len(pull)+len(prior))
	pullKeys := make(map[string]struct{}, len(pull))

	for _, r := range pull {
		pullKeys[Key(r)] = struct{}{}
		id := Identity(r)
		if i, ok := byIdentity[id]; ok {
			if r.LastSeenAt.After(merged[i].LastSeenAt) {
				merged[i] = r
			}
			continue
		}
		byIdentity[id] = len(merged)
		merged = append(merged, r)
	}

	for _, r := range prior {
		if _, ok := pullKeys[Key(r)]; ok {
			continue
		}
		if r.LastSeenAt.Before(cutoff) {
			metrics.ReconcilerDroppedTotal.WithLabelValues("stale").Inc()
			continue
		}
		id := Identity(r)
		if i, ok := byIdentity[id]; ok {
			if r.LastSeenAt.After(merged[i].LastSeenAt) {
				merged[i] = backfill(r, merged[i])
			}
			continue
		}
		byIdentity[id] = len(merged)
		merged = append(merged, r)
	}

	return finish(merged, opts.Limit)
}

// insert adds a single pushed row to view under the same rules as Merge and
// reports whether the view changed. view is not modified.
func insert(view []liveview.Row, r liveview.Row, now time.Time, opts Options) ([]liveview.Row, bool) {
	opts = opts.withDefaults()
	if r.LastSeenAt.Before(now.Add(-opts.Retention)) {
		metrics.ReconcilerDroppedTotal.WithLabelValues("stale").Inc()
		return view, false
	}

	id := Identity(r)
	next := make([]liveview.Row, 0, len(view)+1)
	replaced := false
	for _, existing := range view {
		if replaced || Identity(existing) != id {
			next = append(next, existing)
			continue
		}
		if !r.LastSeenAt.After(existing.LastSeenAt) {
			metrics.ReconcilerDroppedTotal.WithLabelValues("superseded").Inc()
			return view, false
		}
		next = append(next, backfill(r, existing))
		replaced = true
	}
	if !replaced {
		next = append(next, r)
	}

	return finish(next, opts.Limit), true
}

// backfill copies catalog fields that newer lacks from older
func backfill(newer, older liveview.Row) liveview.Row {
	if newer.AssetID == nil {
		newer.AssetID = older.AssetID
	}
	if newer.AssetNumber == nil {
		newer.AssetNumber = older.AssetNumber
	}
	if newer.AssetName == nil {
		newer.AssetName = older.AssetName
	}
	if newer.Category == nil {
		newer.Category = older.Category
	}
	if newer.Status == nil {
		newer.Status = older.Status
	}
	if newer.IsDecommissioned == nil {
		newer.IsDecommissioned = older.IsDecommissioned
	}
	if newer.Location == nil {
		newer.Location = older.Location
	}
	return newer
}

func finish(rows []liveview.Row, limit int) []liveview.Row {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.LastSeenAt.Equal(b.LastSeenAt) {
			return a.LastSeenAt.After(b.LastSeenAt)
		}
		return Key(a) < Key(b)
	})
	if len(rows) > limit {
		metrics.ReconcilerDroppedTotal.WithLabelValues("limit").Add(float64(len(rows) - limit))
		rows = rows[:limit]
	}
	return rows
}
