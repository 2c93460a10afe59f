package reconciler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in   string
		want Window
		err  bool
	}{
		{in: "", want: WindowAll},
		{in: "all", want: WindowAll},
		{in: "5m", want: Window5m},
		{in: "15M", want: Window15m},
		{in: "60m", want: Window60m},
		{in: "1h", err: true},
		{in: "10m", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowedViewOfTwoHoursOfReads(t *testing.T) {
	store := NewStore(DefaultOptions())

	pull := make([]liveview.Row, 0, 500)
	step := 2 * time.Hour / 500
	for i := 0; i < 500; i++ {
		pull = append(pull, unknownRow(fmt.Sprintf("E%03d", i), now.Add(-time.Duration(i)*step)))
	}
	store.ApplyPull(pull, now)

	recent := store.View(Filter{Window: Window5m}, now)

	require.NotEmpty(t, recent)
	for _, r := range recent {
		assert.False(t, r.LastSeenAt.Before(now.Add(-5*time.Minute)), r.EPC)
	}
	// 5 minutes of 2 hours at 14.4s per read, plus the read at now
	assert.Len(t, recent, 21)
	assert.Equal(t, 500, store.Len())
	assert.Len(t, store.View(Filter{}, now), 500)
}

func TestFilterFields(t *testing.T) {
	rows := []liveview.Row{
		knownRow("a1", "E1", now.Add(-time.Minute)),
		unknownRow("E2", now.Add(-2*time.Minute)),
	}
	rows[0].Status = str("Decommissioned")

	assert.Len(t, Filter{Gate: "NORTH"}.Apply(rows, now), 1)
	assert.Len(t, Filter{Category: "laptop"}.Apply(rows, now), 1)
	assert.Len(t, Filter{Status: "Active"}.Apply(rows, now), 0)
	assert.Len(t, Filter{Status: "decommissioned", Window: Window5m}.Apply(rows, now), 1)
	assert.Len(t, Filter{Window: WindowAll}.Apply(rows, now), 2)
}

func TestFilterDoesNotMutate(t *testing.T) {
	rows := []liveview.Row{
		unknownRow("E1", now.Add(-time.Minute)),
		unknownRow("E2", now.Add(-30*time.Minute)),
	}

	filtered := Filter{Window: Window5m}.Apply(rows, now)

	assert.Len(t, filtered, 1)
	assert.Len(t, rows, 2)
	assert.Equal(t, "E2", rows[1].EPC)
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{}.Validate())
	assert.Error(t, Filter{Window: "2h"}.Validate())
}
