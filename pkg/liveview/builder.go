// Package liveview builds the "last seen" snapshot served to live-view
// clients: every asset with a presence row plus the newest read of every
// unresolved EPC.
package liveview

import (
	"sort"
	"strings"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

// Row is one sighting in the live view. Asset fields are nil for EPCs that
// are not bound to an asset.
type Row struct {
	AssetID          *string          `json:"assetId"`
	AssetNumber      *string          `json:"assetNumber"`
	AssetName        *string          `json:"assetName"`
	Category         *string          `json:"category"`
	Status           *string          `json:"status"`
	IsDecommissioned *bool            `json:"isDecommissioned"`
	EPC              string           `json:"epc"`
	LastSeenAt       time.Time        `json:"lastSeenAt"`
	ReaderID         *string          `json:"readerId"`
	Gate             *string          `json:"gate"`
	Direction        models.Direction `json:"direction"`
	Location         *string          `json:"location"`
}

// Known reports whether the row belongs to a catalogued asset.
func (r Row) Known() bool {
	return r.AssetID != nil
}

// KnownRow is a presence row joined with its asset.
type KnownRow struct {
	Presence models.Presence
	Asset    models.Asset
}

func FromKnown(k KnownRow) Row {
	assetID := k.Presence.AssetID
	number := k.Asset.AssetNumber
	name := k.Asset.Name
	status := k.Asset.Status
	decommissioned := k.Asset.IsDecommissioned()
	return Row{
		AssetID:          &assetID,
		AssetNumber:      &number,
		AssetName:        &name,
		Category:         k.Asset.Category,
		Status:           &status,
		IsDecommissioned: &decommissioned,
		EPC:              k.Presence.LastSeenEPC,
		LastSeenAt:       k.Presence.LastSeenAt,
		ReaderID:         k.Presence.LastSeenReaderID,
		Gate:             k.Presence.LastSeenGate,
		Direction:        k.Presence.LastSeenDirection,
		Location:         k.Asset.Location,
	}
}

func FromUnresolved(event models.ReadEvent) Row {
	return Row{
		EPC:        event.EPC,
		LastSeenAt: event.SeenAt,
		ReaderID:   event.ReaderID,
		Gate:       event.Gate,
		Direction:  event.Direction,
		Location:   event.LocationID,
	}
}

// Build concatenates known and unresolved rows and sorts them newest first.
// It does no I/O, so the same inputs always give the same order.
func Build(known []KnownRow, unresolved []models.ReadEvent) []Row {
	rows := make([]Row, 0, len(known)+len(unresolved))
	for _, k := range known {
		rows = append(rows, FromKnown(k))
	}
	for _, e := range unresolved {
		rows = append(rows, FromUnresolved(e))
	}
	Sort(rows)
	return rows
}

// Sort orders rows by LastSeenAt descending, then EPC, then asset id.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return Less(rows[i], rows[j])
	})
}

func Less(a, b Row) bool {
	if !a.LastSeenAt.Equal(b.LastSeenAt) {
		return a.LastSeenAt.After(b.LastSeenAt)
	}
	if c := strings.Compare(a.EPC, b.EPC); c != 0 {
		return c < 0
	}
	return deref(a.AssetID) < deref(b.AssetID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
