// Package reconciler keeps a client-side live view fresh by merging periodic
// pull snapshots with an unreliable push stream of sighting notifications.
package reconciler

import (
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
)

const unknownIdentity = "unknown"

// Identity names the thing a row describes: the asset when resolved,
// otherwise the tag, otherwise the equipment number.
func Identity(r liveview.Row) string {
	switch {
	case r.AssetID != nil && *r.AssetID != "":
		return *r.AssetID
	case r.EPC != "":
		return r.EPC
	case r.AssetNumber != nil && *r.AssetNumber != "":
		return *r.AssetNumber
	default:
		return unknownIdentity
	}
}

// Key identifies one observation. Two rows with the same key are the same
// sighting, however many times it was delivered.
func Key(r liveview.Row) string {
	return Identity(r) + "|" + r.LastSeenAt.UTC().Format(time.RFC3339Nano)
}
