package models

import "time"

// Presence is the last known sighting of an asset.
type Presence struct {
	AssetID           string
	LastSeenEPC       string
	LastSeenAt        time.Time
	LastSeenReaderID  *string
	LastSeenGate      *string
	LastSeenDirection Direction
	UpdatedAt         time.Time
}

// PresenceFromEvent builds the presence row a resolved read produces.
func PresenceFromEvent(event ReadEvent) Presence {
	assetID := ""
	if event.AssetID != nil {
		assetID = *event.AssetID
	}
	return Presence{
		AssetID:           assetID,
		LastSeenEPC:       event.EPC,
		LastSeenAt:        event.SeenAt,
		LastSeenReaderID:  event.ReaderID,
		LastSeenGate:      event.Gate,
		LastSeenDirection: event.Direction,
	}
}
