package models

import "time"

// SightingNotification is the canonical message published on the push
// channel after every accepted read.
type SightingNotification struct {
	EPC              string    `json:"epc" validate:"required"`
	AssetID          *string   `json:"assetId,omitempty"`
	AssetNumber      *string   `json:"assetNumber,omitempty"`
	AssetName        *string   `json:"assetName,omitempty"`
	Category         *string   `json:"category,omitempty"`
	Status           *string   `json:"status,omitempty"`
	IsDecommissioned *bool     `json:"isDecommissioned,omitempty"`
	Gate             *string   `json:"gate,omitempty"`
	Location         *string   `json:"location,omitempty"`
	ReaderID         *string   `json:"readerId,omitempty"`
	Timestamp        time.Time `json:"timestamp" validate:"required"`
	Direction        int       `json:"direction"`
}

// NewSightingNotification describes event, enriched with asset when the read
// was resolved.
func NewSightingNotification(event ReadEvent, asset *Asset) SightingNotification {
	n := SightingNotification{
		EPC:       event.EPC,
		AssetID:   event.AssetID,
		Gate:      event.Gate,
		ReaderID:  event.ReaderID,
		Timestamp: event.SeenAt,
		Direction: event.Direction.Code(),
	}
	if asset != nil {
		n.AssetNumber = &asset.AssetNumber
		n.AssetName = &asset.Name
		n.Category = asset.Category
		n.Location = asset.Location

		status := asset.Status
		decommissioned := asset.IsDecommissioned()
		n.Status = &status
		n.IsDecommissioned = &decommissioned
	}
	return n
}
