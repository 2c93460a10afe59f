package models

import "time"

type UndiscoveredStatus string

const (
	UndiscoveredStatusOpen     UndiscoveredStatus = "undiscovered"
	UndiscoveredStatusPromoted UndiscoveredStatus = "promoted"
)

// UndiscoveredRecord is the typed extract of one feed row. Every field is
// optional.
type UndiscoveredRecord struct {
	MaterialDescription           *string `json:"materialDescription,omitempty"`
	Description                   *string `json:"description,omitempty"`
	FunctionalLocationDescription *string `json:"functionalLocationDescription,omitempty"`
	FunctionalLocation            *string `json:"functionalLocation,omitempty"`
	Location                      *string `json:"location,omitempty"`
	EquipmentNumber               *string `json:"equipmentNumber,omitempty"`
	EPC                           *string `json:"epc,omitempty"`
}

// UndiscoveredAsset is a feed row that is not yet a catalog record. The raw
// payload is kept for audit next to the record extracted from it.
type UndiscoveredAsset struct {
	ID              string
	MappingName     string
	MappingVersion  int
	Payload         map[string]any
	Record          UndiscoveredRecord
	Source          *string
	Status          UndiscoveredStatus
	PromotedAssetID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
