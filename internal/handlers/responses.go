package handlers

import (
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/Farcas-Consult/rams-sub000/internal/services/undiscovered"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

// AssetResponse is the JSON shape of a catalog asset
type AssetResponse struct {
	ID                 string                 `json:"id"`
	AssetNumber        string                 `json:"assetNumber"`
	Name               string                 `json:"name"`
	Category           *string                `json:"category"`
	Location           *string                `json:"location"`
	Status             string                 `json:"status"`
	IsDecommissioned   bool                   `json:"isDecommissioned"`
	DecommissionedAt   *time.Time             `json:"decommissionedAt"`
	DecommissionReason *string                `json:"decommissionReason"`
	Origin             models.Origin          `json:"origin"`
	DiscoveryStatus    models.DiscoveryStatus `json:"discoveryStatus"`
	Version            int                    `json:"version"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

func NewAssetResponse(a *models.Asset) AssetResponse {
	return AssetResponse{
		ID:                 a.ID,
		AssetNumber:        a.AssetNumber,
		Name:               a.Name,
		Category:           a.Category,
		Location:           a.Location,
		Status:             a.Status,
		IsDecommissioned:   a.IsDecommissioned(),
		DecommissionedAt:   a.DecommissionedAt,
		DecommissionReason: a.DecommissionReason,
		Origin:             a.Origin,
		DiscoveryStatus:    a.DiscoveryStatus,
		Version:            a.Version,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// TagBindingResponse is the JSON shape of a binding
type TagBindingResponse struct {
	EPC        string    `json:"epc"`
	AssetID    string    `json:"assetId"`
	LocationID *string   `json:"locationId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewTagBindingResponse(b *models.TagBinding, locationID *string) TagBindingResponse {
	return TagBindingResponse{
		EPC:        b.EPC,
		AssetID:    b.AssetID,
		LocationID: locationID,
		CreatedAt:  b.CreatedAt,
	}
}

// IngestResponse acknowledges a read
type IngestResponse struct {
	AssetID *string `json:"assetId"`
}

// DisassociateResponse lists the epcs that were unbound
type DisassociateResponse struct {
	Removed []string `json:"removed"`
}

// UndiscoveredResponse is a stored feed record with its display projection
type UndiscoveredResponse struct {
	ID              string                    `json:"id"`
	Name            string                    `json:"name"`
	Location        *string                   `json:"location"`
	Status          models.UndiscoveredStatus `json:"status"`
	MappingName     string                    `json:"mappingName"`
	MappingVersion  int                       `json:"mappingVersion"`
	Record          models.UndiscoveredRecord `json:"record"`
	Payload         map[string]any            `json:"payload"`
	Source          *string                   `json:"source"`
	PromotedAssetID *string                   `json:"promotedAssetId"`
	CreatedAt       time.Time                 `json:"createdAt"`
}

func NewUndiscoveredResponse(l undiscovered.Listing) UndiscoveredResponse {
	return UndiscoveredResponse{
		ID:              l.ID,
		Name:            l.Projection.Name,
		Location:        l.Projection.Location,
		Status:          l.Status,
		MappingName:     l.MappingName,
		MappingVersion:  l.MappingVersion,
		Record:          l.Record,
		Payload:         l.Payload,
		Source:          l.Source,
		PromotedAssetID: l.PromotedAssetID,
		CreatedAt:       l.CreatedAt,
	}
}

// ImportResponse summarises an ingested batch
type ImportResponse struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

func NewImportResponse(records []*models.UndiscoveredAsset) ImportResponse {
	ids := ectolinq.Map(records, func(r *models.UndiscoveredAsset) string { return r.ID })
	return ImportResponse{Count: len(records), IDs: nonNil(ids)}
}
