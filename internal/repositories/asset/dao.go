package asset

import (
	"database/sql"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

const (
	assetsTable = "assets"
)

// AssetRow represents the database row for an asset. is_decommissioned is a
// generated column and is derived from lifecycle_state instead.
type AssetRow struct {
	ID                 sql.NullString `db:"id"`
	AssetNumber        sql.NullString `db:"asset_number"`
	Name               sql.NullString `db:"name"`
	Category           sql.NullString `db:"category"`
	Location           sql.NullString `db:"location"`
	Status             sql.NullString `db:"status"`
	LifecycleState     sql.NullString `db:"lifecycle_state"`
	DecommissionedAt   sql.NullTime   `db:"decommissioned_at"`
	DecommissionReason sql.NullString `db:"decommission_reason"`
	Origin             sql.NullString `db:"origin"`
	DiscoveryStatus    sql.NullString `db:"discovery_status"`
	Version            sql.NullInt64  `db:"version"`
	CreatedAt          sql.NullTime   `db:"created_at"`
	UpdatedAt          sql.NullTime   `db:"updated_at"`
}

var assetStruct = database.NewStruct(new(AssetRow))

// FromAsset converts a domain model to a database row
func FromAsset(a *models.Asset) *AssetRow {
	return &AssetRow{
		ID:                 sql.NullString{String: a.ID, Valid: a.ID != ""},
		AssetNumber:        sql.NullString{String: a.AssetNumber, Valid: true},
		Name:               sql.NullString{String: a.Name, Valid: true},
		Category:           nullString(a.Category),
		Location:           nullString(a.Location),
		Status:             sql.NullString{String: a.Status, Valid: true},
		LifecycleState:     sql.NullString{String: string(a.State), Valid: true},
		DecommissionedAt:   nullTime(a.DecommissionedAt),
		DecommissionReason: nullString(a.DecommissionReason),
		Origin:             sql.NullString{String: string(a.Origin), Valid: true},
		DiscoveryStatus:    sql.NullString{String: string(a.DiscoveryStatus), Valid: true},
		Version:            sql.NullInt64{Int64: int64(a.Version), Valid: true},
		CreatedAt:          sql.NullTime{Time: a.CreatedAt, Valid: !a.CreatedAt.IsZero()},
		UpdatedAt:          sql.NullTime{Time: a.UpdatedAt, Valid: !a.UpdatedAt.IsZero()},
	}
}

// ToAsset converts a database row to a domain model
func ToAsset(row *AssetRow) *models.Asset {
	return &models.Asset{
		ID:                 row.ID.String,
		AssetNumber:        row.AssetNumber.String,
		Name:               row.Name.String,
		Category:           stringPtr(row.Category),
		Location:           stringPtr(row.Location),
		Status:             row.Status.String,
		State:              models.LifecycleState(row.LifecycleState.String),
		DecommissionedAt:   timePtr(row.DecommissionedAt),
		DecommissionReason: stringPtr(row.DecommissionReason),
		Origin:             models.Origin(row.Origin.String),
		DiscoveryStatus:    models.DiscoveryStatus(row.DiscoveryStatus.String),
		Version:            int(row.Version.Int64),
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// Now returns the current time in UTC
func Now() time.Time {
	return models.NormalizeTimestamp(time.Now())
}
