package undiscovered

import (
	"database/sql"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

const (
	undiscoveredTable = "undiscovered_assets"
)

// UndiscoveredRow represents the database row for a feed record awaiting
// promotion
type UndiscoveredRow struct {
	ID              sql.NullString                            `db:"id"`
	MappingName     sql.NullString                            `db:"mapping_name"`
	MappingVersion  sql.NullInt64                             `db:"mapping_version"`
	Payload         database.JSONB[map[string]any]            `db:"payload"`
	Record          database.JSONB[models.UndiscoveredRecord] `db:"record"`
	Source          sql.NullString                            `db:"source"`
	Status          sql.NullString                            `db:"status"`
	PromotedAssetID sql.NullString                            `db:"promoted_asset_id"`
	CreatedAt       sql.NullTime                              `db:"created_at"`
	UpdatedAt       sql.NullTime                              `db:"updated_at"`
}

var undiscoveredStruct = database.NewStruct(new(UndiscoveredRow))

func FromUndiscovered(u *models.UndiscoveredAsset) *UndiscoveredRow {
	payload := u.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return &UndiscoveredRow{
		ID:              sql.NullString{String: u.ID, Valid: u.ID != ""},
		MappingName:     sql.NullString{String: u.MappingName, Valid: true},
		MappingVersion:  sql.NullInt64{Int64: int64(u.MappingVersion), Valid: true},
		Payload:         database.JSONB[map[string]any]{Data: payload},
		Record:          database.JSONB[models.UndiscoveredRecord]{Data: u.Record},
		Source:          nullString(u.Source),
		Status:          sql.NullString{String: string(u.Status), Valid: true},
		PromotedAssetID: nullString(u.PromotedAssetID),
		CreatedAt:       sql.NullTime{Time: u.CreatedAt, Valid: !u.CreatedAt.IsZero()},
		UpdatedAt:       sql.NullTime{Time: u.UpdatedAt, Valid: !u.UpdatedAt.IsZero()},
	}
}

func ToUndiscovered(row *UndiscoveredRow) *models.UndiscoveredAsset {
	return &models.UndiscoveredAsset{
		ID:              row.ID.String,
		MappingName:     row.MappingName.String,
		MappingVersion:  int(row.MappingVersion.Int64),
		Payload:         row.Payload.GetValue(),
		Record:          row.Record.GetValue(),
		Source:          stringPtr(row.Source),
		Status:          models.UndiscoveredStatus(row.Status.String),
		PromotedAssetID: stringPtr(row.PromotedAssetID),
		CreatedAt:       row.CreatedAt.Time.UTC(),
		UpdatedAt:       row.UpdatedAt.Time.UTC(),
	}
}

func ToUndiscoveredList(rows []UndiscoveredRow) []*models.UndiscoveredAsset {
	out := make([]*models.UndiscoveredAsset, len(rows))
	for i := range rows {
		out[i] = ToUndiscovered(&rows[i])
	}
	return out
}

func Now() time.Time {
	return models.NormalizeTimestamp(time.Now())
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
