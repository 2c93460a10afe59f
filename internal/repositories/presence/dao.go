package presence

import (
	"database/sql"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

const (
	presenceTable = "presence"
	assetsTable   = "assets"
)

// PresenceRow represents the database row for an asset's presence
type PresenceRow struct {
	AssetID           sql.NullString `db:"asset_id"`
	LastSeenEPC       sql.NullString `db:"last_seen_epc"`
	LastSeenAt        sql.NullTime   `db:"last_seen_at"`
	LastSeenReaderID  sql.NullString `db:"last_seen_reader_id"`
	LastSeenGate      sql.NullString `db:"last_seen_gate"`
	LastSeenDirection sql.NullString `db:"last_seen_direction"`
	UpdatedAt         sql.NullTime   `db:"updated_at"`
}

var presenceStruct = database.NewStruct(new(PresenceRow))

// KnownRow is a presence row joined with the catalog fields the live view
// shows
type KnownRow struct {
	PresenceRow
	AssetNumber      sql.NullString `db:"asset_number"`
	Name             sql.NullString `db:"name"`
	Category         sql.NullString `db:"category"`
	Location         sql.NullString `db:"location"`
	Status           sql.NullString `db:"status"`
	LifecycleState   sql.NullString `db:"lifecycle_state"`
	DecommissionedAt sql.NullTime   `db:"decommissioned_at"`
}

func FromPresence(p *models.Presence) *PresenceRow {
	return &PresenceRow{
		AssetID:           sql.NullString{String: p.AssetID, Valid: true},
		LastSeenEPC:       sql.NullString{String: p.LastSeenEPC, Valid: true},
		LastSeenAt:        sql.NullTime{Time: p.LastSeenAt, Valid: true},
		LastSeenReaderID:  nullString(p.LastSeenReaderID),
		LastSeenGate:      nullString(p.LastSeenGate),
		LastSeenDirection: sql.NullString{String: string(p.LastSeenDirection), Valid: true},
		UpdatedAt:         sql.NullTime{Time: p.UpdatedAt, Valid: !p.UpdatedAt.IsZero()},
	}
}

func ToPresence(row *PresenceRow) *models.Presence {
	return &models.Presence{
		AssetID:           row.AssetID.String,
		LastSeenEPC:       row.LastSeenEPC.String,
		LastSeenAt:        row.LastSeenAt.Time.UTC(),
		LastSeenReaderID:  stringPtr(row.LastSeenReaderID),
		LastSeenGate:      stringPtr(row.LastSeenGate),
		LastSeenDirection: models.Direction(row.LastSeenDirection.String),
		UpdatedAt:         row.UpdatedAt.Time.UTC(),
	}
}

func ToKnownRow(row *KnownRow) liveview.KnownRow {
	asset := models.Asset{
		ID:          row.AssetID.String,
		AssetNumber: row.AssetNumber.String,
		Name:        row.Name.String,
		Category:    stringPtr(row.Category),
		Location:    stringPtr(row.Location),
		Status:      row.Status.String,
		State:       models.LifecycleState(row.LifecycleState.String),
	}
	if row.DecommissionedAt.Valid {
		at := row.DecommissionedAt.Time.UTC()
		asset.DecommissionedAt = &at
	}
	return liveview.KnownRow{
		Presence: *ToPresence(&row.PresenceRow),
		Asset:    asset,
	}
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
