package readevent

import (
	"database/sql"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

const (
	readEventsTable = "read_events"
)

// ReadEventRow represents the database row for a read event
type ReadEventRow struct {
	ID         sql.NullString `db:"id"`
	EPC        sql.NullString `db:"epc"`
	SeenAt     sql.NullTime   `db:"seen_at"`
	ReaderID   sql.NullString `db:"reader_id"`
	Antenna    sql.NullInt32  `db:"antenna"`
	Gate       sql.NullString `db:"gate"`
	Direction  sql.NullString `db:"direction"`
	AssetID    sql.NullString `db:"asset_id"`
	LocationID sql.NullString `db:"location_id"`
	ReceivedAt sql.NullTime   `db:"received_at"`
}

var readEventStruct = database.NewStruct(new(ReadEventRow))

func FromReadEvent(e *models.ReadEvent) *ReadEventRow {
	row := &ReadEventRow{
		ID:         sql.NullString{String: e.ID, Valid: e.ID != ""},
		EPC:        sql.NullString{String: e.EPC, Valid: true},
		SeenAt:     sql.NullTime{Time: e.SeenAt, Valid: true},
		ReaderID:   nullString(e.ReaderID),
		Gate:       nullString(e.Gate),
		Direction:  sql.NullString{String: string(e.Direction), Valid: true},
		AssetID:    nullString(e.AssetID),
		LocationID: nullString(e.LocationID),
		ReceivedAt: sql.NullTime{Time: e.ReceivedAt, Valid: !e.ReceivedAt.IsZero()},
	}
	if e.Antenna != nil {
		row.Antenna = sql.NullInt32{Int32: int32(*e.Antenna), Valid: true}
	}
	return row
}

func ToReadEvent(row *ReadEventRow) models.ReadEvent {
	event := models.ReadEvent{
		ID:         row.ID.String,
		EPC:        row.EPC.String,
		SeenAt:     row.SeenAt.Time.UTC(),
		ReaderID:   stringPtr(row.ReaderID),
		Gate:       stringPtr(row.Gate),
		Direction:  models.Direction(row.Direction.String),
		AssetID:    stringPtr(row.AssetID),
		LocationID: stringPtr(row.LocationID),
		ReceivedAt: row.ReceivedAt.Time.UTC(),
	}
	if row.Antenna.Valid {
		antenna := int(row.Antenna.Int32)
		event.Antenna = &antenna
	}
	return event
}

func ToReadEvents(rows []ReadEventRow) []models.ReadEvent {
	events := make([]models.ReadEvent, len(rows))
	for i, row := range rows {
		events[i] = ToReadEvent(&row)
	}
	return events
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
