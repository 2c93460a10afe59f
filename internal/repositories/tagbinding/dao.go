package tagbinding

import (
	"database/sql"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

const (
	tagBindingsTable = "tag_bindings"
)

// TagBindingRow represents the database row for a tag binding
type TagBindingRow struct {
	EPC       sql.NullString `db:"epc"`
	AssetID   sql.NullString `db:"asset_id"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

var tagBindingStruct = database.NewStruct(new(TagBindingRow))

func FromTagBinding(b *models.TagBinding) *TagBindingRow {
	return &TagBindingRow{
		EPC:       sql.NullString{String: b.EPC, Valid: true},
		AssetID:   sql.NullString{String: b.AssetID, Valid: true},
		CreatedAt: sql.NullTime{Time: b.CreatedAt, Valid: !b.CreatedAt.IsZero()},
	}
}

func ToTagBinding(row *TagBindingRow) *models.TagBinding {
	return &models.TagBinding{
		EPC:       row.EPC.String,
		AssetID:   row.AssetID.String,
		CreatedAt: row.CreatedAt.Time.UTC(),
	}
}

func ToTagBindings(rows []TagBindingRow) []*models.TagBinding {
	bindings := make([]*models.TagBinding, len(rows))
	for i, row := range rows {
		bindings[i] = ToTagBinding(&row)
	}
	return bindings
}
