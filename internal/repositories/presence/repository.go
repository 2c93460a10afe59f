package presence

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

// PresenceRepository defines the interface for presence data access
type PresenceRepository interface {
	Upsert(ctx context.Context, presence *models.Presence) error
	Get(ctx context.Context, assetID string) (*models.Presence, error)
	ListKnown(ctx context.Context) ([]liveview.KnownRow, error)
}

// Repository implements PresenceRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert replaces every field of the asset's presence row in one statement.
// Concurrent writers converge on whichever write lands last.
func (r *Repository) Upsert(ctx context.Context, presence *models.Presence) error {
	ctx, span := tracing.StartSpan(ctx, "PresenceRepository.Upsert")
	defer span.End()

	presence.UpdatedAt = models.NormalizeTimestamp(time.Now())

	ib := presenceStruct.InsertInto(presenceTable, FromPresence(presence))
	ib.OnConflict("asset_id").SetExcluded(
		"last_seen_epc",
		"last_seen_at",
		"last_seen_reader_id",
		"last_seen_gate",
		"last_seen_direction",
		"updated_at",
	)

	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"asset_id":     presence.AssetID,
		"epc":          presence.LastSeenEPC,
		"last_seen_at": presence.LastSeenAt,
	}).Debug("Upserting presence")

	_, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert presence")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert presence")
	}

	return nil
}

// Get retrieves the presence row of an asset
func (r *Repository) Get(ctx context.Context, assetID string) (*models.Presence, error) {
	ctx, span := tracing.StartSpan(ctx, "PresenceRepository.Get")
	defer span.End()

	sb := presenceStruct.SelectFrom(presenceTable)
	sb.Where(sb.Equal("asset_id", assetID))

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"asset_id": assetID,
	}).Debug("Getting presence")

	var row PresenceRow
	err := r.db.Handle(ctx).GetContext(ctx, &row, sql, args...)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "presence not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get presence")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get presence")
	}

	return ToPresence(&row), nil
}

// ListKnown joins every presence row to its asset
func (r *Repository) ListKnown(ctx context.Context) ([]liveview.KnownRow, error) {
	ctx, span := tracing.StartSpan(ctx, "PresenceRepository.ListKnown")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"p.asset_id", "p.last_seen_epc", "p.last_seen_at", "p.last_seen_reader_id",
		"p.last_seen_gate", "p.last_seen_direction", "p.updated_at",
		"a.asset_number", "a.name", "a.category", "a.location", "a.status",
		"a.lifecycle_state", "a.decommissioned_at",
	).
		From(sb.As(presenceTable, "p")).
		Join(sb.As(assetsTable, "a"), "a.id = p.asset_id").
		OrderBy("p.last_seen_at DESC", "p.asset_id")

	sql, args := sb.Build()

	r.logger.WithContext(ctx).Debug("Listing known presence")

	var rows []KnownRow
	err := r.db.Handle(ctx).SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list presence")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list presence")
	}

	known := make([]liveview.KnownRow, len(rows))
	for i := range rows {
		known[i] = ToKnownRow(&rows[i])
	}
	return known, nil
}
