package readevent

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/segmentio/ksuid"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

// ReadEventRepository is the append-only event log. It has no update or
// delete.
type ReadEventRepository interface {
	Append(ctx context.Context, event *models.ReadEvent) error
	LatestUnresolved(ctx context.Context) ([]models.ReadEvent, error)
	ListByEPC(ctx context.Context, epc string, limit int) ([]models.ReadEvent, error)
}

// Repository implements ReadEventRepository
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

// Append inserts one event. The id is a KSUID so ids sort by creation time.
func (r *Repository) Append(ctx context.Context, event *models.ReadEvent) error {
	ctx, span := tracing.StartSpan(ctx, "ReadEventRepository.Append")
	defer span.End()

	if event.ID == "" {
		event.ID = ksuid.New().String()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = models.NormalizeTimestamp(time.Now())
	}

	ib := readEventStruct.InsertInto(readEventsTable, FromReadEvent(event))
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":       event.ID,
		"epc":      event.EPC,
		"seen_at":  event.SeenAt,
		"resolved": event.AssetID != nil,
	}).Debug("Appending read event")

	_, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to append read event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to append read event")
	}

	return nil
}

// LatestUnresolved returns the newest unresolved read of every epc
func (r *Repository) LatestUnresolved(ctx context.Context) ([]models.ReadEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "ReadEventRepository.LatestUnresolved")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("DISTINCT ON (epc) " + strings.Join(readEventStruct.Columns(), ", ")).
		From(readEventsTable).
		Where(sb.IsNull("asset_id")).
		OrderBy("epc", "seen_at DESC", "id DESC")

	sql, args := sb.Build()

	r.logger.WithContext(ctx).Debug("Listing latest unresolved reads")

	var rows []ReadEventRow
	err := r.db.Handle(ctx).SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list unresolved reads")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list unresolved reads")
	}

	return ToReadEvents(rows), nil
}

// ListByEPC returns the most recent reads of an epc, newest first
func (r *Repository) ListByEPC(ctx context.Context, epc string, limit int) ([]models.ReadEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "ReadEventRepository.ListByEPC")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	sb := readEventStruct.SelectFrom(readEventsTable)
	sb.Where(sb.Equal("epc", epc))
	sb.OrderBy("seen_at DESC", "id DESC")
	sb.Limit(limit)

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"epc":   epc,
		"limit": limit,
	}).Debug("Listing reads by epc")

	var rows []ReadEventRow
	err := r.db.Handle(ctx).SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list reads")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reads")
	}

	return ToReadEvents(rows), nil
}
