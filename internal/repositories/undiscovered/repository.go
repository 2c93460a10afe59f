package undiscovered

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

const defaultListLimit = 100

// ListFilter narrows a listing. An empty Status lists every record.
type ListFilter struct {
	Status models.UndiscoveredStatus
	Limit  int
	Offset int
}

// UndiscoveredRepository defines the interface for undiscovered asset data access
type UndiscoveredRepository interface {
	Create(ctx context.Context, record *models.UndiscoveredAsset) (*models.UndiscoveredAsset, error)
	GetByID(ctx context.Context, id string) (*models.UndiscoveredAsset, error)
	List(ctx context.Context, filter ListFilter) ([]*models.UndiscoveredAsset, error)
	MarkPromoted(ctx context.Context, id, assetID string) error
}

// Repository implements UndiscoveredRepository
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

// Create stores a new open record
func (r *Repository) Create(ctx context.Context, record *models.UndiscoveredAsset) (*models.UndiscoveredAsset, error) {
	ctx, span := tracing.StartSpan(ctx, "UndiscoveredRepository.Create")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Status == "" {
		record.Status = models.UndiscoveredStatusOpen
	}
	now := Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	ib := undiscoveredStruct.InsertInto(undiscoveredTable, FromUndiscovered(record))
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":              record.ID,
		"mapping_name":    record.MappingName,
		"mapping_version": record.MappingVersion,
	}).Debug("Creating undiscovered asset")

	_, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create undiscovered asset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create undiscovered asset")
	}

	return record, nil
}

// GetByID retrieves an undiscovered asset by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.UndiscoveredAsset, error) {
	ctx, span := tracing.StartSpan(ctx, "UndiscoveredRepository.GetByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "undiscovered asset not found")
	}

	sb := undiscoveredStruct.SelectFrom(undiscoveredTable)
	sb.Where(sb.Equal("id", id))

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id": id,
	}).Debug("Getting undiscovered asset")

	var row UndiscoveredRow
	err := r.db.Handle(ctx).GetContext(ctx, &row, sql, args...)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "undiscovered asset not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get undiscovered asset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get undiscovered asset")
	}

	return ToUndiscovered(&row), nil
}

// List returns records newest first
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*models.UndiscoveredAsset, error) {
	ctx, span := tracing.StartSpan(ctx, "UndiscoveredRepository.List")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	sb := undiscoveredStruct.SelectFrom(undiscoveredTable)
	if filter.Status != "" {
		sb.Where(sb.Equal("status", string(filter.Status)))
	}
	sb.OrderBy("created_at DESC", "id").Limit(limit).Offset(filter.Offset)

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"status": filter.Status,
		"limit":  limit,
		"offset": filter.Offset,
	}).Debug("Listing undiscovered assets")

	var rows []UndiscoveredRow
	err := r.db.Handle(ctx).SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list undiscovered assets")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list undiscovered assets")
	}

	return ToUndiscoveredList(rows), nil
}

// MarkPromoted links an open record to the asset created from it. A record
// can be promoted once; a second attempt yields 409.
func (r *Repository) MarkPromoted(ctx context.Context, id, assetID string) error {
	ctx, span := tracing.StartSpan(ctx, "UndiscoveredRepository.MarkPromoted")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(undiscoveredTable).Set(
		ub.Assign("status", string(models.UndiscoveredStatusPromoted)),
		ub.Assign("promoted_asset_id", assetID),
		ub.Assign("updated_at", Now()),
	).Where(
		ub.Equal("id", id),
		ub.Equal("status", string(models.UndiscoveredStatusOpen)),
	)

	sql, args := ub.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":       id,
		"asset_id": assetID,
	}).Debug("Marking undiscovered asset promoted")

	result, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return httperror.NewHTTPError(http.StatusNotFound, "asset not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark undiscovered asset promoted")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark undiscovered asset promoted")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return httperror.NewHTTPErrorf(http.StatusConflict, "undiscovered asset %s was already promoted", id)
	}
	return nil
}
