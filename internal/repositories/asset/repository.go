package asset

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

// AssetRepository defines the interface for asset data access
type AssetRepository interface {
	Create(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	GetByNumber(ctx context.Context, assetNumber string) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset, expectedVersion int) (*models.Asset, error)
	UpdateLocation(ctx context.Context, id, location string) error
}

// Repository implements AssetRepository
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

// Create inserts a new asset at version 1
func (r *Repository) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "AssetRepository.Create")
	defer span.End()

	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}

	now := Now()
	asset.CreatedAt = now
	asset.UpdatedAt = now
	asset.Version = 1

	ib := assetStruct.InsertInto(assetsTable, FromAsset(asset))
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":           asset.ID,
		"asset_number": asset.AssetNumber,
		"origin":       asset.Origin,
	}).Debug("Creating asset")

	_, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "asset number %s already exists", asset.AssetNumber)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create asset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create asset")
	}

	return asset, nil
}

// GetByID retrieves an asset by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "AssetRepository.GetByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "asset not found")
	}

	sb := assetStruct.SelectFrom(assetsTable)
	sb.Where(sb.Equal("id", id))

	return r.get(ctx, sb, map[string]any{"id": id})
}

// GetByNumber retrieves an asset by its equipment number
func (r *Repository) GetByNumber(ctx context.Context, assetNumber string) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "AssetRepository.GetByNumber")
	defer span.End()

	sb := assetStruct.SelectFrom(assetsTable)
	sb.Where(sb.Equal("asset_number", assetNumber))

	return r.get(ctx, sb, map[string]any{"asset_number": assetNumber})
}

func (r *Repository) get(ctx context.Context, sb *database.SelectBuilder, fields map[string]any) (*models.Asset, error) {
	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(fields).Debug("Getting asset")

	var row AssetRow
	err := r.db.Handle(ctx).GetContext(ctx, &row, sql, args...)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "asset not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get asset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get asset")
	}

	return ToAsset(&row), nil
}

// Update writes asset if the stored version still equals expectedVersion and
// bumps the version. A stale version yields 409.
func (r *Repository) Update(ctx context.Context, asset *models.Asset, expectedVersion int) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "AssetRepository.Update")
	defer span.End()

	updated := *asset
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = Now()

	ub := assetStruct.Update(assetsTable, FromAsset(&updated))
	ub.Where(
		ub.Equal("id", asset.ID),
		ub.Equal("version", expectedVersion),
	)

	sql, args := ub.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":               asset.ID,
		"expected_version": expectedVersion,
		"lifecycle_state":  updated.State,
	}).Debug("Updating asset")

	result, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "asset number %s already exists", asset.AssetNumber)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update asset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update asset")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, asset.ID); err != nil {
			return nil, err
		}
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "asset %s was modified concurrently (expected version %d)", asset.ID, expectedVersion)
	}

	return &updated, nil
}

// UpdateLocation sets the asset's location as a side effect of a read
func (r *Repository) UpdateLocation(ctx context.Context, id, location string) error {
	ctx, span := tracing.StartSpan(ctx, "AssetRepository.UpdateLocation")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(assetsTable).Set(
		ub.Assign("location", location),
		ub.Assign("updated_at", Now()),
		ub.Incr("version"),
	).Where(ub.Equal("id", id))

	sql, args := ub.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":       id,
		"location": location,
	}).Debug("Updating asset location")

	result, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update asset location")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update asset location")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "asset not found")
	}
	return nil
}
