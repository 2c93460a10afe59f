package tagbinding

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Farcas-Consult/rams-sub000/pkg/database"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

// TagBindingRepository defines the interface for tag binding data access
type TagBindingRepository interface {
	GetByEPC(ctx context.Context, epc string) (*models.TagBinding, error)
	Create(ctx context.Context, binding *models.TagBinding) (*models.TagBinding, error)
	DeleteByEPC(ctx context.Context, epc string) ([]string, error)
	DeleteByAsset(ctx context.Context, assetID string) ([]string, error)
	ListByAsset(ctx context.Context, assetID string) ([]*models.TagBinding, error)
}

// Repository implements TagBindingRepository
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

// GetByEPC returns the binding for epc, or nil when the epc is unbound
func (r *Repository) GetByEPC(ctx context.Context, epc string) (*models.TagBinding, error) {
	ctx, span := tracing.StartSpan(ctx, "TagBindingRepository.GetByEPC")
	defer span.End()

	sb := tagBindingStruct.SelectFrom(tagBindingsTable)
	sb.Where(sb.Equal("epc", epc))

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"epc": epc,
	}).Debug("Resolving tag binding")

	var row TagBindingRow
	err := r.db.Handle(ctx).GetContext(ctx, &row, sql, args...)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get tag binding")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get tag binding")
	}

	return ToTagBinding(&row), nil
}

// Create binds an epc. An epc that is already bound, to any asset, yields 409;
// an unknown asset yields 404.
func (r *Repository) Create(ctx context.Context, binding *models.TagBinding) (*models.TagBinding, error) {
	ctx, span := tracing.StartSpan(ctx, "TagBindingRepository.Create")
	defer span.End()

	if _, err := uuid.Parse(binding.AssetID); err != nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "asset not found")
	}

	binding.CreatedAt = models.NormalizeTimestamp(time.Now())

	ib := tagBindingStruct.InsertInto(tagBindingsTable, FromTagBinding(binding))
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"epc":      binding.EPC,
		"asset_id": binding.AssetID,
	}).Debug("Creating tag binding")

	_, err := r.db.Handle(ctx).ExecContext(ctx, sql, args...)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "epc %s is already bound", binding.EPC)
		case database.IsForeignKeyViolation(err):
			return nil, httperror.NewHTTPError(http.StatusNotFound, "asset not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create tag binding")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create tag binding")
	}

	return binding, nil
}

// DeleteByEPC removes the binding for epc and returns the removed epcs,
// empty when nothing was bound
func (r *Repository) DeleteByEPC(ctx context.Context, epc string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "TagBindingRepository.DeleteByEPC")
	defer span.End()

	dlb := tagBindingStruct.DeleteFrom(tagBindingsTable)
	dlb.Where(dlb.Equal("epc", epc))
	dlb.Returning("epc")

	return r.delete(ctx, dlb, map[string]any{"epc": epc})
}

// DeleteByAsset removes every binding of an asset and returns the removed epcs
func (r *Repository) DeleteByAsset(ctx context.Context, assetID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "TagBindingRepository.DeleteByAsset")
	defer span.End()

	if _, err := uuid.Parse(assetID); err != nil {
		return []string{}, nil
	}

	dlb := tagBindingStruct.DeleteFrom(tagBindingsTable)
	dlb.Where(dlb.Equal("asset_id", assetID))
	dlb.Returning("epc")

	return r.delete(ctx, dlb, map[string]any{"asset_id": assetID})
}

func (r *Repository) delete(ctx context.Context, dlb *database.DeleteBuilder, fields map[string]any) ([]string, error) {
	sql, args := dlb.Build()

	r.logger.WithContext(ctx).WithFields(fields).Debug("Deleting tag bindings")

	epcs := []string{}
	err := r.db.Handle(ctx).SelectContext(ctx, &epcs, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete tag bindings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete tag bindings")
	}

	return epcs, nil
}

// ListByAsset lists the bindings of an asset
func (r *Repository) ListByAsset(ctx context.Context, assetID string) ([]*models.TagBinding, error) {
	ctx, span := tracing.StartSpan(ctx, "TagBindingRepository.ListByAsset")
	defer span.End()

	if _, err := uuid.Parse(assetID); err != nil {
		return []*models.TagBinding{}, nil
	}

	sb := tagBindingStruct.SelectFrom(tagBindingsTable)
	sb.Where(sb.Equal("asset_id", assetID))
	sb.OrderBy("created_at", "epc")

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"asset_id": assetID,
	}).Debug("Listing tag bindings")

	var rows []TagBindingRow
	err := r.db.Handle(ctx).SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tag bindings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tag bindings")
	}

	return ToTagBindings(rows), nil
}
