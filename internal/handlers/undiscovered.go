package handlers

import (
	"context"
	"io"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	undiscoveredrepo "github.com/Farcas-Consult/rams-sub000/internal/repositories/undiscovered"
	"github.com/Farcas-Consult/rams-sub000/internal/services/undiscovered"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
	"github.com/Farcas-Consult/rams-sub000/pkg/utils"
)

const maxImportSize = 32 << 20

type UndiscoveredService interface {
	Ingest(ctx context.Context, mappingName string, payloads []map[string]any, source *string) ([]*models.UndiscoveredAsset, error)
	Import(ctx context.Context, mappingName string, workbook io.Reader, source *string) ([]*models.UndiscoveredAsset, error)
	List(ctx context.Context, filter undiscoveredrepo.ListFilter) ([]undiscovered.Listing, error)
	Promote(ctx context.Context, id string, promotion undiscovered.Promotion) (*models.Asset, error)
}

// UndiscoveredHandler handles the reconciliation feed endpoints
type UndiscoveredHandler struct {
	service UndiscoveredService
	logger  ectologger.Logger
}

func NewUndiscoveredHandler(service UndiscoveredService, logger ectologger.Logger) *UndiscoveredHandler {
	return &UndiscoveredHandler{
		service: service,
		logger:  logger,
	}
}

// IngestUndiscoveredRequest is a batch of feed rows
type IngestUndiscoveredRequest struct {
	Source *string          `json:"source"`
	Rows   []map[string]any `json:"rows" validate:"required,min=1"`
}

// PromoteRequest overrides fields of the asset created by a promotion
type PromoteRequest struct {
	ID          string  `param:"id" json:"-"`
	AssetNumber *string `json:"assetNumber"`
	Category    *string `json:"category"`
}

func (h *UndiscoveredHandler) Register(g *echo.Group) {
	g.GET("/undiscovered-assets", h.List)
	g.POST("/undiscovered-assets", h.Ingest)
	g.POST("/undiscovered-assets/import", h.Import)
	g.POST("/undiscovered-assets/:id/promote", h.Promote)
}

// List returns projected records. ?status filters by undiscovered or promoted.
func (h *UndiscoveredHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UndiscoveredHandler.List")
	defer span.End()

	limit, err := QueryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	offset, err := QueryInt(c, "offset", 0)
	if err != nil {
		return err
	}

	listings, err := h.service.List(ctx, undiscoveredrepo.ListFilter{
		Status: models.UndiscoveredStatus(c.QueryParam("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}

	return SuccessResponse(c, nonNil(ectolinq.Map(listings, NewUndiscoveredResponse)))
}

// Ingest stores a JSON batch using the mapping named by ?mapping
func (h *UndiscoveredHandler) Ingest(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UndiscoveredHandler.Ingest")
	defer span.End()

	req, err := utils.BindRequest[IngestUndiscoveredRequest](c)
	if err != nil {
		return err
	}

	records, err := h.service.Ingest(ctx, c.QueryParam("mapping"), req.Rows, req.Source)
	if err != nil {
		return err
	}
	return CreatedResponse(c, NewImportResponse(records))
}

// Import stores the rows of an uploaded xlsx file sent as the "file" form field
func (h *UndiscoveredHandler) Import(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UndiscoveredHandler.Import")
	defer span.End()

	header, err := c.FormFile("file")
	if err != nil {
		return BadRequest("missing file")
	}
	if header.Size > maxImportSize {
		return BadRequest("file is too large")
	}

	file, err := header.Open()
	if err != nil {
		return BadRequest("unreadable file")
	}
	defer file.Close()

	source := header.Filename
	records, err := h.service.Import(ctx, c.QueryParam("mapping"), file, &source)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"file":  source,
		"count": len(records),
	}).Info("Imported undiscovered feed")

	return CreatedResponse(c, NewImportResponse(records))
}

// Promote turns a record into a catalog asset pending review
func (h *UndiscoveredHandler) Promote(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "UndiscoveredHandler.Promote")
	defer span.End()

	req, err := utils.BindRequest[PromoteRequest](c)
	if err != nil {
		return err
	}

	created, err := h.service.Promote(ctx, req.ID, undiscovered.Promotion{
		AssetNumber: req.AssetNumber,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return CreatedResponse(c, NewAssetResponse(created))
}
