package handlers

import (
	"context"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Farcas-Consult/rams-sub000/internal/services/ingest"
	appctx "github.com/Farcas-Consult/rams-sub000/pkg/context"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
	"github.com/Farcas-Consult/rams-sub000/pkg/utils"
)

type IngestService interface {
	Ingest(ctx context.Context, read ingest.Read) (*string, error)
	Associate(ctx context.Context, association ingest.Association) (*models.TagBinding, error)
	Disassociate(ctx context.Context, epc string) ([]string, error)
	DisassociateAsset(ctx context.Context, assetID string) ([]string, error)
	GetBinding(ctx context.Context, epc string) (*models.TagBinding, error)
	ListBindings(ctx context.Context, assetID string) ([]*models.TagBinding, error)
}

// ReadHandler handles tag read ingestion and tag binding endpoints
type ReadHandler struct {
	service IngestService
	logger  ectologger.Logger
}

func NewReadHandler(service IngestService, logger ectologger.Logger) *ReadHandler {
	return &ReadHandler{
		service: service,
		logger:  logger,
	}
}

// IngestReadRequest is one read reported by a reader
type IngestReadRequest struct {
	EPC        string     `json:"epc" validate:"required"`
	Timestamp  *time.Time `json:"timestamp"`
	ReaderID   *string    `json:"readerId"`
	Antenna    *int       `json:"antenna" validate:"omitempty,gte=0"`
	Gate       *string    `json:"gate"`
	Direction  *string    `json:"direction"`
	LocationID *string    `json:"locationId"`
}

// AssociateRequest binds an epc to an asset
type AssociateRequest struct {
	EPC        string  `json:"epc" validate:"required"`
	AssetID    string  `json:"assetId" validate:"required"`
	LocationID *string `json:"locationId"`
}

// Register registers read and binding routes
func (h *ReadHandler) Register(g *echo.Group) {
	g.POST("/reads", h.Ingest)
	g.POST("/tag-bindings", h.Associate)
	g.GET("/tag-bindings/:epc", h.GetBinding)
	g.DELETE("/tag-bindings/:epc", h.Disassociate)
	g.GET("/assets/:id/tag-bindings", h.ListBindings)
	g.DELETE("/assets/:id/tag-bindings", h.DisassociateAsset)
}

// Ingest records a read. The response is 202 whether or not the epc resolved.
func (h *ReadHandler) Ingest(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReadHandler.Ingest")
	defer span.End()

	req, err := utils.BindRequest[IngestReadRequest](c)
	if err != nil {
		return err
	}

	readerID := req.ReaderID
	if readerID == nil {
		if header := appctx.GetReaderID(ctx); header != "" {
			readerID = &header
		}
	}

	assetID, err := h.service.Ingest(ctx, ingest.Read{
		EPC:        req.EPC,
		Timestamp:  req.Timestamp,
		ReaderID:   readerID,
		Antenna:    req.Antenna,
		Gate:       req.Gate,
		Direction:  req.Direction,
		LocationID: req.LocationID,
	})
	if err != nil {
		return err
	}

	return AcceptedResponse(c, IngestResponse{AssetID: assetID})
}

func (h *ReadHandler) Associate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReadHandler.Associate")
	defer span.End()

	req, err := utils.BindRequest[AssociateRequest](c)
	if err != nil {
		return err
	}

	binding, err := h.service.Associate(ctx, ingest.Association{
		EPC:        req.EPC,
		AssetID:    req.AssetID,
		LocationID: req.LocationID,
	})
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Debug("Association rejected")
		return err
	}

	return CreatedResponse(c, NewTagBindingResponse(binding, req.LocationID))
}

func (h *ReadHandler) GetBinding(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReadHandler.GetBinding")
	defer span.End()

	epc, err := PathParam(c, "epc")
	if err != nil {
		return err
	}

	binding, err := h.service.GetBinding(ctx, epc)
	if err != nil {
		return err
	}
	return SuccessResponse(c, NewTagBindingResponse(binding, nil))
}

// Disassociate unbinds one epc. Unbinding an unbound epc returns an empty list.
func (h *ReadHandler) Disassociate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReadHandler.Disassociate")
	defer span.End()

	epc, err := PathParam(c, "epc")
	if err != nil {
		return err
	}

	removed, err := h.service.Disassociate(ctx, epc)
	if err != nil {
		return err
	}
	return SuccessResponse(c, DisassociateResponse{Removed: nonNil(removed)})
}

func (h *ReadHandler) ListBindings(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReadHandler.ListBindings")
	defer span.End()

	assetID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	bindings, err := h.service.ListBindings(ctx, assetID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, nonNil(ectolinq.Map(bindings, func(b *models.TagBinding) TagBindingResponse {
		return NewTagBindingResponse(b, nil)
	})))
}

func (h *ReadHandler) DisassociateAsset(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReadHandler.DisassociateAsset")
	defer span.End()

	assetID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	removed, err := h.service.DisassociateAsset(ctx, assetID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, DisassociateResponse{Removed: nonNil(removed)})
}

// nonNil keeps empty lists rendering as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
