package handlers

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Farcas-Consult/rams-sub000/internal/services/asset"
	"github.com/Farcas-Consult/rams-sub000/pkg/lifecycle"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
	"github.com/Farcas-Consult/rams-sub000/pkg/utils"
)

type AssetService interface {
	Create(ctx context.Context, input asset.NewAsset) (*models.Asset, error)
	Get(ctx context.Context, idOrNumber string) (*models.Asset, error)
	Patch(ctx context.Context, id string, patch lifecycle.Patch, expectedVersion *int) (*models.Asset, error)
	Decommission(ctx context.Context, id string, reason *string, expectedVersion *int) (*models.Asset, error)
	Recommission(ctx context.Context, id string, expectedVersion *int) (*models.Asset, error)
}

// AssetHandler handles asset catalog and lifecycle endpoints
type AssetHandler struct {
	service AssetService
	logger  ectologger.Logger
}

func NewAssetHandler(service AssetService, logger ectologger.Logger) *AssetHandler {
	return &AssetHandler{
		service: service,
		logger:  logger,
	}
}

// CreateAssetRequest represents the create asset request body
type CreateAssetRequest struct {
	AssetNumber     string  `json:"assetNumber" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	Category        *string `json:"category"`
	Location        *string `json:"location"`
	Status          *string `json:"status"`
	Origin          *string `json:"origin" validate:"omitempty,oneof=inventory import discovered"`
	DiscoveryStatus *string `json:"discoveryStatus" validate:"omitempty,oneof=catalogued pending_review undiscovered"`
}

// PatchAssetRequest is a partial update. Absent fields are left untouched.
type PatchAssetRequest struct {
	ID                 string     `param:"id" json:"-"`
	Name               *string    `json:"name"`
	Category           *string    `json:"category"`
	Location           *string    `json:"location"`
	Status             *string    `json:"status"`
	IsDecommissioned   *bool      `json:"isDecommissioned"`
	DecommissionedAt   *time.Time `json:"decommissionedAt"`
	DecommissionReason *string    `json:"decommissionReason"`
	Origin             *string    `json:"origin"`
	DiscoveryStatus    *string    `json:"discoveryStatus"`
	ExpectedVersion    *int       `json:"expectedVersion" validate:"omitempty,gte=1"`
}

// DecommissionRequest represents the decommission request body
type DecommissionRequest struct {
	ID              string  `param:"id" json:"-"`
	Reason          *string `json:"reason"`
	ExpectedVersion *int    `json:"expectedVersion" validate:"omitempty,gte=1"`
}

// RecommissionRequest represents the recommission request body
type RecommissionRequest struct {
	ID              string `param:"id" json:"-"`
	ExpectedVersion *int   `json:"expectedVersion" validate:"omitempty,gte=1"`
}

// Register registers asset routes
func (h *AssetHandler) Register(g *echo.Group) {
	g.POST("/assets", h.Create)
	g.GET("/assets/:id", h.Get)
	g.PATCH("/assets/:id", h.Patch)
	g.POST("/assets/:id/decommission", h.Decommission)
	g.POST("/assets/:id/recommission", h.Recommission)
}

func (h *AssetHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AssetHandler.Create")
	defer span.End()

	req, err := utils.BindRequest[CreateAssetRequest](c)
	if err != nil {
		return err
	}

	created, err := h.service.Create(ctx, asset.NewAsset{
		AssetNumber:     req.AssetNumber,
		Name:            req.Name,
		Category:        req.Category,
		Location:        req.Location,
		Status:          req.Status,
		Origin:          toOrigin(req.Origin),
		DiscoveryStatus: toDiscoveryStatus(req.DiscoveryStatus),
	})
	if err != nil {
		return err
	}
	return CreatedResponse(c, NewAssetResponse(created))
}

// Get accepts either the asset id or its equipment number
func (h *AssetHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AssetHandler.Get")
	defer span.End()

	idOrNumber, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	found, err := h.service.Get(ctx, idOrNumber)
	if err != nil {
		return err
	}
	return SuccessResponse(c, NewAssetResponse(found))
}

// Patch is the generic update path. Lifecycle changes sent through it follow
// the same rule as the decommission and recommission endpoints.
func (h *AssetHandler) Patch(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AssetHandler.Patch")
	defer span.End()

	req, err := utils.BindRequest[PatchAssetRequest](c)
	if err != nil {
		return err
	}

	updated, err := h.service.Patch(ctx, req.ID, lifecycle.Patch{
		Name:               req.Name,
		Category:           req.Category,
		Location:           req.Location,
		Status:             req.Status,
		IsDecommissioned:   req.IsDecommissioned,
		DecommissionedAt:   req.DecommissionedAt,
		DecommissionReason: req.DecommissionReason,
		Origin:             toOrigin(req.Origin),
		DiscoveryStatus:    toDiscoveryStatus(req.DiscoveryStatus),
	}, req.ExpectedVersion)
	if err != nil {
		return err
	}
	return SuccessResponse(c, NewAssetResponse(updated))
}

func (h *AssetHandler) Decommission(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AssetHandler.Decommission")
	defer span.End()

	req, err := utils.BindRequest[DecommissionRequest](c)
	if err != nil {
		return err
	}

	updated, err := h.service.Decommission(ctx, req.ID, req.Reason, req.ExpectedVersion)
	if err != nil {
		return err
	}
	return SuccessResponse(c, NewAssetResponse(updated))
}

func (h *AssetHandler) Recommission(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AssetHandler.Recommission")
	defer span.End()

	req, err := utils.BindRequest[RecommissionRequest](c)
	if err != nil {
		return err
	}

	updated, err := h.service.Recommission(ctx, req.ID, req.ExpectedVersion)
	if err != nil {
		return err
	}
	return SuccessResponse(c, NewAssetResponse(updated))
}

func toOrigin(s *string) *models.Origin {
	if s == nil {
		return nil
	}
	o := models.Origin(*s)
	return &o
}

func toDiscoveryStatus(s *string) *models.DiscoveryStatus {
	if s == nil {
		return nil
	}
	d := models.DiscoveryStatus(*s)
	return &d
}
