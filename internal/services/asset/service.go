package asset

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Farcas-Consult/rams-sub000/pkg/lifecycle"
	"github.com/Farcas-Consult/rams-sub000/pkg/metrics"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

// maxUpdateAttempts bounds the read-modify-write retries of an update made
// without an expected version
const maxUpdateAttempts = 3

type AssetRepository interface {
	Create(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	GetByNumber(ctx context.Context, assetNumber string) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset, expectedVersion int) (*models.Asset, error)
}

// NewAsset is a catalog entry to create
type NewAsset struct {
	AssetNumber     string
	Name            string
	Category        *string
	Location        *string
	Status          *string
	Origin          *models.Origin
	DiscoveryStatus *models.DiscoveryStatus
}

type Service struct {
	repo   AssetRepository
	logger ectologger.Logger
	now    func() time.Time
}

func NewService(repo AssetRepository, logger ectologger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Create adds an active asset to the catalog
func (s *Service) Create(ctx context.Context, input NewAsset) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "asset.Create")
	defer span.End()

	number := strings.TrimSpace(input.AssetNumber)
	if number == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "assetNumber is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	asset := models.Asset{
		AssetNumber:     number,
		Name:            strings.TrimSpace(input.Name),
		Category:        input.Category,
		Location:        input.Location,
		Status:          models.StatusActive,
		State:           models.StateActive,
		Origin:          models.OriginInventory,
		DiscoveryStatus: models.DiscoveryCatalogued,
	}
	if input.Origin != nil {
		asset.Origin = *input.Origin
	}
	if input.DiscoveryStatus != nil {
		asset.DiscoveryStatus = *input.DiscoveryStatus
	}

	// A status given at creation goes through the same rule as an update so a
	// new asset can start decommissioned.
	asset, err := lifecycle.ApplyPatch(asset, lifecycle.Patch{
		Status:          input.Status,
		Origin:          input.Origin,
		DiscoveryStatus: input.DiscoveryStatus,
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"asset_number": asset.AssetNumber,
		"origin":       asset.Origin,
	}).Info("creating asset")

	return s.repo.Create(ctx, &asset)
}

// Get looks an asset up by id, then by equipment number
func (s *Service) Get(ctx context.Context, idOrNumber string) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "asset.Get")
	defer span.End()

	idOrNumber = strings.TrimSpace(idOrNumber)
	if idOrNumber == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "asset id or number is required")
	}

	if _, err := uuid.Parse(idOrNumber); err == nil {
		asset, err := s.repo.GetByID(ctx, idOrNumber)
		if err == nil || httperror.GetStatusCode(err) != http.StatusNotFound {
			return asset, err
		}
	}
	return s.repo.GetByNumber(ctx, idOrNumber)
}

// Patch applies a partial update. With expectedVersion nil the update is
// last-write-wins.
func (s *Service) Patch(ctx context.Context, id string, patch lifecycle.Patch, expectedVersion *int) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "asset.Patch")
	defer span.End()

	return s.mutate(ctx, id, expectedVersion, func(prior models.Asset) (models.Asset, error) {
		return lifecycle.ApplyPatch(prior, patch, s.now())
	})
}

// Decommission is idempotent: a second call keeps the first timestamp
func (s *Service) Decommission(ctx context.Context, id string, reason *string, expectedVersion *int) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "asset.Decommission")
	defer span.End()

	return s.mutate(ctx, id, expectedVersion, func(prior models.Asset) (models.Asset, error) {
		return lifecycle.Decommission(prior, reason, s.now()), nil
	})
}

// Recommission is only valid for a decommissioned asset
func (s *Service) Recommission(ctx context.Context, id string, expectedVersion *int) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "asset.Recommission")
	defer span.End()

	return s.mutate(ctx, id, expectedVersion, func(prior models.Asset) (models.Asset, error) {
		if !prior.IsDecommissioned() {
			return prior, httperror.NewHTTPErrorf(http.StatusConflict, "asset %s is not decommissioned", prior.ID)
		}
		return lifecycle.Recommission(prior, s.now()), nil
	})
}

func (s *Service) mutate(ctx context.Context, id string, expectedVersion *int, apply func(models.Asset) (models.Asset, error)) (*models.Asset, error) {
	attempts := maxUpdateAttempts
	if expectedVersion != nil {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		prior, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		version := prior.Version
		if expectedVersion != nil {
			version = *expectedVersion
		}

		next, err := apply(*prior)
		if err != nil {
			return nil, err
		}

		updated, err := s.repo.Update(ctx, &next, version)
		if err == nil {
			if transition := lifecycle.Transition(*prior, *updated); transition != "" {
				metrics.LifecycleTransitionsTotal.WithLabelValues(transition).Inc()
				s.logger.WithContext(ctx).WithFields(map[string]any{
					"id":         id,
					"transition": transition,
					"version":    updated.Version,
				}).Info("asset lifecycle changed")
			}
			return updated, nil
		}

		if httperror.GetStatusCode(err) != http.StatusConflict || attempt >= attempts {
			return nil, err
		}

		s.logger.WithContext(ctx).WithFields(map[string]any{
			"id":      id,
			"attempt": attempt,
		}).Debug("asset changed during update, retrying")
	}
}
