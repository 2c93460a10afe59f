package undiscovered

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	undiscoveredrepo "github.com/Farcas-Consult/rams-sub000/internal/repositories/undiscovered"
	"github.com/Farcas-Consult/rams-sub000/pkg/metrics"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/redis"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
	"github.com/Farcas-Consult/rams-sub000/pkg/undiscovered"
)

const (
	importLockPrefix = "undiscovered-import:"
	importLockWait   = 5 * time.Second
)

type UndiscoveredRepository interface {
	Create(ctx context.Context, record *models.UndiscoveredAsset) (*models.UndiscoveredAsset, error)
	GetByID(ctx context.Context, id string) (*models.UndiscoveredAsset, error)
	List(ctx context.Context, filter undiscoveredrepo.ListFilter) ([]*models.UndiscoveredAsset, error)
	MarkPromoted(ctx context.Context, id, assetID string) error
}

type AssetRepository interface {
	Create(ctx context.Context, asset *models.Asset) (*models.Asset, error)
}

type TagBindingRepository interface {
	Create(ctx context.Context, binding *models.TagBinding) (*models.TagBinding, error)
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Locker interface {
	WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error
}

// Listing is a stored record with its display projection
type Listing struct {
	*models.UndiscoveredAsset
	Projection undiscovered.Projection
}

type Config struct {
	DefaultMapping string
	LockTTL        time.Duration
}

type Service struct {
	registry *undiscovered.Registry
	repo     UndiscoveredRepository
	assets   AssetRepository
	bindings TagBindingRepository
	tx       Transactor
	locker   Locker
	config   Config
	logger   ectologger.Logger
}

// NewService wires the service. locker may be nil, in which case imports are
// not serialised.
func NewService(
	registry *undiscovered.Registry,
	repo UndiscoveredRepository,
	assets AssetRepository,
	bindings TagBindingRepository,
	tx Transactor,
	locker Locker,
	config Config,
	logger ectologger.Logger,
) *Service {
	if config.DefaultMapping == "" {
		config.DefaultMapping = undiscovered.DefaultMappingName
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 2 * time.Minute
	}
	return &Service{
		registry: registry,
		repo:     repo,
		assets:   assets,
		bindings: bindings,
		tx:       tx,
		locker:   locker,
		config:   config,
		logger:   logger,
	}
}

func (s *Service) mapping(name string) (*undiscovered.CompiledMapping, error) {
	if strings.TrimSpace(name) == "" {
		name = s.config.DefaultMapping
	}
	m, err := s.registry.Get(name)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return m, nil
}

// Ingest extracts every payload with the named mapping and stores the batch
// atomically. A payload the mapping cannot evaluate rejects the whole batch.
func (s *Service) Ingest(ctx context.Context, mappingName string, payloads []map[string]any, source *string) ([]*models.UndiscoveredAsset, error) {
	ctx, span := tracing.StartSpan(ctx, "undiscovered.Ingest")
	defer span.End()

	m, err := s.mapping(mappingName)
	if err != nil {
		return nil, err
	}

	records := make([]*models.UndiscoveredAsset, 0, len(payloads))
	for i, payload := range payloads {
		record, err := m.Extract(payload)
		if err != nil {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "row %d: %v", i+1, err)
		}
		records = append(records, &models.UndiscoveredAsset{
			MappingName:    m.Name,
			MappingVersion: m.Version,
			Payload:        payload,
			Record:         record,
			Source:         source,
			Status:         models.UndiscoveredStatusOpen,
		})
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, record := range records {
			if _, err := s.repo.Create(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.UndiscoveredImportedTotal.WithLabelValues(m.Name).Add(float64(len(records)))
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"mapping": m.Name,
		"version": m.Version,
		"count":   len(records),
	}).Info("ingested undiscovered assets")

	return records, nil
}

// Import reads the first sheet of an xlsx feed and ingests its rows. Imports
// under the same mapping never interleave.
func (s *Service) Import(ctx context.Context, mappingName string, workbook io.Reader, source *string) ([]*models.UndiscoveredAsset, error) {
	ctx, span := tracing.StartSpan(ctx, "undiscovered.Import")
	defer span.End()

	m, err := s.mapping(mappingName)
	if err != nil {
		return nil, err
	}

	payloads, err := undiscovered.ReadWorkbook(workbook)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if s.locker == nil {
		return s.Ingest(ctx, m.Name, payloads, source)
	}

	var records []*models.UndiscoveredAsset
	err = s.locker.WithLock(ctx, importLockPrefix+m.Name, s.config.LockTTL, importLockWait, func(ctx context.Context) error {
		var err error
		records, err = s.Ingest(ctx, m.Name, payloads, source)
		return err
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "an import for mapping %s is already running", m.Name)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

// List returns stored records with their projections, newest first
func (s *Service) List(ctx context.Context, filter undiscoveredrepo.ListFilter) ([]Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "undiscovered.List")
	defer span.End()

	if filter.Status != "" && filter.Status != models.UndiscoveredStatusOpen && filter.Status != models.UndiscoveredStatusPromoted {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid status %q", filter.Status)
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	listings := make([]Listing, len(records))
	for i, record := range records {
		listings[i] = Listing{
			UndiscoveredAsset: record,
			Projection:        undiscovered.Project(record.Record),
		}
	}
	return listings, nil
}

// Promotion overrides the values a promoted asset would otherwise take from
// its record
type Promotion struct {
	AssetNumber *string
	Category    *string
}

// Promote creates a catalog asset from an open record, binds the record's epc
// when it has one and marks the record promoted, all in one transaction.
func (s *Service) Promote(ctx context.Context, id string, promotion Promotion) (*models.Asset, error) {
	ctx, span := tracing.StartSpan(ctx, "undiscovered.Promote")
	defer span.End()

	var created *models.Asset
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		record, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if record.Status == models.UndiscoveredStatusPromoted {
			return httperror.NewHTTPErrorf(http.StatusConflict, "undiscovered asset %s was already promoted", id)
		}

		number := firstNonBlank(promotion.AssetNumber, record.Record.EquipmentNumber)
		if number == "" {
			return httperror.NewHTTPError(http.StatusBadRequest, "assetNumber is required when the record has no equipment number")
		}

		projection := undiscovered.Project(record.Record)
		created, err = s.assets.Create(ctx, &models.Asset{
			AssetNumber:     number,
			Name:            projection.Name,
			Category:        promotion.Category,
			Location:        projection.Location,
			Status:          models.StatusActive,
			State:           models.StateActive,
			Origin:          models.OriginDiscovered,
			DiscoveryStatus: models.DiscoveryPendingReview,
		})
		if err != nil {
			return err
		}

		if epc := firstNonBlank(record.Record.EPC); epc != "" {
			if _, err := s.bindings.Create(ctx, &models.TagBinding{EPC: epc, AssetID: created.ID}); err != nil {
				return err
			}
		}

		return s.repo.MarkPromoted(ctx, id, created.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":       id,
		"asset_id": created.ID,
	}).Info("promoted undiscovered asset")

	return created, nil
}

func firstNonBlank(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil {
			if v := strings.TrimSpace(*c); v != "" {
				return v
			}
		}
	}
	return ""
}
