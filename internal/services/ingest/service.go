package ingest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Farcas-Consult/rams-sub000/pkg/metrics"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

type TagBindingRepository interface {
	GetByEPC(ctx context.Context, epc string) (*models.TagBinding, error)
	Create(ctx context.Context, binding *models.TagBinding) (*models.TagBinding, error)
	DeleteByEPC(ctx context.Context, epc string) ([]string, error)
	DeleteByAsset(ctx context.Context, assetID string) ([]string, error)
	ListByAsset(ctx context.Context, assetID string) ([]*models.TagBinding, error)
}

type ReadEventRepository interface {
	Append(ctx context.Context, event *models.ReadEvent) error
}

type PresenceRepository interface {
	Upsert(ctx context.Context, presence *models.Presence) error
}

type AssetRepository interface {
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	UpdateLocation(ctx context.Context, id, location string) error
}

// Read is one tag read as reported by a reader
type Read struct {
	EPC        string
	Timestamp  *time.Time
	ReaderID   *string
	Antenna    *int
	Gate       *string
	Direction  *string
	LocationID *string
}

// Association binds an epc to an asset
type Association struct {
	EPC        string
	AssetID    string
	LocationID *string
}

type Service struct {
	bindings TagBindingRepository
	events   ReadEventRepository
	presence PresenceRepository
	assets   AssetRepository
	notifier *Notifier
	logger   ectologger.Logger
	now      func() time.Time
}

func NewService(
	bindings TagBindingRepository,
	events ReadEventRepository,
	presence PresenceRepository,
	assets AssetRepository,
	notifier *Notifier,
	logger ectologger.Logger,
) *Service {
	return &Service{
		bindings: bindings,
		events:   events,
		presence: presence,
		assets:   assets,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest records a read and returns the resolved asset id, nil when the epc
// is unbound. Only malformed input and a failed append are errors; the
// presence upsert, location update and notifications are best effort.
func (s *Service) Ingest(ctx context.Context, read Read) (*string, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Ingest")
	defer span.End()

	event, err := s.toEvent(read)
	if err != nil {
		return nil, err
	}

	binding, err := s.bindings.GetByEPC(ctx, event.EPC)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"epc": event.EPC,
		}).Warn("Tag lookup failed, recording read as unresolved")
	}
	if binding != nil {
		assetID := binding.AssetID
		event.AssetID = &assetID
	}

	if err := s.events.Append(ctx, &event); err != nil {
		return nil, err
	}
	metrics.RecordRead(event.AssetID != nil)

	var asset *models.Asset
	if event.AssetID != nil {
		s.updatePresence(ctx, event)
		asset = s.lookupAsset(ctx, *event.AssetID)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"epc":      event.EPC,
		"asset_id": event.AssetID,
		"seen_at":  event.SeenAt,
	}).Debug("Ingested read")

	s.notifier.Notify(ctx, models.NewSightingNotification(event, asset))

	return event.AssetID, nil
}

func (s *Service) toEvent(read Read) (models.ReadEvent, error) {
	epc := strings.TrimSpace(read.EPC)
	if epc == "" {
		return models.ReadEvent{}, httperror.NewHTTPError(http.StatusBadRequest, "epc is required")
	}

	direction := models.DirectionIn
	if read.Direction != nil {
		d, err := models.ParseDirection(*read.Direction)
		if err != nil {
			return models.ReadEvent{}, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		direction = d
	}

	seenAt := s.now()
	if read.Timestamp != nil && !read.Timestamp.IsZero() {
		seenAt = *read.Timestamp
	}

	return models.ReadEvent{
		EPC:        epc,
		SeenAt:     models.NormalizeTimestamp(seenAt),
		ReaderID:   read.ReaderID,
		Antenna:    read.Antenna,
		Gate:       read.Gate,
		Direction:  direction,
		LocationID: read.LocationID,
		ReceivedAt: models.NormalizeTimestamp(s.now()),
	}, nil
}

func (s *Service) updatePresence(ctx context.Context, event models.ReadEvent) {
	presence := models.PresenceFromEvent(event)
	if err := s.presence.Upsert(ctx, &presence); err != nil {
		metrics.PresenceFailuresTotal.Inc()
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"asset_id": presence.AssetID,
			"epc":      event.EPC,
		}).Warn("Failed to update presence")
	}

	if event.LocationID == nil || strings.TrimSpace(*event.LocationID) == "" {
		return
	}
	if err := s.assets.UpdateLocation(ctx, presence.AssetID, strings.TrimSpace(*event.LocationID)); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"asset_id":    presence.AssetID,
			"location_id": *event.LocationID,
		}).Warn("Failed to update asset location")
	}
}

func (s *Service) lookupAsset(ctx context.Context, assetID string) *models.Asset {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"asset_id": assetID,
		}).Warn("Failed to load asset for notification")
		return nil
	}
	return asset
}

// Associate binds an epc. A bound epc yields 409 even when it is bound to the
// same asset.
func (s *Service) Associate(ctx context.Context, association Association) (*models.TagBinding, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Associate")
	defer span.End()

	epc := strings.TrimSpace(association.EPC)
	if epc == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "epc is required")
	}
	if strings.TrimSpace(association.AssetID) == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "assetId is required")
	}

	if _, err := s.assets.GetByID(ctx, association.AssetID); err != nil {
		return nil, err
	}

	binding, err := s.bindings.Create(ctx, &models.TagBinding{EPC: epc, AssetID: association.AssetID})
	if err != nil {
		if httperror.GetStatusCode(err) == http.StatusConflict {
			metrics.BindingConflictsTotal.Inc()
		}
		return nil, err
	}

	if association.LocationID != nil && strings.TrimSpace(*association.LocationID) != "" {
		if err := s.assets.UpdateLocation(ctx, association.AssetID, strings.TrimSpace(*association.LocationID)); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"asset_id": association.AssetID,
			}).Warn("Failed to update asset location")
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"epc":      epc,
		"asset_id": association.AssetID,
	}).Info("Tag associated")

	return binding, nil
}

// Disassociate removes the binding of epc. Removing a missing binding returns
// an empty list.
func (s *Service) Disassociate(ctx context.Context, epc string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Disassociate")
	defer span.End()

	epc = strings.TrimSpace(epc)
	if epc == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "epc is required")
	}
	return s.bindings.DeleteByEPC(ctx, epc)
}

// DisassociateAsset removes every binding of an asset
func (s *Service) DisassociateAsset(ctx context.Context, assetID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.DisassociateAsset")
	defer span.End()

	return s.bindings.DeleteByAsset(ctx, assetID)
}

func (s *Service) GetBinding(ctx context.Context, epc string) (*models.TagBinding, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.GetBinding")
	defer span.End()

	binding, err := s.bindings.GetByEPC(ctx, strings.TrimSpace(epc))
	if err != nil {
		return nil, err
	}
	if binding == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "epc %s is not bound", epc)
	}
	return binding, nil
}

func (s *Service) ListBindings(ctx context.Context, assetID string) ([]*models.TagBinding, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.ListBindings")
	defer span.End()

	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, err
	}
	return s.bindings.ListByAsset(ctx, assetID)
}
