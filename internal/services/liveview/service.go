package liveview

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

type PresenceRepository interface {
	ListKnown(ctx context.Context) ([]liveview.KnownRow, error)
}

type ReadEventRepository interface {
	LatestUnresolved(ctx context.Context) ([]models.ReadEvent, error)
}

type Service struct {
	presence PresenceRepository
	events   ReadEventRepository
	logger   ectologger.Logger
}

func NewService(presence PresenceRepository, events ReadEventRepository, logger ectologger.Logger) *Service {
	return &Service{
		presence: presence,
		events:   events,
		logger:   logger,
	}
}

// Snapshot returns every known asset's presence and the newest read of each
// unresolved epc, newest first
func (s *Service) Snapshot(ctx context.Context) ([]liveview.Row, error) {
	ctx, span := tracing.StartSpan(ctx, "liveview.Snapshot")
	defer span.End()

	known, err := s.presence.ListKnown(ctx)
	if err != nil {
		return nil, err
	}

	unresolved, err := s.events.LatestUnresolved(ctx)
	if err != nil {
		return nil, err
	}

	rows := liveview.Build(known, unresolved)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"known":      len(known),
		"unresolved": len(unresolved),
	}).Debug("Built live view")

	return rows, nil
}
