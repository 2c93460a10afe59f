package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

type LiveViewService interface {
	Snapshot(ctx context.Context) ([]liveview.Row, error)
}

// LiveViewHandler serves the pull side of the live view
type LiveViewHandler struct {
	service LiveViewService
	logger  ectologger.Logger
}

func NewLiveViewHandler(service LiveViewService, logger ectologger.Logger) *LiveViewHandler {
	return &LiveViewHandler{
		service: service,
		logger:  logger,
	}
}

func (h *LiveViewHandler) Register(g *echo.Group) {
	g.GET("/live-view", h.Get)
}

// Get returns the unfiltered snapshot. Filtering is left to consumers.
func (h *LiveViewHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "LiveViewHandler.Get")
	defer span.End()

	rows, err := h.service.Snapshot(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to build live view")
		return err
	}
	return SuccessResponse(c, nonNil(rows))
}
