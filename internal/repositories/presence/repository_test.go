package presence_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farcas-Consult/rams-sub000/internal/repositories/asset"
	"github.com/Farcas-Consult/rams-sub000/internal/repositories/presence"
	"github.com/Farcas-Consult/rams-sub000/pkg/database/databasetest"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

func TestPresenceRepository_UpsertAndListKnown(t *testing.T) {
	db := databasetest.Start(t)
	logger := databasetest.Logger()
	assets := asset.NewRepository(db, logger)
	repo := presence.NewRepository(db, logger)
	ctx := context.Background()

	category := "Vehicles"
	a, err := assets.Create(ctx, &models.Asset{
		AssetNumber:     "EQ-20",
		Name:            "Forklift",
		Category:        &category,
		Status:          models.StatusActive,
		State:           models.StateActive,
		Origin:          models.OriginInventory,
		DiscoveryStatus: models.DiscoveryCatalogued,
	})
	require.NoError(t, err)

	_, err = repo.Get(ctx, a.ID)
	databasetest.AssertStatus(t, err, http.StatusNotFound)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gate := "Gate A"
	require.NoError(t, repo.Upsert(ctx, &models.Presence{
		AssetID:           a.ID,
		LastSeenEPC:       "E1",
		LastSeenAt:        base,
		LastSeenGate:      &gate,
		LastSeenDirection: models.DirectionIn,
	}))
	require.NoError(t, repo.Upsert(ctx, &models.Presence{
		AssetID:           a.ID,
		LastSeenEPC:       "E2",
		LastSeenAt:        base.Add(time.Minute),
		LastSeenDirection: models.DirectionOut,
	}))

	current, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "E2", current.LastSeenEPC)
	assert.Nil(t, current.LastSeenGate)
	assert.Equal(t, models.DirectionOut, current.LastSeenDirection)

	known, err := repo.ListKnown(ctx)
	require.NoError(t, err)
	require.Len(t, known, 1)
	assert.Equal(t, "EQ-20", known[0].Asset.AssetNumber)
	assert.Equal(t, "Forklift", known[0].Asset.Name)
	require.NotNil(t, known[0].Asset.Category)
	assert.Equal(t, "Vehicles", *known[0].Asset.Category)
	assert.True(t, known[0].Presence.LastSeenAt.Equal(base.Add(time.Minute)))
}
