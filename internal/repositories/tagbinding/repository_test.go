package tagbinding_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farcas-Consult/rams-sub000/internal/repositories/asset"
	"github.com/Farcas-Consult/rams-sub000/internal/repositories/tagbinding"
	"github.com/Farcas-Consult/rams-sub000/pkg/database/databasetest"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

func createAsset(t *testing.T, repo *asset.Repository, number string) *models.Asset {
	t.Helper()
	created, err := repo.Create(context.Background(), &models.Asset{
		AssetNumber:     number,
		Name:            number,
		Status:          models.StatusActive,
		State:           models.StateActive,
		Origin:          models.OriginInventory,
		DiscoveryStatus: models.DiscoveryCatalogued,
	})
	require.NoError(t, err)
	return created
}

func TestTagBindingRepository_Lifecycle(t *testing.T) {
	db := databasetest.Start(t)
	logger := databasetest.Logger()
	assets := asset.NewRepository(db, logger)
	repo := tagbinding.NewRepository(db, logger)
	ctx := context.Background()

	a := createAsset(t, assets, "EQ-10")
	b := createAsset(t, assets, "EQ-11")

	binding, err := repo.GetByEPC(ctx, "E200-1")
	require.NoError(t, err)
	assert.Nil(t, binding)

	_, err = repo.Create(ctx, &models.TagBinding{EPC: "E200-1", AssetID: a.ID})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.TagBinding{EPC: "E200-2", AssetID: a.ID})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.TagBinding{EPC: "E200-1", AssetID: b.ID})
	databasetest.AssertStatus(t, err, http.StatusConflict)

	_, err = repo.Create(ctx, &models.TagBinding{EPC: "E200-3", AssetID: uuid.New().String()})
	databasetest.AssertStatus(t, err, http.StatusNotFound)

	binding, err = repo.GetByEPC(ctx, "E200-1")
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, a.ID, binding.AssetID)

	listed, err := repo.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	removed, err := repo.DeleteByEPC(ctx, "E200-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"E200-1"}, removed)

	removed, err = repo.DeleteByEPC(ctx, "E200-1")
	require.NoError(t, err)
	assert.Empty(t, removed)

	removed, err = repo.DeleteByAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E200-2"}, removed)
}
