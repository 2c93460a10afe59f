package readevent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farcas-Consult/rams-sub000/internal/repositories/readevent"
	"github.com/Farcas-Consult/rams-sub000/pkg/database/databasetest"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

func read(epc string, at time.Time) *models.ReadEvent {
	gate := "Gate A"
	return &models.ReadEvent{
		EPC:       epc,
		SeenAt:    models.NormalizeTimestamp(at),
		Gate:      &gate,
		Direction: models.DirectionIn,
	}
}

func TestReadEventRepository_LatestUnresolvedPerEPC(t *testing.T) {
	db := databasetest.Start(t)
	repo := readevent.NewRepository(db, databasetest.Logger())
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, read("E1", base)))
	require.NoError(t, repo.Append(ctx, read("E1", base.Add(2*time.Minute))))
	require.NoError(t, repo.Append(ctx, read("E1", base.Add(time.Minute))))
	require.NoError(t, repo.Append(ctx, read("E2", base)))

	latest, err := repo.LatestUnresolved(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	byEPC := map[string]models.ReadEvent{}
	for _, e := range latest {
		byEPC[e.EPC] = e
	}
	assert.True(t, byEPC["E1"].SeenAt.Equal(base.Add(2*time.Minute)))
	assert.True(t, byEPC["E2"].SeenAt.Equal(base))
	require.NotNil(t, byEPC["E1"].Gate)
	assert.Equal(t, "Gate A", *byEPC["E1"].Gate)
}

func TestReadEventRepository_ListByEPCNewestFirst(t *testing.T) {
	db := databasetest.Start(t)
	repo := readevent.NewRepository(db, databasetest.Logger())
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, read("E9", base.Add(time.Duration(i)*time.Second))))
	}

	events, err := repo.ListByEPC(ctx, "E9", 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[0].SeenAt.Equal(base.Add(4*time.Second)))
	assert.True(t, events[2].SeenAt.Equal(base.Add(2*time.Second)))
}
