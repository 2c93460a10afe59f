package liveview

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func known(assetID, epc string, at time.Time, gate string) KnownRow {
	return KnownRow{
		Presence: models.Presence{
			AssetID:           assetID,
			LastSeenEPC:       epc,
			LastSeenAt:        at,
			LastSeenGate:      ptr(gate),
			LastSeenDirection: models.DirectionIn,
		},
		Asset: models.Asset{
			ID:          assetID,
			AssetNumber: "EQ-" + assetID,
			Name:        "Asset " + assetID,
			Status:      models.StatusActive,
			State:       models.StateActive,
		},
	}
}

func unresolved(epc string, at time.Time) models.ReadEvent {
	return models.ReadEvent{EPC: epc, SeenAt: at, Direction: models.DirectionOut}
}

func TestBuild_KnownAndUnresolvedSortedNewestFirst(t *testing.T) {
	ten := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	rows := Build(
		[]KnownRow{known("A", "E1", ten, "G1")},
		[]models.ReadEvent{unresolved("E2", ten.Add(5*time.Minute))},
	)

	require.Len(t, rows, 2)

	assert.Equal(t, "E2", rows[0].EPC)
	assert.Nil(t, rows[0].AssetID)
	assert.Nil(t, rows[0].AssetName)
	assert.Nil(t, rows[0].Status)
	assert.Equal(t, models.DirectionOut, rows[0].Direction)

	require.NotNil(t, rows[1].AssetID)
	assert.Equal(t, "A", *rows[1].AssetID)
	assert.Equal(t, "G1", *rows[1].Gate)
	assert.Equal(t, ten, rows[1].LastSeenAt)
	assert.False(t, *rows[1].IsDecommissioned)
}

func TestBuild_TiesBrokenByEPC(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	first := Build(
		[]KnownRow{known("B", "E9", at, "G1"), known("A", "E3", at, "G1")},
		[]models.ReadEvent{unresolved("E5", at), unresolved("E1", at)},
	)
	second := Build(
		[]KnownRow{known("A", "E3", at, "G1"), known("B", "E9", at, "G1")},
		[]models.ReadEvent{unresolved("E1", at), unresolved("E5", at)},
	)

	epcs := func(rows []Row) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.EPC)
		}
		return out
	}
	assert.Equal(t, []string{"E1", "E3", "E5", "E9"}, epcs(first))

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuild_Empty(t *testing.T) {
	rows := Build(nil, nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestBuild_DecommissionedAssetFlag(t *testing.T) {
	k := known("A", "E1", time.Now(), "G1")
	k.Asset.State = models.StateDecommissioned
	k.Asset.Status = models.StatusDecommissioned

	rows := Build([]KnownRow{k}, nil)
	require.Len(t, rows, 1)
	assert.True(t, *rows[0].IsDecommissioned)
	assert.Equal(t, models.StatusDecommissioned, *rows[0].Status)
}
