package lifecycle

import (
	"net/http"
	"testing"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func activeAsset() models.Asset {
	return models.Asset{
		ID:              "a-1",
		AssetNumber:     "EQ-100",
		Name:            "Forklift",
		Status:          models.StatusActive,
		State:           models.StateActive,
		Origin:          models.OriginInventory,
		DiscoveryStatus: models.DiscoveryCatalogued,
	}
}

func assertConsistent(t *testing.T, a models.Asset) {
	t.Helper()
	if a.IsDecommissioned() {
		assert.Equal(t, models.StatusDecommissioned, a.Status)
		assert.NotNil(t, a.DecommissionedAt)
	} else {
		assert.NotEqual(t, models.StatusDecommissioned, a.Status)
		assert.Nil(t, a.DecommissionedAt)
	}
}

func TestDecommission_IsIdempotent(t *testing.T) {
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	once := Decommission(activeAsset(), ptr("sold"), first)
	assert.Equal(t, models.StatusDecommissioned, once.Status)
	assert.True(t, once.IsDecommissioned())
	require.NotNil(t, once.DecommissionedAt)
	assert.Equal(t, first, *once.DecommissionedAt)
	assert.Equal(t, "sold", *once.DecommissionReason)

	twice := Decommission(once, nil, second)
	require.NotNil(t, twice.DecommissionedAt)
	assert.Equal(t, first, *twice.DecommissionedAt)
	assertConsistent(t, twice)
}

func TestRecommission_ClearsDecommissionFields(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	decommissioned := Decommission(activeAsset(), ptr("broken"), now)

	recommissioned := Recommission(decommissioned, now.Add(time.Hour))

	assert.Equal(t, models.StatusActive, recommissioned.Status)
	assert.False(t, recommissioned.IsDecommissioned())
	assert.Nil(t, recommissioned.DecommissionedAt)
	assert.Nil(t, recommissioned.DecommissionReason)
}

func TestApplyPatch_LifecycleRule(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	earlier := now.Add(-24 * time.Hour)
	explicit := now.Add(-time.Hour)

	decommissioned := activeAsset()
	decommissioned.State = models.StateDecommissioned
	decommissioned.Status = models.StatusDecommissioned
	decommissioned.DecommissionedAt = &earlier

	repair := activeAsset()
	repair.Status = "In Repair"

	tests := []struct {
		name        string
		prior       models.Asset
		patch       Patch
		wantState   models.LifecycleState
		wantStatus  string
		wantDecomAt *time.Time
	}{
		{
			name:        "explicit flag wins over status",
			prior:       activeAsset(),
			patch:       Patch{IsDecommissioned: ptr(false), Status: ptr("Decommissioned")},
			wantState:   models.StateActive,
			wantStatus:  models.StatusActive,
			wantDecomAt: nil,
		},
		{
			name:        "explicit true wins over other status text",
			prior:       activeAsset(),
			patch:       Patch{IsDecommissioned: ptr(true), Status: ptr("In Repair")},
			wantState:   models.StateDecommissioned,
			wantStatus:  models.StatusDecommissioned,
			wantDecomAt: &now,
		},
		{
			name:        "status derives decommissioned",
			prior:       activeAsset(),
			patch:       Patch{Status: ptr("Decommissioned")},
			wantState:   models.StateDecommissioned,
			wantStatus:  models.StatusDecommissioned,
			wantDecomAt: &now,
		},
		{
			name:        "status leaving decommissioned clears timestamp",
			prior:       decommissioned,
			patch:       Patch{Status: ptr("In Repair")},
			wantState:   models.StateActive,
			wantStatus:  "In Repair",
			wantDecomAt: nil,
		},
		{
			name:        "explicit timestamp used when decommissioning",
			prior:       activeAsset(),
			patch:       Patch{IsDecommissioned: ptr(true), DecommissionedAt: &explicit},
			wantState:   models.StateDecommissioned,
			wantStatus:  models.StatusDecommissioned,
			wantDecomAt: &explicit,
		},
		{
			name:        "staying decommissioned preserves timestamp",
			prior:       decommissioned,
			patch:       Patch{Status: ptr("Decommissioned")},
			wantState:   models.StateDecommissioned,
			wantStatus:  models.StatusDecommissioned,
			wantDecomAt: &earlier,
		},
		{
			name:        "explicit timestamp ignored when result is active",
			prior:       activeAsset(),
			patch:       Patch{DecommissionedAt: &explicit},
			wantState:   models.StateActive,
			wantStatus:  models.StatusActive,
			wantDecomAt: nil,
		},
		{
			name:        "free-text status edit keeps active state",
			prior:       activeAsset(),
			patch:       Patch{Status: ptr("In Repair")},
			wantState:   models.StateActive,
			wantStatus:  "In Repair",
			wantDecomAt: nil,
		},
		{
			name:        "non-lifecycle edit preserves state and status",
			prior:       repair,
			patch:       Patch{Name: ptr("Forklift 2")},
			wantState:   models.StateActive,
			wantStatus:  "In Repair",
			wantDecomAt: nil,
		},
		{
			name:        "non-lifecycle edit on decommissioned asset",
			prior:       decommissioned,
			patch:       Patch{Category: ptr("Vehicles")},
			wantState:   models.StateDecommissioned,
			wantStatus:  models.StatusDecommissioned,
			wantDecomAt: &earlier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyPatch(tt.prior, tt.patch, now)
			require.NoError(t, err)

			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantDecomAt == nil {
				assert.Nil(t, got.DecommissionedAt)
			} else {
				require.NotNil(t, got.DecommissionedAt)
				assert.True(t, tt.wantDecomAt.Equal(*got.DecommissionedAt))
			}
			assertConsistent(t, got)
		})
	}
}

func TestApplyPatch_Classification(t *testing.T) {
	got, err := ApplyPatch(activeAsset(), Patch{
		Origin:          ptr(models.OriginDiscovered),
		DiscoveryStatus: ptr(models.DiscoveryPendingReview),
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.OriginDiscovered, got.Origin)
	assert.Equal(t, models.DiscoveryPendingReview, got.DiscoveryStatus)
	assert.Equal(t, models.StateActive, got.State)
}

func TestApplyPatch_RejectsInvalidValues(t *testing.T) {
	prior := activeAsset()

	_, err := ApplyPatch(prior, Patch{Origin: ptr(models.Origin("stolen"))}, time.Now())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	_, err = ApplyPatch(prior, Patch{DiscoveryStatus: ptr(models.DiscoveryStatus("maybe"))}, time.Now())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	_, err = ApplyPatch(prior, Patch{Name: ptr("  ")}, time.Now())
	require.Error(t, err)
}

func TestTransition(t *testing.T) {
	now := time.Now()
	active := activeAsset()
	decommissioned := Decommission(active, nil, now)

	assert.Equal(t, "decommission", Transition(active, decommissioned))
	assert.Equal(t, "recommission", Transition(decommissioned, Recommission(decommissioned, now)))
	assert.Equal(t, "", Transition(active, active))
}
