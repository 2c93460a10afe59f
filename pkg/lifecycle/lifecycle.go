// Package lifecycle applies decommission/recommission transitions and the
// generic partial update to an asset while keeping the state, status label
// and decommission timestamp consistent.
package lifecycle

import (
	"net/http"
	"strings"
	"time"

	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Gobusters/ectoerror/httperror"
)

// Patch is a partial asset update. Nil fields are left untouched.
type Patch struct {
	Name               *string
	Category           *string
	Location           *string
	Status             *string
	IsDecommissioned   *bool
	DecommissionedAt   *time.Time
	DecommissionReason *string
	Origin             *models.Origin
	DiscoveryStatus    *models.DiscoveryStatus
}

func (p Patch) touchesLifecycle() bool {
	return p.Status != nil || p.IsDecommissioned != nil || p.DecommissionedAt != nil
}

// ApplyPatch returns prior with patch applied.
//
// The decommissioned state is taken from IsDecommissioned when supplied,
// else from whether Status equals "Decommissioned", else from prior.
// DecommissionedAt is the explicit value when the result is decommissioned,
// otherwise now on entry, the prior value while staying decommissioned and
// nil on exit.
func ApplyPatch(prior models.Asset, patch Patch, now time.Time) (models.Asset, error) {
	next := prior

	if patch.Origin != nil {
		if !patch.Origin.Valid() {
			return prior, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid origin %q", *patch.Origin)
		}
		next.Origin = *patch.Origin
	}
	if patch.DiscoveryStatus != nil {
		if !patch.DiscoveryStatus.Valid() {
			return prior, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid discoveryStatus %q", *patch.DiscoveryStatus)
		}
		next.DiscoveryStatus = *patch.DiscoveryStatus
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return prior, httperror.NewHTTPError(http.StatusBadRequest, "name cannot be empty")
		}
		next.Name = *patch.Name
	}
	if patch.Category != nil {
		next.Category = patch.Category
	}
	if patch.Location != nil {
		next.Location = patch.Location
	}
	if patch.DecommissionReason != nil {
		next.DecommissionReason = emptyToNil(patch.DecommissionReason)
	}

	if !patch.touchesLifecycle() {
		return next, nil
	}

	decommissioned := prior.IsDecommissioned()
	switch {
	case patch.IsDecommissioned != nil:
		decommissioned = *patch.IsDecommissioned
	case patch.Status != nil:
		decommissioned = strings.EqualFold(strings.TrimSpace(*patch.Status), models.StatusDecommissioned)
	}

	if decommissioned {
		next.State = models.StateDecommissioned
		next.Status = models.StatusDecommissioned
		switch {
		case patch.DecommissionedAt != nil:
			at := models.NormalizeTimestamp(*patch.DecommissionedAt)
			next.DecommissionedAt = &at
		case prior.DecommissionedAt == nil:
			at := models.NormalizeTimestamp(now)
			next.DecommissionedAt = &at
		}
		return next, nil
	}

	next.State = models.StateActive
	next.DecommissionedAt = nil
	if prior.IsDecommissioned() {
		next.DecommissionReason = nil
	}
	next.Status = models.StatusActive
	if patch.Status != nil && !strings.EqualFold(strings.TrimSpace(*patch.Status), models.StatusDecommissioned) && strings.TrimSpace(*patch.Status) != "" {
		next.Status = strings.TrimSpace(*patch.Status)
	} else if patch.Status == nil && !prior.IsDecommissioned() && prior.Status != "" {
		next.Status = prior.Status
	}
	return next, nil
}

// Decommission moves asset into the decommissioned state. Re-applying it
// keeps the original timestamp.
func Decommission(prior models.Asset, reason *string, now time.Time) models.Asset {
	decommissioned := true
	next, _ := ApplyPatch(prior, Patch{IsDecommissioned: &decommissioned}, now)
	if reason != nil {
		next.DecommissionReason = emptyToNil(reason)
	}
	return next
}

// Recommission returns asset to the active state and clears the
// decommission timestamp and reason.
func Recommission(prior models.Asset, now time.Time) models.Asset {
	decommissioned := false
	next, _ := ApplyPatch(prior, Patch{IsDecommissioned: &decommissioned}, now)
	return next
}

// Transition names the lifecycle change between two versions of an asset,
// or "" when the state did not change.
func Transition(prior, next models.Asset) string {
	switch {
	case !prior.IsDecommissioned() && next.IsDecommissioned():
		return "decommission"
	case prior.IsDecommissioned() && !next.IsDecommissioned():
		return "recommission"
	}
	return ""
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
