package models

import "time"

// Origin records how an asset entered the catalog.
type Origin string

const (
	OriginInventory  Origin = "inventory"
	OriginImport     Origin = "import"
	OriginDiscovered Origin = "discovered"
)

func (o Origin) Valid() bool {
	switch o {
	case OriginInventory, OriginImport, OriginDiscovered:
		return true
	}
	return false
}

// DiscoveryStatus is the triage state of an asset first seen by a reader.
type DiscoveryStatus string

const (
	DiscoveryCatalogued    DiscoveryStatus = "catalogued"
	DiscoveryPendingReview DiscoveryStatus = "pending_review"
	DiscoveryUndiscovered  DiscoveryStatus = "undiscovered"
)

func (d DiscoveryStatus) Valid() bool {
	switch d {
	case DiscoveryCatalogued, DiscoveryPendingReview, DiscoveryUndiscovered:
		return true
	}
	return false
}

// LifecycleState is the discriminant of the decommission state machine.
// Status labels and the decommissioned flag are derived from it.
type LifecycleState string

const (
	StateActive         LifecycleState = "active"
	StateDecommissioned LifecycleState = "decommissioned"
)

const (
	StatusActive         = "Active"
	StatusDecommissioned = "Decommissioned"
)

type Asset struct {
	ID                 string
	AssetNumber        string
	Name               string
	Category           *string
	Location           *string
	Status             string
	State              LifecycleState
	DecommissionedAt   *time.Time
	DecommissionReason *string
	Origin             Origin
	DiscoveryStatus    DiscoveryStatus
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a Asset) IsDecommissioned() bool {
	return a.State == StateDecommissioned
}
