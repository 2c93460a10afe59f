package undiscovered

import "github.com/Farcas-Consult/rams-sub000/pkg/models"

// DefaultDisplayName is shown when a record carries no usable description
const DefaultDisplayName = "Discovered Asset"

// Record is the typed view of one feed row
type Record = models.UndiscoveredRecord

func setField(r *Record, field string, value *string) {
	switch field {
	case FieldMaterialDescription:
		r.MaterialDescription = value
	case FieldDescription:
		r.Description = value
	case FieldFunctionalLocationDescription:
		r.FunctionalLocationDescription = value
	case FieldFunctionalLocation:
		r.FunctionalLocation = value
	case FieldLocation:
		r.Location = value
	case FieldEquipmentNumber:
		r.EquipmentNumber = value
	case FieldEPC:
		r.EPC = value
	}
}

// Projection is a record shown as an asset
type Projection struct {
	Name     string  `json:"name"`
	Location *string `json:"location"`
}

// Project applies the display fallbacks:
//
//	name:     material description, description, "Discovered Asset"
//	location: functional location description, functional location, location
func Project(r Record) Projection {
	return Projection{
		Name:     firstOr(DefaultDisplayName, r.MaterialDescription, r.Description),
		Location: first(r.FunctionalLocationDescription, r.FunctionalLocation, r.Location),
	}
}

func first(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return nil
}

func firstOr(fallback string, candidates ...*string) string {
	if c := first(candidates...); c != nil {
		return *c
	}
	return fallback
}
