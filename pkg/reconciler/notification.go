package reconciler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/utils"
)

var ErrInvalidNotification = errors.New("invalid sighting notification")

// DecodeNotification parses a push payload. Unknown fields, a missing epc and
// a missing timestamp are all rejected.
func DecodeNotification(data []byte) (models.SightingNotification, error) {
	var n models.SightingNotification

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&n); err != nil {
		return n, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	if dec.More() {
		return n, fmt.Errorf("%w: trailing data after object", ErrInvalidNotification)
	}
	if _, err := utils.Validate(n); err != nil {
		return n, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	return n, nil
}

// RowFromNotification converts a push payload to a view row. Catalog fields
// the notification does not carry stay nil and are back-filled on merge.
func RowFromNotification(n models.SightingNotification) liveview.Row {
	return liveview.Row{
		AssetID:          n.AssetID,
		AssetNumber:      n.AssetNumber,
		AssetName:        n.AssetName,
		Category:         n.Category,
		Status:           n.Status,
		IsDecommissioned: n.IsDecommissioned,
		EPC:              n.EPC,
		LastSeenAt:       models.NormalizeTimestamp(n.Timestamp),
		ReaderID:         n.ReaderID,
		Gate:             n.Gate,
		Direction:        models.DirectionFromCode(n.Direction),
		Location:         n.Location,
	}
}
