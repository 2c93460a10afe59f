package models

import "time"

// TagBinding ties an EPC to the asset carrying the tag. An EPC has at most
// one binding.
type TagBinding struct {
	EPC       string
	AssetID   string
	CreatedAt time.Time
}
