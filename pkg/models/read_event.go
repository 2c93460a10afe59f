package models

import (
	"fmt"
	"strings"
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// ParseDirection accepts "in" or "out" in any case; empty means in.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in":
		return DirectionIn, nil
	case "out":
		return DirectionOut, nil
	default:
		return "", fmt.Errorf("direction must be 'in' or 'out', got %q", s)
	}
}

// DirectionFromCode maps the integer code used on the push channel.
// Anything other than 2 is treated as in.
func DirectionFromCode(code int) Direction {
	if code == 2 {
		return DirectionOut
	}
	return DirectionIn
}

func (d Direction) Code() int {
	if d == DirectionOut {
		return 2
	}
	return 1
}

// ReadEvent is one raw tag read. Events are appended once and never changed.
type ReadEvent struct {
	ID         string
	EPC        string
	SeenAt     time.Time
	ReaderID   *string
	Antenna    *int
	Gate       *string
	Direction  Direction
	AssetID    *string
	LocationID *string
	ReceivedAt time.Time
}

// NormalizeTimestamp puts t in UTC at microsecond precision, the resolution
// postgres stores, so a timestamp survives a database round trip unchanged.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
