// Package store persists player profiles: the chip balance a player brings
// to a table and their lifetime hand counts. Tables never call a store
// directly; the server loads a profile before seating a player and saves it
// through a Writer after they leave.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load for an unknown player.
var ErrNotFound = errors.New("profile not found")

// Profile is the persisted state of one player.
type Profile struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Chips       int       `json:"chips"`
	HandsPlayed int       `json:"hands_played"`
	HandsWon    int       `json:"hands_won"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is a key-value store of profiles keyed by player id.
type Store interface {
	Load(ctx context.Context, playerID string) (Profile, error)
	Save(ctx context.Context, p Profile) error
	Close() error
}
