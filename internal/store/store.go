// Package store persists committed session state. The session actor never
// waits on it: snapshots reach a Store through the asynchronous Writer.
package store

import (
	"context"
	"errors"

	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	// SaveSession upserts the state. Saves with a version at or below the stored one are ignored.
	SaveSession(ctx context.Context, version int, s engine.State) error
	LoadSession(ctx context.Context, id string) (engine.State, int, error)
}
