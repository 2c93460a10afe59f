package reconciler

import (
	"context"

	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
)

// Puller fetches the current snapshot
type Puller interface {
	Pull(ctx context.Context) ([]liveview.Row, error)
}

// PushSource opens a stream of raw notification payloads
type PushSource interface {
	Connect(ctx context.Context) (PushStream, error)
}

// PushStream is one connection to the push channel. Next returns an error
// once the connection is lost or closed.
type PushStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}
