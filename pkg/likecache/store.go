package likecache

import "context"

// Store defines the persistence backend for the like cache.
// Implementations must be safe for concurrent use.
//
// Data is an opaque per-event blob owned by the Cache; stores only move
// bytes. The blob format is a JSON object mapping post id (as a string) to
// {"likes": int, "isLiked": bool}.
type Store interface {
	// Load retrieves the blob for an event.
	// Returns (nil, nil) if nothing has been saved for the event.
	Load(ctx context.Context, eventID string) ([]byte, error)

	// Save durably persists the blob for an event, overwriting any previous
	// blob. It must not return until the write is durable.
	Save(ctx context.Context, eventID string, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
type ErrStoreClosed struct{}

func (e ErrStoreClosed) Error() string {
	return "like cache store is closed"
}
