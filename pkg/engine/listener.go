package engine

import "github.com/gathersync-dev/gathersync/pkg/feed"

// Listener is the surface the owning view implements. Calls arrive on the
// engine's dispatch goroutine; implementations should hand off to their UI
// scheduler rather than block.
type Listener interface {
	// FeedUpdated delivers the new snapshot after any state change.
	FeedUpdated(snapshot feed.EventInteractions)

	// InputRestored returns authored text to the composer after a failed
	// creation, so nothing the user wrote is silently lost.
	InputRestored(text string)

	// ErrorSurfaced reports a recoverable failure the view may show as a
	// dismissible message. Displayed state has not been touched.
	ErrorSurfaced(err error)
}
