// Package engine orchestrates optimistic mutations: act now, confirm later.
//
// Every user action mutates the local post tree immediately, then issues the
// network call; the server's eventual answer either overwrites the local
// placeholder values with authoritative ones or rolls the change back.
//
// All state transitions run on a single dispatch goroutine, mirroring a UI
// event loop: public methods apply the optimistic step before returning, and
// network completions are delivered back onto the same loop before touching
// shared state. Mutations to different posts may be in flight concurrently;
// a second toggle on a post whose first toggle is still unresolved is dropped
// by the in-flight guard.
//
// The engine keeps working when its view goes away: a detached listener turns
// UI notifications into no-ops while completions still update the persistent
// like cache.
package engine
