// Package api is the HTTP client for the interaction backend: feed snapshot
// fetches and the two mutation calls (comment creation, like toggle).
//
// The backend is the single source of truth. FetchFeed returns its snapshot
// verbatim; SyncFeed additionally reconciles the snapshot with the persistent
// like cache so a stale fetch never visually regresses a more recent local
// action.
//
// Every call is classified into exactly one of four error kinds
// (NetworkError, AuthError, ServerError, DecodeError) so callers can express
// their recovery policy with errors.As and nothing else.
package api
