// Package likecache persists the last known like state per post so a feed
// fetch that races a recent local action never visually regresses it.
//
// The cache is process-wide and keyed by (event, post). It outlives any
// single feed view and survives process restarts through a pluggable Store:
//
//	cache := likecache.New(likecache.NewFileStore(dir))
//	// or
//	cache := likecache.New(likecache.NewRedisStore(redisClient))
//	// or
//	cache := likecache.New(likecache.NewSQLStore(db))
//	// or (tests, throwaway sessions)
//	cache := likecache.New(likecache.NewMemoryStore())
//
// Entries are written on every optimistic toggle and every authoritative
// confirmation, and are never deleted. MergeInto applies the never-regress
// rule to a freshly fetched tree: a cached count strictly greater than the
// fetched one wins, otherwise the fetch wins and the cache is refreshed to
// match. A legitimate server-side decrease is therefore masked until an
// equal-or-greater fetch supersedes the entry; that trade-off is accepted to
// avoid flicker from network races.
package likecache
