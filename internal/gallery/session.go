package gallery

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-gallery/internal/blobcache"
)

// Remote is everything a session needs from the photo service.
type Remote interface {
	Service
	blobcache.Fetcher
}

// Session wires one store and one blob cache for an authenticated user.
// The cache refuses photos the store does not hold, and the store
// invalidates cache entries for photos it drops.
type Session struct {
	Store *Store
	Cache *blobcache.Cache
}

// NewSession creates the store and cache for remote. Cache options such
// as WithFs and WithDir pass through.
func NewSession(remote Remote, opts ...blobcache.Option) *Session {
	store := NewStore(remote, nil)
	cache := blobcache.New(remote, append(opts, blobcache.WithMembership(store))...)
	store.inv = cache
	return &Session{Store: store, Cache: cache}
}

// Resolve returns a handle for a photo in the collection.
func (s *Session) Resolve(ctx context.Context, id string) (*blobcache.Handle, error) {
	return s.Cache.Resolve(ctx, id)
}

// Close releases every cached handle. Call it on logout or exit.
func (s *Session) Close() error {
	stats := s.Cache.Stats()
	log.Debug().
		Int64("hits", stats.Hits).
		Int64("joins", stats.Joins).
		Int64("fetches", stats.Fetches).
		Int64("failures", stats.Failures).
		Msg("Closing gallery session")
	return s.Cache.ReleaseAll()
}
