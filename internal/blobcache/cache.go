// Package blobcache maps photo ids to locally resolvable handles over the
// photos' bytes. Fetches are lazy and joined per id: while a fetch for an
// id is in flight, every other Resolve for that id waits on the same fetch.
//
// Handles are files on an afero.Fs. A handle stays valid until the cache
// releases it, either through Invalidate or ReleaseAll. The cache has no
// eviction policy of its own; its size is bounded by the photos the
// gallery currently holds.
package blobcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrClosed is returned by Resolve after ReleaseAll.
	ErrClosed = errors.New("blob cache closed")

	// ErrUnknownPhoto is returned for ids the gallery does not hold.
	ErrUnknownPhoto = errors.New("photo not in collection")

	// ErrInvalidated is returned to callers waiting on a fetch whose entry
	// was invalidated before the fetch completed.
	ErrInvalidated = errors.New("entry invalidated during fetch")

	// ErrFetchFailed matches every cached terminal fetch failure.
	ErrFetchFailed = errors.New("fetch failed")
)

// FetchError is the terminal failure cached for a photo. It matches both
// ErrFetchFailed and the underlying cause under errors.Is.
type FetchError struct {
	PhotoID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch photo %s: %v", e.PhotoID, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// Fetcher downloads a photo's bytes. *photoapi.Client satisfies it.
type Fetcher interface {
	GetPhotoContent(ctx context.Context, id string) ([]byte, string, error)
}

// Membership reports whether an id is in the authoritative collection.
type Membership interface {
	Has(id string) bool
}

// State is the lifecycle state of a cache entry.
type State int

const (
	StatePending State = iota
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type entry struct {
	state  State
	handle *Handle
	err    error
}

// Stats counts cache activity since construction.
type Stats struct {
	Hits     int64 // resolved entries served without fetching
	Joins    int64 // callers that waited on another caller's fetch
	Fetches  int64 // requests sent to the Fetcher
	Failures int64 // fetches cached as terminal failures
	Releases int64 // handles released
}

// Option configures a Cache.
type Option func(*Cache)

// WithMembership makes Resolve refuse ids that m does not hold.
func WithMembership(m Membership) Option {
	return func(c *Cache) { c.members = m }
}

// WithFs sets the filesystem handles are written to. Defaults to the OS
// filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) { c.fs = fs }
}

// WithDir sets the directory handles are written to. Defaults to the OS
// temp directory.
func WithDir(dir string) Option {
	return func(c *Cache) { c.dir = dir }
}

// Cache is safe for concurrent use. Operations on different ids do not
// wait on each other's fetches.
type Cache struct {
	fetcher Fetcher
	members Membership
	fs      afero.Fs
	dir     string

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	hits, joins, fetches, failures, releases atomic.Int64
}

// New creates a cache that fetches through f.
func New(f Fetcher, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		fetcher: f,
		fs:      afero.NewOsFs(),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the handle for id, fetching it if needed.
//
// If ctx ends first, Resolve returns ctx.Err() but the fetch keeps running
// and its result is cached for later callers.
func (c *Cache) Resolve(ctx context.Context, id string) (*Handle, error) {
	// Membership takes the gallery's lock, so it must run before c.mu.
	if c.members != nil && !c.members.Has(id) {
		return nil, fmt.Errorf("resolve %s: %w", id, ErrUnknownPhoto)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := c.entries[id]
	if ok {
		switch e.state {
		case StateResolved:
			c.mu.Unlock()
			c.hits.Add(1)
			return e.handle, nil
		case StateFailed:
			c.mu.Unlock()
			return nil, e.err
		}
		c.joins.Add(1)
	} else {
		e = &entry{state: StatePending}
		c.entries[id] = e
	}
	c.mu.Unlock()

	ch := c.group.DoChan(id, func() (any, error) {
		return c.fetch(id, e)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		log.Debug().Str("photoId", id).Msg("Resolve abandoned; fetch continues")
		return nil, ctx.Err()
	}
}

// fetch runs at most once per pending entry. Joiners that reach DoChan
// after the fetch finished see the entry settled and take its result.
func (c *Cache) fetch(id string, e *entry) (*Handle, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.entries[id] != e:
		c.mu.Unlock()
		return nil, fmt.Errorf("resolve %s: %w", id, ErrInvalidated)
	case e.state != StatePending:
		h, err := e.handle, e.err
		c.mu.Unlock()
		return h, err
	}
	c.mu.Unlock()

	c.fetches.Add(1)
	data, contentType, err := c.fetcher.GetPhotoContent(c.ctx, id)
	var h *Handle
	if err == nil {
		h, err = newHandle(c.fs, c.dir, id, contentType, data)
	}

	// The photo may have left the collection after Resolve checked it.
	// Removals that land later go through Invalidate and are caught below.
	if c.members != nil && !c.members.Has(id) {
		c.mu.Lock()
		if c.entries[id] == e {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		if h != nil {
			c.release(h)
		}
		return nil, fmt.Errorf("resolve %s: %w", id, ErrUnknownPhoto)
	}

	c.mu.Lock()
	if c.closed || c.entries[id] != e {
		closed := c.closed
		c.mu.Unlock()
		if h != nil {
			c.release(h)
		}
		if closed {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("resolve %s: %w", id, ErrInvalidated)
	}
	if err != nil {
		e.state = StateFailed
		e.err = &FetchError{PhotoID: id, Err: err}
		c.mu.Unlock()
		c.failures.Add(1)
		log.Warn().Err(err).Str("photoId", id).Msg("Photo fetch failed")
		return nil, e.err
	}
	e.state = StateResolved
	e.handle = h
	c.mu.Unlock()

	log.Debug().Str("photoId", id).Int64("bytes", h.size).Str("path", h.path).Msg("Photo handle resolved")
	return h, nil
}

// Invalidate releases any handle for id and drops the entry, so the next
// Resolve fetches again. Waiters on an in-flight fetch for id receive
// ErrInvalidated. Invalidating an absent id does nothing.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
		c.group.Forget(id)
	}
	c.mu.Unlock()

	if ok && e.handle != nil {
		c.release(e.handle)
	}
}

// ReleaseAll releases every resolved handle and closes the cache. In-flight
// fetches are cancelled; handles they produce are released on arrival.
func (c *Cache) ReleaseAll() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := c.entries
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
	c.cancel()

	var errs []error
	released := 0
	for id, e := range entries {
		c.group.Forget(id)
		if e.handle == nil {
			continue
		}
		if err := c.release(e.handle); err != nil {
			errs = append(errs, err)
		}
		released++
	}
	log.Info().Int("released", released).Msg("Blob cache released")
	return errors.Join(errs...)
}

// Lookup reports the state of the entry for id, if any.
func (c *Cache) Lookup(id string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Len returns the number of entries, including pending and failed ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the activity counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Joins:    c.joins.Load(),
		Fetches:  c.fetches.Load(),
		Failures: c.failures.Load(),
		Releases: c.releases.Load(),
	}
}

func (c *Cache) release(h *Handle) error {
	did, err := h.release()
	if did {
		c.releases.Add(1)
	}
	if err != nil {
		log.Warn().Err(err).Str("photoId", h.photoID).Msg("Failed to remove photo handle")
	}
	return err
}
