// Package gallery holds the authoritative in-memory photo collection for
// one authenticated session, together with the selection and tag filter,
// and applies mutations against the photo service.
//
// The store is the single source of truth for photo existence. Readers
// get copies (Snapshot, View); nothing handed out aliases store state.
// Mutations either apply completely or leave the state as it was.
package gallery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/photo-gallery/internal/photoapi"
	"github.com/fpang/photo-gallery/internal/view"
)

// Service is the remote photo service. *photoapi.Client implements it.
type Service interface {
	ListPhotos(ctx context.Context, opts photoapi.ListOptions) ([]photoapi.Photo, error)
	ListTags(ctx context.Context) ([]photoapi.Tag, error)
	UploadPhoto(ctx context.Context, file photoapi.UploadFile) (int, error)
	DeletePhotos(ctx context.Context, ids []string) ([]string, error)
	AddTags(ctx context.Context, names, photoIDs []string) error
	RemoveTags(ctx context.Context, names, photoIDs []string) error
	RecommendTags(ctx context.Context, id string) ([]string, error)
}

// Invalidator drops cached bytes for photos that left the collection.
type Invalidator interface {
	Invalidate(id string)
}

// Status is the store's load state.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	}
	return "unknown"
}

// Snapshot is a copy of the store state at one instant.
type Snapshot struct {
	Status   Status
	Photos   []photoapi.Photo
	Tags     []photoapi.Tag
	Selected []string
	Filter   []string
}

// Store is safe for concurrent use. No lock is held across a call to the
// photo service.
type Store struct {
	svc Service
	inv Invalidator
	hub *hub

	mu       sync.RWMutex
	loading  int
	loaded   bool
	photos   []photoapi.Photo
	tags     []photoapi.Tag
	ids      map[string]struct{}
	sel      *view.Selection
	filter   *view.TagFilter
	listOpts photoapi.ListOptions
}

// NewStore creates an empty store. inv may be nil.
func NewStore(svc Service, inv Invalidator) *Store {
	return &Store{
		svc:    svc,
		inv:    inv,
		hub:    newHub(),
		ids:    make(map[string]struct{}),
		sel:    view.NewSelection(),
		filter: view.NewTagFilter(),
	}
}

// Subscribe returns a channel of change events and a function that ends
// the subscription. Events to a subscriber that falls behind are dropped.
func (s *Store) Subscribe() (<-chan Event, func()) {
	return s.hub.subscribe()
}

// Status returns the load state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Store) statusLocked() Status {
	switch {
	case s.loading > 0:
		return StatusLoading
	case s.loaded:
		return StatusReady
	}
	return StatusEmpty
}

// SetListOptions changes the server-side listing used by later refreshes.
func (s *Store) SetListOptions(opts photoapi.ListOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listOpts = photoapi.ListOptions{
		Tags:     append([]string(nil), opts.Tags...),
		Untagged: opts.Untagged,
	}
}

// Refresh replaces the collection and tag list with the service's view.
// Concurrent refreshes are not merged: the last one to complete wins.
// On failure the previous collection stays in place.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	opts := s.listOpts
	s.mu.Unlock()
	s.hub.publish(Event{Kind: EventLoading})

	var (
		photos []photoapi.Photo
		tags   []photoapi.Tag
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		photos, err = s.svc.ListPhotos(gctx, opts)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.svc.ListTags(gctx)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	s.loading--
	if err != nil {
		status := s.statusLocked()
		s.mu.Unlock()
		log.Warn().Err(err).Stringer("status", status).Msg("Gallery refresh failed; keeping last known state")
		s.hub.publish(Event{Kind: EventRefreshFailed})
		return fmt.Errorf("refresh: %w", err)
	}
	removed := s.replaceLocked(photos, tags)
	s.loaded = true
	count := len(s.photos)
	s.mu.Unlock()

	log.Debug().Int("photos", count).Int("tags", len(tags)).Int("removed", len(removed)).Msg("Gallery refreshed")
	s.hub.publish(Event{Kind: EventRefreshed, IDs: removed})
	return nil
}

// replaceLocked installs a fresh collection. Photos that disappeared are
// dropped from the selection and their cached bytes invalidated.
func (s *Store) replaceLocked(photos []photoapi.Photo, tags []photoapi.Tag) []string {
	ids := make(map[string]struct{}, len(photos))
	for _, p := range photos {
		ids[p.ID] = struct{}{}
	}

	var removed []string
	for _, p := range s.photos {
		if _, ok := ids[p.ID]; !ok {
			removed = append(removed, p.ID)
		}
	}

	s.photos = photos
	s.tags = tags
	s.ids = ids
	s.sel.Retain(func(id string) bool {
		_, ok := ids[id]
		return ok
	})
	s.invalidateLocked(removed)
	return removed
}

func (s *Store) invalidateLocked(ids []string) {
	if s.inv == nil {
		return
	}
	for _, id := range ids {
		s.inv.Invalidate(id)
	}
}

// Delete deletes photos on the service. On success the deleted photos
// leave the collection, the selection and the blob cache in one
// transition. On failure nothing changes.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	deleted, err := s.svc.DeletePhotos(ctx, ids)
	if err != nil {
		log.Error().Err(err).Strs("ids", ids).Msg("Delete failed; gallery unchanged")
		return fmt.Errorf("delete: %w", err)
	}

	gone := make(map[string]struct{}, len(deleted))
	for _, id := range deleted {
		gone[id] = struct{}{}
	}

	s.mu.Lock()
	kept := make([]photoapi.Photo, 0, len(s.photos))
	counts := make(map[string]int)
	for _, p := range s.photos {
		if _, ok := gone[p.ID]; !ok {
			kept = append(kept, p)
			continue
		}
		delete(s.ids, p.ID)
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	s.photos = kept
	s.tags = subtractTags(s.tags, counts)
	s.sel.Remove(deleted...)
	s.invalidateLocked(deleted)
	s.mu.Unlock()

	log.Info().Int("requested", len(ids)).Int("deleted", len(deleted)).Msg("Photos removed from gallery")
	s.hub.publish(Event{Kind: EventDeleted, IDs: append([]string(nil), deleted...)})
	return nil
}

// subtractTags lowers tag counts by the removed photos' tags and drops
// tags no photo carries any more.
func subtractTags(tags []photoapi.Tag, removed map[string]int) []photoapi.Tag {
	if len(removed) == 0 {
		return tags
	}
	out := make([]photoapi.Tag, 0, len(tags))
	for _, t := range tags {
		t.Count -= removed[t.Name]
		if t.Count > 0 {
			out = append(out, t)
		}
	}
	return out
}

// AddTag tags one photo, then refreshes so counts and tag sets match the
// service. Tags are never merged locally.
func (s *Store) AddTag(ctx context.Context, photoID, tag string) error {
	return s.editTag(ctx, "add tag", photoID, tag, s.svc.AddTags)
}

// RemoveTag untags one photo, then refreshes.
func (s *Store) RemoveTag(ctx context.Context, photoID, tag string) error {
	return s.editTag(ctx, "remove tag", photoID, tag, s.svc.RemoveTags)
}

func (s *Store) editTag(ctx context.Context, op, photoID, tag string, call func(context.Context, []string, []string) error) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("%s: empty tag name: %w", op, photoapi.ErrValidation)
	}
	if !s.Has(photoID) {
		return fmt.Errorf("%s: photo %s: %w", op, photoID, photoapi.ErrNotFound)
	}
	if err := call(ctx, []string{tag}, []string{photoID}); err != nil {
		log.Error().Err(err).Str("photoId", photoID).Str("tag", tag).Msgf("Failed to %s", op)
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info().Str("photoId", photoID).Str("tag", tag).Msgf("Photo %s applied", op)
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecommendTags returns the service's tag suggestions for a photo.
func (s *Store) RecommendTags(ctx context.Context, photoID string) ([]string, error) {
	if !s.Has(photoID) {
		return nil, fmt.Errorf("recommend tags: photo %s: %w", photoID, photoapi.ErrNotFound)
	}
	tags, err := s.svc.RecommendTags(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("recommend tags: %w", err)
	}
	return tags, nil
}

// Has reports whether id is in the collection.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Photo returns a copy of one photo.
func (s *Store) Photo(id string) (photoapi.Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.photos {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return photoapi.Photo{}, false
}

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	photos := make([]photoapi.Photo, len(s.photos))
	for i, p := range s.photos {
		photos[i] = p.Clone()
	}
	return Snapshot{
		Status:   s.statusLocked(),
		Photos:   photos,
		Tags:     append([]photoapi.Tag(nil), s.tags...),
		Selected: s.sel.IDs(),
		Filter:   s.filter.Names(),
	}
}

// TagsByCount returns the tag list ordered for a filter panel: most used
// first, ties by name.
func (s *Store) TagsByCount() []photoapi.Tag {
	s.mu.RLock()
	tags := append([]photoapi.Tag(nil), s.tags...)
	s.mu.RUnlock()
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})
	return tags
}

// View projects the current state.
func (s *Store) View() view.Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view.Project(s.photos, s.sel, s.filter)
}

// --- Selection and filter intents ---

// Toggle flips the selection of a visible photo.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	changed := s.sel.Toggle(id, view.Visible(s.photos, s.filter))
	s.mu.Unlock()
	if changed {
		s.hub.publish(Event{Kind: EventSelectionChanged})
	}
	return changed
}

// ToggleAll selects every visible photo, or clears the selection when all
// of them are already selected.
func (s *Store) ToggleAll() {
	s.mu.Lock()
	s.sel.ToggleAll(view.Visible(s.photos, s.filter))
	s.mu.Unlock()
	s.hub.publish(Event{Kind: EventSelectionChanged})
}

// Select adds visible photos to the selection. Unknown or hidden ids are
// reported back.
func (s *Store) Select(ids ...string) (skipped []string) {
	s.mu.Lock()
	visible := view.Visible(s.photos, s.filter)
	for _, id := range ids {
		if s.sel.Has(id) {
			continue
		}
		if !s.sel.Toggle(id, visible) {
			skipped = append(skipped, id)
		}
	}
	s.mu.Unlock()
	s.hub.publish(Event{Kind: EventSelectionChanged})
	return skipped
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.sel.Clear()
	s.mu.Unlock()
	s.hub.publish(Event{Kind: EventSelectionChanged})
}

// ToggleTagFilter adds or removes a tag from the filter.
func (s *Store) ToggleTagFilter(name string) {
	s.mu.Lock()
	s.filter.Toggle(name)
	s.mu.Unlock()
	s.hub.publish(Event{Kind: EventFilterChanged})
}

// ClearTagFilter removes every tag from the filter.
func (s *Store) ClearTagFilter() {
	s.mu.Lock()
	s.filter.Clear()
	s.mu.Unlock()
	s.hub.publish(Event{Kind: EventFilterChanged})
}
