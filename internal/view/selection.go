package view

import (
	"sort"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

// Selection is a set of photo ids. The zero value is not usable; call
// NewSelection. Not safe for concurrent use; the gallery store guards it.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in lexical order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Toggle flips id if it is visible and reports whether anything changed.
func (s *Selection) Toggle(id string, visible []photoapi.Photo) bool {
	if !contains(visible, id) {
		return false
	}
	if s.Has(id) {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	return true
}

// ToggleAll clears the selection when every visible photo is already
// selected, else selects all visible photos. Photos hidden by the filter
// are never added. With nothing visible the selection is cleared.
func (s *Selection) ToggleAll(visible []photoapi.Photo) {
	all := true
	for _, p := range visible {
		if !s.Has(p.ID) {
			all = false
			break
		}
	}
	if all {
		s.Clear()
		return
	}
	for _, p := range visible {
		s.ids[p.ID] = struct{}{}
	}
}

func (s *Selection) Clear() {
	clear(s.ids)
}

// Remove drops ids and returns how many were selected.
func (s *Selection) Remove(ids ...string) int {
	n := 0
	for _, id := range ids {
		if s.Has(id) {
			delete(s.ids, id)
			n++
		}
	}
	return n
}

// Retain drops every id that keep rejects.
func (s *Selection) Retain(keep func(id string) bool) {
	for id := range s.ids {
		if !keep(id) {
			delete(s.ids, id)
		}
	}
}

// Clone returns an independent copy.
func (s *Selection) Clone() *Selection {
	c := &Selection{ids: make(map[string]struct{}, len(s.ids))}
	for id := range s.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

func contains(photos []photoapi.Photo, id string) bool {
	for _, p := range photos {
		if p.ID == id {
			return true
		}
	}
	return false
}
