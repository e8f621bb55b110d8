// Package view derives what the gallery shows from the photo collection,
// the selection and the tag filter. Everything here is a pure function of
// its inputs; the gallery store owns the inputs and recomputes a
// Projection after every state change.
package view

import "github.com/fpang/photo-gallery/internal/photoapi"

// Direction picks a neighbour in the display list.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// Projection is the ordered view of the collection for one
// (photos, selection, filter) triple. It does not alias its inputs.
type Projection struct {
	visible []photoapi.Photo
	display []photoapi.Photo
	index   map[string]int // id -> position in display
}

// Project computes the visible and display lists. Server order is kept.
func Project(photos []photoapi.Photo, sel *Selection, filter *TagFilter) Projection {
	visible := Visible(photos, filter)

	display := visible
	if sel != nil && sel.Len() > 0 {
		display = make([]photoapi.Photo, 0, sel.Len())
		for _, p := range visible {
			if sel.Has(p.ID) {
				display = append(display, p)
			}
		}
	}

	index := make(map[string]int, len(display))
	for i, p := range display {
		index[p.ID] = i
	}
	return Projection{visible: visible, display: display, index: index}
}

// Visible returns clones of the photos matching filter, in input order.
func Visible(photos []photoapi.Photo, filter *TagFilter) []photoapi.Photo {
	out := make([]photoapi.Photo, 0, len(photos))
	for _, p := range photos {
		if filter.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Visible returns the photos passing the tag filter.
func (p Projection) Visible() []photoapi.Photo {
	return append([]photoapi.Photo(nil), p.visible...)
}

// VisibleIDs returns the ids of the visible photos, in order.
func (p Projection) VisibleIDs() []string {
	ids := make([]string, len(p.visible))
	for i, ph := range p.visible {
		ids[i] = ph.ID
	}
	return ids
}

// Display returns the visible photos restricted to the selection, or all
// visible photos when nothing is selected.
func (p Projection) Display() []photoapi.Photo {
	return append([]photoapi.Photo(nil), p.display...)
}

// Len returns the length of the display list.
func (p Projection) Len() int { return len(p.display) }

// At returns the i-th photo of the display list.
func (p Projection) At(i int) photoapi.Photo { return p.display[i] }

// IndexOf returns the display position of id, or -1.
func (p Projection) IndexOf(id string) int {
	if i, ok := p.index[id]; ok {
		return i
	}
	return -1
}

// Neighbor returns the photo before or after id in the display list.
// There is none at either end, or when id is not displayed.
func (p Projection) Neighbor(id string, dir Direction) (photoapi.Photo, bool) {
	i, ok := p.index[id]
	if !ok {
		return photoapi.Photo{}, false
	}
	j := i + int(dir)
	if j < 0 || j >= len(p.display) {
		return photoapi.Photo{}, false
	}
	return p.display[j], true
}
