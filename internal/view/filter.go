package view

import (
	"sort"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

// TagFilter is a set of tag names with AND semantics: a photo matches when
// it carries every name. An empty or nil filter matches everything.
type TagFilter struct {
	names map[string]struct{}
}

func NewTagFilter(names ...string) *TagFilter {
	f := &TagFilter{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		f.names[n] = struct{}{}
	}
	return f
}

// Toggle adds or removes name and reports whether it is now active.
func (f *TagFilter) Toggle(name string) bool {
	if _, ok := f.names[name]; ok {
		delete(f.names, name)
		return false
	}
	f.names[name] = struct{}{}
	return true
}

func (f *TagFilter) Clear() { clear(f.names) }

func (f *TagFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the active names in lexical order.
func (f *TagFilter) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.names))
	for n := range f.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether p carries every tag in the filter.
func (f *TagFilter) Matches(p photoapi.Photo) bool {
	if f == nil {
		return true
	}
	for n := range f.names {
		if !p.HasTag(n) {
			return false
		}
	}
	return true
}

func (f *TagFilter) Clone() *TagFilter {
	c := &TagFilter{names: make(map[string]struct{}, f.Len())}
	if f != nil {
		for n := range f.names {
			c.names[n] = struct{}{}
		}
	}
	return c
}
