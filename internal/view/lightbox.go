package view

import "github.com/fpang/photo-gallery/internal/photoapi"

// Action is a lightbox navigation request.
type Action int

const (
	ActionClose Action = iota
	ActionPrev
	ActionNext
)

func (a Action) String() string {
	switch a {
	case ActionClose:
		return "close"
	case ActionPrev:
		return "prev"
	case ActionNext:
		return "next"
	}
	return "unknown"
}

// Lightbox tracks the photo open in the detail view. Leaving a photo with
// unsaved edits is held as a pending action until the user either
// confirms the discard or keeps editing.
type Lightbox struct {
	current    string
	open       bool
	pending    Action
	hasPending bool
}

// Open shows id if it is in the display list.
func (l *Lightbox) Open(id string, proj Projection) bool {
	if proj.IndexOf(id) < 0 {
		return false
	}
	l.current, l.open = id, true
	l.hasPending = false
	return true
}

// Current returns the open photo id.
func (l *Lightbox) Current() (string, bool) {
	return l.current, l.open
}

// Pending returns the action awaiting discard confirmation.
func (l *Lightbox) Pending() (Action, bool) {
	return l.pending, l.hasPending
}

// Request performs a, or holds it when dirty is true. Prev and Next at
// either end of the display list do nothing. It reports whether the open
// photo changed.
func (l *Lightbox) Request(a Action, proj Projection, dirty bool) bool {
	if !l.open {
		return false
	}
	if a != ActionClose {
		if _, ok := proj.Neighbor(l.current, actionDirection(a)); !ok {
			return false
		}
	}
	if dirty {
		l.pending, l.hasPending = a, true
		return false
	}
	return l.perform(a, proj)
}

// ConfirmDiscard performs the pending action.
func (l *Lightbox) ConfirmDiscard(proj Projection) bool {
	if !l.hasPending {
		return false
	}
	a := l.pending
	l.hasPending = false
	return l.perform(a, proj)
}

// KeepEditing drops the pending action.
func (l *Lightbox) KeepEditing() {
	l.hasPending = false
}

// Sync closes the lightbox when its photo left the display list, as after
// a delete or a filter change.
func (l *Lightbox) Sync(proj Projection) {
	if l.open && proj.IndexOf(l.current) < 0 {
		l.close()
	}
}

func (l *Lightbox) perform(a Action, proj Projection) bool {
	if a == ActionClose {
		l.close()
		return true
	}
	next, ok := proj.Neighbor(l.current, actionDirection(a))
	if !ok {
		return false
	}
	l.current = next.ID
	return true
}

func (l *Lightbox) close() {
	l.current, l.open = "", false
	l.hasPending = false
}

func actionDirection(a Action) Direction {
	if a == ActionPrev {
		return Prev
	}
	return Next
}

// Photo returns the open photo as it appears in proj.
func (l *Lightbox) Photo(proj Projection) (photoapi.Photo, bool) {
	if !l.open {
		return photoapi.Photo{}, false
	}
	i := proj.IndexOf(l.current)
	if i < 0 {
		return photoapi.Photo{}, false
	}
	return proj.At(i), true
}
