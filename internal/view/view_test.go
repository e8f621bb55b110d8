package view

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

func samplePhotos() []photoapi.Photo {
	return []photoapi.Photo{
		{ID: "A", Tags: []string{"x", "y"}},
		{ID: "B", Tags: []string{"x"}},
		{ID: "C", Tags: []string{"y"}},
	}
}

func ids(photos []photoapi.Photo) string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.ID
	}
	return strings.Join(out, ",")
}

func TestFilterAndSemantics(t *testing.T) {
	tests := []struct {
		name   string
		filter []string
		want   string
	}{
		{name: "both tags", filter: []string{"x", "y"}, want: "A"},
		{name: "single tag", filter: []string{"x"}, want: "A,B"},
		{name: "empty filter", filter: nil, want: "A,B,C"},
		{name: "unknown tag", filter: []string{"z"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := Project(samplePhotos(), NewSelection(), NewTagFilter(tt.filter...))
			if got := ids(proj.Visible()); got != tt.want {
				t.Errorf("visible = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNilFilterMatchesEverything(t *testing.T) {
	if got := ids(Visible(samplePhotos(), nil)); got != "A,B,C" {
		t.Errorf("visible = %q", got)
	}
}

func TestDisplayListRestrictedToSelection(t *testing.T) {
	photos := samplePhotos()

	proj := Project(photos, NewSelection("C", "A"), nil)
	if got := ids(proj.Display()); got != "A,C" {
		t.Errorf("display = %q, want server order A,C", got)
	}

	// Selected but filtered out photos are not displayed.
	proj = Project(photos, NewSelection("C", "B"), NewTagFilter("x"))
	if got := ids(proj.Display()); got != "B" {
		t.Errorf("display = %q, want B", got)
	}

	proj = Project(photos, NewSelection(), NewTagFilter("x"))
	if got := ids(proj.Display()); got != "A,B" {
		t.Errorf("display without selection = %q, want A,B", got)
	}
}

func TestProjectionDoesNotAliasInput(t *testing.T) {
	photos := samplePhotos()
	proj := Project(photos, nil, nil)
	photos[0].Tags[0] = "mutated"
	if proj.At(0).Tags[0] != "x" {
		t.Error("projection shares tag slices with its input")
	}
}

func TestNeighbor(t *testing.T) {
	proj := Project(samplePhotos(), nil, nil)

	tests := []struct {
		id     string
		dir    Direction
		want   string
		wantOK bool
	}{
		{"A", Prev, "", false},
		{"A", Next, "B", true},
		{"B", Prev, "A", true},
		{"B", Next, "C", true},
		{"C", Next, "", false},
		{"missing", Next, "", false},
	}
	for _, tt := range tests {
		got, ok := proj.Neighbor(tt.id, tt.dir)
		if ok != tt.wantOK || got.ID != tt.want {
			t.Errorf("Neighbor(%s, %s) = %q %v, want %q %v", tt.id, tt.dir, got.ID, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNeighborRecomputedAfterDelete(t *testing.T) {
	photos := samplePhotos()
	before := Project(photos, nil, nil)
	if n, ok := before.Neighbor("B", Next); !ok || n.ID != "C" {
		t.Fatalf("expected C after B, got %q %v", n.ID, ok)
	}

	after := Project(photos[:2], nil, nil)
	if n, ok := after.Neighbor("B", Next); ok {
		t.Errorf("expected no neighbour after deleting C, got %q", n.ID)
	}
}

func TestToggleScopedToVisible(t *testing.T) {
	visible := Visible(samplePhotos(), NewTagFilter("x"))
	sel := NewSelection()

	if sel.Toggle("C", visible) {
		t.Error("toggling a hidden photo must do nothing")
	}
	if !sel.Toggle("A", visible) || !sel.Has("A") {
		t.Error("expected A selected")
	}
	if !sel.Toggle("A", visible) || sel.Has("A") {
		t.Error("expected A deselected")
	}
}

func TestToggleAllScoping(t *testing.T) {
	visible := Visible(samplePhotos(), NewTagFilter("x"))
	sel := NewSelection()

	sel.ToggleAll(visible)
	if got := strings.Join(sel.IDs(), ","); got != "A,B" {
		t.Fatalf("after first ToggleAll = %q, want A,B", got)
	}

	sel.ToggleAll(visible)
	if sel.Len() != 0 {
		t.Errorf("expected selection cleared, got %v", sel.IDs())
	}

	sel.Toggle("A", visible)
	sel.ToggleAll(visible)
	if got := strings.Join(sel.IDs(), ","); got != "A,B" {
		t.Errorf("partial selection should become all visible, got %q", got)
	}
}

func TestToggleAllWithNothingVisibleClears(t *testing.T) {
	sel := NewSelection("A", "B")
	visible := Visible(samplePhotos(), NewTagFilter("no-such-tag"))
	if len(visible) != 0 {
		t.Fatalf("expected no visible photos, got %s", ids(visible))
	}

	sel.ToggleAll(visible)
	if sel.Len() != 0 {
		t.Errorf("expected selection cleared, got %v", sel.IDs())
	}
}

func TestSelectionRemoveAndRetain(t *testing.T) {
	sel := NewSelection("A", "B", "C")
	if n := sel.Remove("A", "Z"); n != 1 {
		t.Errorf("Remove returned %d, want 1", n)
	}
	sel.Retain(func(id string) bool { return id == "C" })
	if got := strings.Join(sel.IDs(), ","); got != "C" {
		t.Errorf("after retain = %q", got)
	}

	clone := sel.Clone()
	clone.Clear()
	if sel.Len() != 1 {
		t.Error("clone shares state with original")
	}
}

func TestTagFilterToggle(t *testing.T) {
	f := NewTagFilter()
	if !f.Toggle("x") {
		t.Error("expected x active")
	}
	f.Toggle("a")
	if got := strings.Join(f.Names(), ","); got != "a,x" {
		t.Errorf("names = %q", got)
	}
	if f.Toggle("x") {
		t.Error("expected x inactive")
	}
	f.Clear()
	if f.Len() != 0 {
		t.Errorf("expected empty filter, got %v", f.Names())
	}
}

func TestLightboxNavigation(t *testing.T) {
	proj := Project(samplePhotos(), nil, nil)
	var lb Lightbox

	if lb.Open("missing", proj) {
		t.Fatal("opened a photo outside the display list")
	}
	if !lb.Open("A", proj) {
		t.Fatal("open A")
	}
	if lb.Request(ActionPrev, proj, false) {
		t.Error("prev at the start must not move")
	}
	if !lb.Request(ActionNext, proj, false) {
		t.Error("next should move")
	}
	if id, _ := lb.Current(); id != "B" {
		t.Errorf("current = %q, want B", id)
	}
	if !lb.Request(ActionClose, proj, false) {
		t.Error("close should succeed")
	}
	if _, open := lb.Current(); open {
		t.Error("expected lightbox closed")
	}
}

func TestLightboxDiscardConfirmation(t *testing.T) {
	proj := Project(samplePhotos(), nil, nil)
	var lb Lightbox
	lb.Open("B", proj)

	if lb.Request(ActionNext, proj, true) {
		t.Fatal("dirty editor must hold the action")
	}
	if a, ok := lb.Pending(); !ok || a != ActionNext {
		t.Fatalf("pending = %v %v, want next", a, ok)
	}

	lb.KeepEditing()
	if _, ok := lb.Pending(); ok {
		t.Error("keep editing should drop the pending action")
	}
	if id, _ := lb.Current(); id != "B" {
		t.Errorf("current = %q, want B", id)
	}

	lb.Request(ActionPrev, proj, true)
	if !lb.ConfirmDiscard(proj) {
		t.Fatal("confirm should perform the pending action")
	}
	if id, _ := lb.Current(); id != "A" {
		t.Errorf("current = %q, want A", id)
	}
	if lb.ConfirmDiscard(proj) {
		t.Error("nothing left to confirm")
	}
}

func TestLightboxSyncClosesOnRemovedPhoto(t *testing.T) {
	photos := samplePhotos()
	var lb Lightbox
	lb.Open("C", Project(photos, nil, nil))

	lb.Sync(Project(photos, nil, nil))
	if _, open := lb.Current(); !open {
		t.Fatal("sync closed a photo that is still displayed")
	}

	lb.Sync(Project(photos[:2], nil, nil))
	if _, open := lb.Current(); open {
		t.Error("expected lightbox closed after its photo was removed")
	}
}

func TestSlideshowWraps(t *testing.T) {
	proj := Project(samplePhotos(), nil, nil)
	s := NewSlideshow(proj, "C")

	if p, _ := s.Advance(proj, Next); p.ID != "A" {
		t.Errorf("after C next = %q, want A", p.ID)
	}
	if p, _ := s.Advance(proj, Prev); p.ID != "C" {
		t.Errorf("after A prev = %q, want C", p.ID)
	}
}

func TestSlideshowFollowsRemovals(t *testing.T) {
	photos := samplePhotos()
	s := NewSlideshow(Project(photos, nil, nil), "B")

	// B is deleted: the cursor lands on its successor instead of skipping it.
	after := Project([]photoapi.Photo{photos[0], photos[2]}, nil, nil)
	if p, _ := s.Advance(after, Next); p.ID != "C" {
		t.Errorf("advance after removal = %q, want C", p.ID)
	}

	if _, ok := s.Advance(Project(nil, nil, nil), Next); ok {
		t.Error("expected nothing on an empty display list")
	}
}

func TestSlideshowPlay(t *testing.T) {
	proj := Project(samplePhotos(), nil, nil)
	s := NewSlideshow(proj, "")

	var shown []string
	errStop := errors.New("stop")
	err := s.Play(context.Background(), time.Millisecond, func() Projection { return proj }, func(p photoapi.Photo) error {
		shown = append(shown, p.ID)
		if len(shown) == 5 {
			return errStop
		}
		return nil
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("expected errStop, got %v", err)
	}
	if got := strings.Join(shown, ","); got != "A,B,C,A,B" {
		t.Errorf("shown = %q", got)
	}
}

func TestSlideshowPlayEmpty(t *testing.T) {
	s := NewSlideshow(Project(nil, nil, nil), "")
	err := s.Play(context.Background(), time.Millisecond, func() Projection { return Project(nil, nil, nil) }, func(photoapi.Photo) error { return nil })
	if !errors.Is(err, ErrNothingToShow) {
		t.Errorf("expected ErrNothingToShow, got %v", err)
	}
}

func TestSlideshowPlayStopsOnCancel(t *testing.T) {
	proj := Project(samplePhotos(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSlideshow(proj, "")
	err := s.Play(ctx, time.Hour, func() Projection { return proj }, func(photoapi.Photo) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
