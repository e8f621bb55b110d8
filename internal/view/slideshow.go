package view

import (
	"context"
	"errors"
	"time"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

// DefaultInterval is how long each slide is shown.
const DefaultInterval = 3 * time.Second

// ErrNothingToShow is returned when the display list is empty.
var ErrNothingToShow = errors.New("no photos to show")

// Slideshow is a cursor over the display list that wraps at both ends.
// It remembers the current id, so a recomputed display list keeps the
// cursor on the same photo while that photo survives.
type Slideshow struct {
	id    string
	index int
}

// NewSlideshow starts at startID, or at the first photo when startID is
// empty or not displayed.
func NewSlideshow(proj Projection, startID string) *Slideshow {
	s := &Slideshow{}
	if i := proj.IndexOf(startID); i >= 0 {
		s.id, s.index = startID, i
	} else if proj.Len() > 0 {
		s.id = proj.At(0).ID
	}
	return s
}

// Current returns the photo under the cursor.
func (s *Slideshow) Current(proj Projection) (photoapi.Photo, bool) {
	i := s.locate(proj)
	if i < 0 {
		return photoapi.Photo{}, false
	}
	s.id, s.index = proj.At(i).ID, i
	return proj.At(i), true
}

// Advance moves one step in dir, wrapping modulo the display length.
func (s *Slideshow) Advance(proj Projection, dir Direction) (photoapi.Photo, bool) {
	n := proj.Len()
	i := s.locate(proj)
	if i < 0 {
		return photoapi.Photo{}, false
	}
	// A removed current photo leaves the cursor on its successor already.
	if proj.IndexOf(s.id) >= 0 {
		i = ((i+int(dir))%n + n) % n
	}
	s.id, s.index = proj.At(i).ID, i
	return proj.At(i), true
}

// locate finds the cursor in proj, falling back to the last known index
// clamped to the list when the current photo is gone.
func (s *Slideshow) locate(proj Projection) int {
	n := proj.Len()
	if n == 0 {
		return -1
	}
	if i := proj.IndexOf(s.id); i >= 0 {
		return i
	}
	if s.index >= n {
		return 0
	}
	return s.index
}

// Play shows the current photo, then advances every interval until ctx
// ends or show fails. source is consulted before every step so deletes
// and filter changes take effect mid-show.
func (s *Slideshow) Play(ctx context.Context, interval time.Duration, source func() Projection, show func(photoapi.Photo) error) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p, ok := s.Current(source())
	if !ok {
		return ErrNothingToShow
	}
	if err := show(p); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p, ok := s.Advance(source(), Next)
			if !ok {
				return ErrNothingToShow
			}
			if err := show(p); err != nil {
				return err
			}
		}
	}
}
