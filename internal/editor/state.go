// Package editor implements the non-destructive photo adjustments:
// brightness, contrast and saturation applied with CSS filter semantics,
// previewed locally and saved as a new photo. The original is never
// modified.
package editor

import (
	"errors"
	"fmt"
)

const (
	// Identity is the percentage at which an adjustment changes nothing.
	Identity = 100

	// MinPercent and MaxPercent bound every adjustment.
	MinPercent = 0
	MaxPercent = 200
)

// ErrOutOfRange is returned for adjustments outside MinPercent..MaxPercent.
var ErrOutOfRange = errors.New("adjustment out of range")

// State holds the three adjustments as percentages.
type State struct {
	Brightness int
	Contrast   int
	Saturation int
}

// Default returns the identity adjustment.
func Default() State {
	return State{Brightness: Identity, Contrast: Identity, Saturation: Identity}
}

// Dirty reports whether s differs from the identity adjustment.
func (s State) Dirty() bool {
	return s != Default()
}

// Validate checks every adjustment is within range.
func (s State) Validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"brightness", s.Brightness},
		{"contrast", s.Contrast},
		{"saturation", s.Saturation},
	} {
		if v.value < MinPercent || v.value > MaxPercent {
			return fmt.Errorf("%s %d: %w", v.name, v.value, ErrOutOfRange)
		}
	}
	return nil
}

func (s State) String() string {
	return fmt.Sprintf("brightness(%d%%) contrast(%d%%) saturate(%d%%)", s.Brightness, s.Contrast, s.Saturation)
}

// Session is the editor for whichever photo is open. Opening a different
// photo resets the adjustments.
type Session struct {
	photoID string
	state   State
}

// NewSession returns an editor with nothing open.
func NewSession() *Session {
	return &Session{state: Default()}
}

// Open switches the editor to photoID. Reopening the same photo keeps
// its adjustments.
func (s *Session) Open(photoID string) {
	if photoID == s.photoID {
		return
	}
	s.photoID = photoID
	s.state = Default()
}

func (s *Session) PhotoID() string { return s.photoID }

func (s *Session) State() State { return s.state }

func (s *Session) Dirty() bool { return s.state.Dirty() }

// Set replaces the adjustments after validating them.
func (s *Session) Set(st State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.state = st
	return nil
}

// Reset returns to the identity adjustment.
func (s *Session) Reset() {
	s.state = Default()
}
