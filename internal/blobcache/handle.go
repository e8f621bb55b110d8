package blobcache

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/spf13/afero"
)

// ErrReleased is returned when a handle is read after it was released.
var ErrReleased = errors.New("handle released")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Handle is a locally resolvable copy of a photo's bytes. It stays valid
// until the cache releases it through Invalidate or ReleaseAll; after that
// every accessor fails with ErrReleased.
type Handle struct {
	photoID     string
	path        string
	contentType string
	size        int64

	fs       afero.Fs
	released atomic.Bool
}

// PhotoID returns the id of the photo whose bytes the handle holds.
func (h *Handle) PhotoID() string { return h.photoID }

// ContentType returns the MIME type reported when the bytes were fetched.
func (h *Handle) ContentType() string { return h.contentType }

// Size returns the number of bytes behind the handle.
func (h *Handle) Size() int64 { return h.size }

// Released reports whether the handle's resource has been released.
func (h *Handle) Released() bool { return h.released.Load() }

// Path returns the location of the bytes on the cache's filesystem.
func (h *Handle) Path() (string, error) {
	if h.released.Load() {
		return "", fmt.Errorf("photo %s: %w", h.photoID, ErrReleased)
	}
	return h.path, nil
}

// URL returns a file:// URL for renderers that take URLs.
func (h *Handle) URL() (string, error) {
	p, err := h.Path()
	if err != nil {
		return "", err
	}
	return "file://" + p, nil
}

// Open opens the bytes for reading.
func (h *Handle) Open() (io.ReadCloser, error) {
	if h.released.Load() {
		return nil, fmt.Errorf("photo %s: %w", h.photoID, ErrReleased)
	}
	f, err := h.fs.Open(h.path)
	if err != nil {
		return nil, fmt.Errorf("photo %s: open handle: %w", h.photoID, err)
	}
	return f, nil
}

// release removes the backing file. Only the first call does anything;
// it reports whether this call performed the release.
func (h *Handle) release() (bool, error) {
	if !h.released.CompareAndSwap(false, true) {
		return false, nil
	}
	if err := h.fs.Remove(h.path); err != nil {
		return true, fmt.Errorf("photo %s: remove handle: %w", h.photoID, err)
	}
	return true, nil
}

// newHandle writes data to a fresh file under dir.
func newHandle(fs afero.Fs, dir, photoID, contentType string, data []byte) (*Handle, error) {
	if dir != "" {
		if err := fs.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create handle dir: %w", err)
		}
	}
	f, err := afero.TempFile(fs, dir, "photo-*"+extensions[contentType])
	if err != nil {
		return nil, fmt.Errorf("create handle file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		fs.Remove(f.Name())
		return nil, fmt.Errorf("write handle file: %w", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(f.Name())
		return nil, fmt.Errorf("close handle file: %w", err)
	}
	return &Handle{
		photoID:     photoID,
		path:        f.Name(),
		contentType: contentType,
		size:        int64(len(data)),
		fs:          fs,
	}, nil
}
