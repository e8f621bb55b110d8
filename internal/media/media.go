// Package media prepares local image files for upload: it checks that a
// file is a type the photo service accepts, reads its EXIF capture
// details, and expands directories into the images they contain.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

// sniffLen is how many leading bytes content sniffing looks at.
const sniffLen = 512

// SupportedImageExtensions maps the extensions the service accepts to
// their MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ErrUnsupported is returned for files the service would reject.
var ErrUnsupported = errors.New("unsupported media type")

// IsImage reports whether ext names a supported image type.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// DetectContentType returns the MIME type of a file from its name and its
// leading bytes. The extension must be supported and the content must
// sniff as a supported image; the sniffed type wins when they disagree.
func DetectContentType(name string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !IsImage(ext) {
		return "", fmt.Errorf("%s: extension %q: %w", name, ext, ErrUnsupported)
	}
	sniffed := http.DetectContentType(head)
	if !supportedTypes[sniffed] {
		return "", fmt.Errorf("%s: content is %s: %w", name, sniffed, ErrUnsupported)
	}
	if byExt := SupportedImageExtensions[ext]; byExt != sniffed {
		log.Debug().Str("file", name).Str("extension_type", byExt).Str("sniffed_type", sniffed).Msg("Extension does not match content")
	}
	return sniffed, nil
}

// File is a local image ready for upload.
type File struct {
	Path        string
	ContentType string
	Size        int64
	Metadata    *ImageMetadata // nil when the image carries no EXIF block

	data []byte
}

// Load reads an image file and checks that it can be uploaded. Metadata
// extraction failures are logged and otherwise ignored.
func Load(fs afero.Fs, path string) (*File, error) {
	log.Debug().Str("path", path).Msg("Loading media file")

	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	contentType, err := DetectContentType(path, data[:min(len(data), sniffLen)])
	if err != nil {
		return nil, err
	}

	f := &File{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		data:        data,
	}
	if meta, err := ExtractImageMetadata(bytes.NewReader(data)); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("No image metadata, continuing without it")
	} else {
		f.Metadata = meta
	}

	log.Info().
		Str("path", path).
		Str("mime_type", contentType).
		Int64("size_bytes", f.Size).
		Msg("Media file loaded")
	return f, nil
}

// Upload returns the file as an upload request body.
func (f *File) Upload() photoapi.UploadFile {
	return photoapi.UploadFile{
		Name:        filepath.Base(f.Path),
		ContentType: f.ContentType,
		Body:        bytes.NewReader(f.data),
	}
}
