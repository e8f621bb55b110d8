// Package export copies photos out of the gallery into a local directory,
// a zstd-compressed ZIP archive, or an S3 bucket. Bytes come through the
// blob cache, so photos already viewed are not downloaded again.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/fpang/photo-gallery/internal/blobcache"
	"github.com/fpang/photo-gallery/internal/photoapi"
)

// Source resolves photo bytes. *gallery.Session implements it.
type Source interface {
	Resolve(ctx context.Context, id string) (*blobcache.Handle, error)
}

// Destination receives exported files.
type Destination interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) error
	Close() error
	String() string
}

// Result is the outcome for one photo.
type Result struct {
	PhotoID string
	Name    string
	Err     error
}

// Report lists per-photo outcomes in export order.
type Report struct {
	Results []Result
}

// Exported counts photos written to the destination.
func (r Report) Exported() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FileName names an exported photo after its id and content type.
func FileName(p photoapi.Photo, contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = ".bin"
	}
	return p.ID + ext
}

// Export writes every photo to dst. A photo that cannot be resolved or
// written is skipped and reported; the rest still export. dst is not
// closed.
func Export(ctx context.Context, src Source, photos []photoapi.Photo, dst Destination) (Report, error) {
	report := Report{Results: make([]Result, 0, len(photos))}
	var errs []error

	for _, p := range photos {
		if err := ctx.Err(); err != nil {
			return report, errors.Join(append(errs, err)...)
		}
		name, err := exportOne(ctx, src, p, dst)
		if err != nil {
			log.Warn().Err(err).Str("photoId", p.ID).Msg("Failed to export photo, skipping")
			errs = append(errs, err)
		}
		report.Results = append(report.Results, Result{PhotoID: p.ID, Name: name, Err: err})
	}

	log.Info().
		Str("destination", dst.String()).
		Int("photos", len(photos)).
		Int("exported", report.Exported()).
		Msg("Export complete")
	return report, errors.Join(errs...)
}

func exportOne(ctx context.Context, src Source, p photoapi.Photo, dst Destination) (string, error) {
	h, err := src.Resolve(ctx, p.ID)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", p.ID, err)
	}
	rc, err := h.Open()
	if err != nil {
		return "", fmt.Errorf("export %s: %w", p.ID, err)
	}
	defer rc.Close()

	name := FileName(p, h.ContentType())
	if err := dst.Put(ctx, name, h.ContentType(), rc, h.Size()); err != nil {
		return name, fmt.Errorf("export %s: %w", p.ID, err)
	}
	return name, nil
}

// Open picks a destination from a target string:
// "s3://bucket/prefix" exports to S3, a path ending in ".zip" writes an
// archive, anything else is a directory.
func Open(ctx context.Context, fs afero.Fs, target string) (Destination, error) {
	switch {
	case strings.HasPrefix(target, "s3://"):
		bucket, prefix, err := ParseS3URL(target)
		if err != nil {
			return nil, err
		}
		return NewS3DestinationFromConfig(ctx, bucket, prefix)
	case strings.HasSuffix(strings.ToLower(target), ".zip"):
		return NewZipDestination(fs, target)
	default:
		return NewDirDestination(fs, target)
	}
}
