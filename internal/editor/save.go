package editor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/fpang/photo-gallery/internal/gallery"
	"github.com/fpang/photo-gallery/internal/photoapi"
)

// DefaultPreviewDimension bounds the longer side of a preview.
const DefaultPreviewDimension = 1024

// Uploader submits files to the gallery. *gallery.Store implements it.
type Uploader interface {
	Upload(ctx context.Context, files []photoapi.UploadFile) (gallery.UploadReport, error)
}

// Decode reads a JPEG, PNG, GIF or WebP image.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Preview returns img with adjustments applied, scaled down so neither
// side exceeds maxDimension.
func Preview(img image.Image, st State, maxDimension int) image.Image {
	adjusted := Apply(img, st)
	b := adjusted.Bounds()
	w, h := fitDimensions(b.Dx(), b.Dy(), maxDimension)
	if w == b.Dx() && h == b.Dy() {
		return adjusted
	}
	scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), adjusted, b, draw.Over, nil)
	return scaled
}

// fitDimensions scales (w, h) down to fit maxDimension, keeping the
// aspect ratio. Images that already fit are returned unchanged.
func fitDimensions(w, h, maxDimension int) (int, int) {
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return w, h
	}
	if w > h {
		nh := h * maxDimension / w
		return maxDimension, max(nh, 1)
	}
	nw := w * maxDimension / h
	return max(nw, 1), maxDimension
}

// CopyName names a saved copy after the save time.
func CopyName(now time.Time) string {
	return fmt.Sprintf("edited-%d.jpg", now.UnixMilli())
}

// EncodeCopy renders the adjusted image as a full quality JPEG ready for
// upload.
func EncodeCopy(img image.Image, st State, now time.Time) (photoapi.UploadFile, error) {
	if err := st.Validate(); err != nil {
		return photoapi.UploadFile{}, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Apply(img, st), &jpeg.Options{Quality: 100}); err != nil {
		return photoapi.UploadFile{}, fmt.Errorf("encode copy: %w", err)
	}
	return photoapi.UploadFile{
		Name:        CopyName(now),
		ContentType: "image/jpeg",
		Body:        &buf,
	}, nil
}

// SaveCopy uploads the adjusted image as a new photo. The gallery
// refreshes as part of the upload.
func SaveCopy(ctx context.Context, up Uploader, img image.Image, st State, now time.Time) (string, error) {
	file, err := EncodeCopy(img, st, now)
	if err != nil {
		return "", err
	}
	if _, err := up.Upload(ctx, []photoapi.UploadFile{file}); err != nil {
		return "", fmt.Errorf("save copy %s: %w", file.Name, err)
	}
	log.Info().Str("name", file.Name).Stringer("adjustments", st).Msg("Edited copy saved")
	return file.Name, nil
}
