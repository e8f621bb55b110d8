package gallery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

// uploadConcurrency bounds simultaneous upload requests in one batch.
const uploadConcurrency = 4

// ErrNoFiles is returned by Upload for an empty batch.
var ErrNoFiles = errors.New("no files to upload")

// UploadResult is the outcome for one file of a batch.
type UploadResult struct {
	Name     string
	Uploaded int // photos the service created from the file
	Err      error
}

// UploadReport collects per-file outcomes, in submission order.
type UploadReport struct {
	Results []UploadResult
}

// Succeeded counts files the service accepted.
func (r UploadReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts files that were not uploaded.
func (r UploadReport) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Err joins the per-file failures, or returns nil.
func (r UploadReport) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Upload submits every file concurrently. A failed file does not stop the
// others, and uploaded files are never rolled back. Once the batch
// settles the collection is refreshed. Failed files are not retried; the
// caller resubmits them if the user asks.
//
// The returned error joins the per-file failures and any refresh failure.
func (s *Store) Upload(ctx context.Context, files []photoapi.UploadFile) (UploadReport, error) {
	if len(files) == 0 {
		return UploadReport{}, ErrNoFiles
	}

	report := UploadReport{Results: make([]UploadResult, len(files))}
	var g errgroup.Group
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			n, err := s.svc.UploadPhoto(ctx, f)
			if err != nil {
				log.Error().Err(err).Str("file", f.Name).Msg("Upload failed")
			}
			report.Results[i] = UploadResult{Name: f.Name, Uploaded: n, Err: err}
			return nil
		})
	}
	g.Wait()

	log.Info().
		Int("files", len(files)).
		Int("succeeded", report.Succeeded()).
		Int("failed", report.Failed()).
		Msg("Upload batch complete")

	var refreshErr error
	if err := s.Refresh(ctx); err != nil {
		refreshErr = fmt.Errorf("after upload: %w", err)
	}
	return report, errors.Join(report.Err(), refreshErr)
}
