package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-gallery/internal/cli"
	"github.com/fpang/photo-gallery/internal/gallery"
	"github.com/fpang/photo-gallery/internal/media"
	"github.com/fpang/photo-gallery/internal/photoapi"
)

func (a *app) uploadCmd() *cobra.Command {
	var opts media.ScanOptions
	cmd := &cobra.Command{
		Use:   "upload [file|dir]...",
		Short: "Upload images; opens a file picker when no paths are given",
		Long: `Upload sends local images to the gallery, one request per file, up to
four at a time. Directories are scanned for supported images
(jpg, jpeg, png, gif, webp). Files that fail are reported and not retried.

Examples:
  gallery upload photo.jpg other.png
  gallery upload ~/Pictures/trip --max-depth 1 --limit 50
  gallery upload   # native file picker`,
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, args []string) error {
			paths := args
			if len(paths) == 0 {
				picked, err := cli.PickFiles()
				if err != nil {
					return err
				}
				if len(picked) == 0 {
					printf(cmd, "Nothing selected.\n")
					return nil
				}
				paths = picked
			}
			return a.upload(cmd, sess, paths, opts)
		}),
	}
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "Maximum directory recursion depth (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum files to upload (0 = unlimited)")
	return cmd
}

func (a *app) upload(cmd *cobra.Command, sess *gallery.Session, paths []string, opts media.ScanOptions) error {
	found, err := media.Collect(a.fs, paths, opts)
	if err != nil {
		return err
	}

	var files []photoapi.UploadFile
	var skipped int
	for _, path := range found {
		f, err := media.Load(a.fs, path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping file")
			printf(cmd, "   SKIP: %s - %v\n", filepath.Base(path), err)
			skipped++
			continue
		}
		summary := "no capture details"
		if f.Metadata != nil {
			summary = f.Metadata.Summary()
		}
		printf(cmd, "   %s (%s, %s)\n", filepath.Base(path), cli.FormatSize(f.Size), summary)
		files = append(files, f.Upload())
	}
	if len(files) == 0 {
		return fmt.Errorf("no uploadable images in %d path(s): %w", len(paths), gallery.ErrNoFiles)
	}

	printf(cmd, "Uploading %d file(s)...\n", len(files))
	report, err := sess.Store.Upload(cmd.Context(), files)
	for _, r := range report.Results {
		if r.Err != nil {
			printf(cmd, "   FAILED: %s - %v\n", r.Name, r.Err)
		}
	}
	printf(cmd, "Uploaded %d file(s)", report.Succeeded())
	if n := report.Failed(); n > 0 {
		printf(cmd, ", %d failed", n)
	}
	if skipped > 0 {
		printf(cmd, ", %d skipped", skipped)
	}
	printf(cmd, "\n")

	if errors.Is(err, photoapi.ErrUnauthorized) {
		return err
	}
	if report.Failed() > 0 {
		return fmt.Errorf("%d upload(s) failed; run the command again for those files", report.Failed())
	}
	return err
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Show how local images would be uploaded, without uploading",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				f, err := media.Load(a.fs, path)
				if err != nil {
					printf(cmd, "%s: %v\n", path, err)
					errs = append(errs, err)
					continue
				}
				printf(cmd, "%s\n", path)
				printf(cmd, "   Type: %s\n", f.ContentType)
				printf(cmd, "   Size: %s\n", cli.FormatSize(f.Size))
				if m := f.Metadata; m != nil {
					if m.HasDate {
						printf(cmd, "   Date: %s\n", m.DateTaken.Format("Monday, January 2, 2006 at 3:04 PM"))
					}
					if m.HasGPS {
						printf(cmd, "   GPS: %s\n", media.CoordinatesToDMS(m.Latitude, m.Longitude))
					}
					if m.CameraMake != "" || m.CameraModel != "" {
						printf(cmd, "   Camera: %s %s\n", m.CameraMake, m.CameraModel)
					}
				}
			}
			return errors.Join(errs...)
		},
	}
}
