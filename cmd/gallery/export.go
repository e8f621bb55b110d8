package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/photo-gallery/internal/cli"
	"github.com/fpang/photo-gallery/internal/config"
	"github.com/fpang/photo-gallery/internal/export"
	"github.com/fpang/photo-gallery/internal/gallery"
	"github.com/fpang/photo-gallery/internal/photoapi"
	"github.com/fpang/photo-gallery/internal/view"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		sc     scope
		target string
	)
	cmd := &cobra.Command{
		Use:   "export --to <dir|file.zip|s3://bucket/prefix>",
		Short: "Export the filtered photos to a directory, ZIP archive or S3",
		Long: `Export copies the photos currently on display (after --tag, --untagged and
--select) to a destination picked from --to:

  a path ending in .zip   zstd-compressed ZIP archive
  s3://bucket/prefix      S3 objects, using the default AWS credential chain
  anything else           a local directory

A photo that fails to download or write is reported and the rest continue.`,
		Args: cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, _ []string) error {
			proj, err := sc.apply(cmd, sess)
			if err != nil {
				return err
			}
			photos := proj.Display()
			if len(photos) == 0 {
				printf(cmd, "Nothing to export.\n")
				return nil
			}

			dst, err := export.Open(cmd.Context(), a.fs, target)
			if err != nil {
				return err
			}
			report, exportErr := export.Export(cmd.Context(), sess, photos, dst)
			closeErr := dst.Close()

			for _, r := range report.Results {
				if r.Err != nil {
					printf(cmd, "   FAILED: %s - %v\n", r.PhotoID, r.Err)
				}
			}
			printf(cmd, "Exported %d of %d photo(s) to %s\n", report.Exported(), len(photos), dst)
			return errors.Join(exportErr, closeErr)
		}),
	}
	sc.bind(cmd)
	cmd.Flags().StringVar(&target, "to", "", "Destination directory, .zip file, or s3://bucket/prefix")
	cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) slideshowCmd() *cobra.Command {
	var (
		sc       scope
		interval time.Duration
		count    int
		start    string
	)
	cmd := &cobra.Command{
		Use:   "slideshow",
		Short: "Step through the filtered photos on a timer, printing each local file",
		Long: `Slideshow walks the display list in order and wraps around at the end.
Each step downloads the photo (or reuses the cached copy) and prints the
local file path, which stays valid until the slideshow stops.
Stop with Ctrl-C or after --count steps.`,
		Args: cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, _ []string) error {
			proj, err := sc.apply(cmd, sess)
			if err != nil {
				return err
			}
			show := view.NewSlideshow(proj, start)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			shown := 0
			err = show.Play(ctx, interval, sess.Store.View, func(p photoapi.Photo) error {
				h, err := sess.Resolve(ctx, p.ID)
				if err != nil {
					return err
				}
				path, err := h.Path()
				if err != nil {
					return err
				}
				shown++
				printf(cmd, "[%d] %s  %s\n", shown, cli.FormatPhoto(p, false), path)
				if count > 0 && shown >= count {
					cancel()
				}
				return nil
			})
			if errors.Is(err, view.ErrNothingToShow) {
				printf(cmd, "Nothing to show.\n")
				return nil
			}
			if errors.Is(err, context.Canceled) && cmd.Context().Err() == nil {
				return nil
			}
			return err
		}),
	}
	sc.bind(cmd)
	cmd.Flags().DurationVar(&interval, "interval", view.DefaultInterval, "Time each photo stays on screen")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many photos (0 = until interrupted)")
	cmd.Flags().StringVar(&start, "start", "", "Photo id to start from (default: first)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify an API token and store it in ~/.photo-gallery/token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token := a.token
			if token == "" {
				token = cli.PromptForToken(a.in, cmd.OutOrStdout())
			}
			if token == "" {
				return config.ErrNoToken
			}

			// A rejected token must leave the stored one in place.
			client := photoapi.NewClient(a.cfg.APIURL, token)
			if _, err := client.ListTags(cmd.Context()); err != nil {
				return fmt.Errorf("token check failed: %w", err)
			}

			if err := config.SaveToken(token); err != nil {
				return err
			}
			printf(cmd, "Logged in to %s\n", client.BaseURL())
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.ClearToken(); err != nil {
				return err
			}
			printf(cmd, "Logged out.\n")
			return nil
		},
	}
}
