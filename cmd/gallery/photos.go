package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-gallery/internal/cli"
	"github.com/fpang/photo-gallery/internal/export"
	"github.com/fpang/photo-gallery/internal/gallery"
	"github.com/fpang/photo-gallery/internal/photoapi"
	"github.com/fpang/photo-gallery/internal/view"
)

// scope narrows the collection the way the gallery screen does: a
// server-side untagged listing, an all-of tag filter, and an optional
// selection that restricts the display list.
type scope struct {
	tags      []string
	untagged  bool
	selectIDs []string
}

func (s *scope) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&s.tags, "tag", "t", nil, "Only photos carrying every given tag (repeatable)")
	cmd.Flags().BoolVar(&s.untagged, "untagged", false, "Only photos without tags")
	cmd.Flags().StringSliceVar(&s.selectIDs, "select", nil, "Restrict to these photo ids (comma separated)")
}

func (s *scope) apply(cmd *cobra.Command, sess *gallery.Session) (view.Projection, error) {
	if s.untagged {
		sess.Store.SetListOptions(photoapi.ListOptions{Untagged: true})
		if err := sess.Store.Refresh(cmd.Context()); err != nil {
			return view.Projection{}, err
		}
	}
	for _, t := range s.tags {
		if t = strings.TrimSpace(t); t != "" {
			sess.Store.ToggleTagFilter(t)
		}
	}
	if len(s.selectIDs) > 0 {
		if skipped := sess.Store.Select(s.selectIDs...); len(skipped) > 0 {
			log.Warn().Strs("ids", skipped).Msg("Ignoring ids that are not in the filtered collection")
		}
	}
	return sess.Store.View(), nil
}

func (a *app) listCmd() *cobra.Command {
	var sc scope
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List photos, newest first",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, _ []string) error {
			proj, err := sc.apply(cmd, sess)
			if err != nil {
				return err
			}
			selected := make(map[string]bool)
			for _, id := range sess.Store.Snapshot().Selected {
				selected[id] = true
			}
			for _, p := range proj.Display() {
				printf(cmd, "%s\n", cli.FormatPhoto(p, selected[p.ID]))
			}
			printf(cmd, "%d photo(s)\n", proj.Len())
			return nil
		}),
	}
	sc.bind(cmd)
	return cmd
}

func (a *app) tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags, most used first",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, _ []string) error {
			for _, t := range sess.Store.TagsByCount() {
				printf(cmd, "%-24s %d\n", t.Name, t.Count)
			}
			return nil
		}),
	}
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete photos from the gallery",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, args []string) error {
			var ids []string
			for _, id := range args {
				if !sess.Store.Has(id) {
					return fmt.Errorf("photo %s: %w", id, photoapi.ErrNotFound)
				}
				ids = append(ids, id)
			}
			if !yes && !cli.Confirm(a.in, cmd.OutOrStdout(), fmt.Sprintf("Delete %d photo(s)? This cannot be undone.", len(ids))) {
				printf(cmd, "Aborted. No photos were deleted.\n")
				return nil
			}
			if err := sess.Store.Delete(cmd.Context(), ids); err != nil {
				return err
			}
			printf(cmd, "Deleted %d photo(s)\n", len(ids))
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *app) tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove a tag on a photo",
	}
	cmd.AddCommand(
		a.tagEditCmd("add", "Add a tag to a photo", (*gallery.Store).AddTag),
		a.tagEditCmd("remove", "Remove a tag from a photo", (*gallery.Store).RemoveTag),
	)
	return cmd
}

func (a *app) tagEditCmd(use, short string, op func(*gallery.Store, context.Context, string, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <tag>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, args []string) error {
			if err := op(sess.Store, cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			p, _ := sess.Store.Photo(args[0])
			printf(cmd, "%s\n", cli.FormatPhoto(p, false))
			return nil
		}),
	}
}

func (a *app) recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <id>",
		Short: "Show tags the service suggests for a photo",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, args []string) error {
			tags, err := sess.Store.RecommendTags(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				printf(cmd, "No suggestions\n")
				return nil
			}
			for _, t := range tags {
				printf(cmd, "%s\n", t)
			}
			return nil
		}),
	}
}

func (a *app) fetchCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "fetch <id>...",
		Short: "Download photos into a local directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, sess *gallery.Session, args []string) error {
			for _, id := range args {
				p, ok := sess.Store.Photo(id)
				if !ok {
					return fmt.Errorf("photo %s: %w", id, photoapi.ErrNotFound)
				}
				path, size, err := a.fetchOne(cmd, sess, p, outDir)
				if err != nil {
					return err
				}
				printf(cmd, "%s  %s\n", path, cli.FormatSize(size))
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write photos into")
	return cmd
}

// fetchOne copies a photo's cached bytes out of the handle, which is
// released when the session closes.
func (a *app) fetchOne(cmd *cobra.Command, sess *gallery.Session, p photoapi.Photo, outDir string) (string, int64, error) {
	h, err := sess.Resolve(cmd.Context(), p.ID)
	if err != nil {
		return "", 0, err
	}
	if handlePath, err := h.Path(); err == nil {
		log.Debug().Str("photoId", p.ID).Str("handle", handlePath).Msg("Photo resolved")
	}
	rc, err := h.Open()
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	if err := a.fs.MkdirAll(outDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create output dir: %w", err)
	}
	dest := filepath.Join(outDir, export.FileName(p, h.ContentType()))
	f, err := a.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(f, rc)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, n, nil
}
