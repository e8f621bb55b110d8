package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ScanOptions configures Collect.
type ScanOptions struct {
	// MaxDepth limits recursion into directories. 0 = unlimited, 1 = top-level only.
	MaxDepth int

	// Limit caps the number of images returned. 0 = unlimited.
	Limit int
}

var errLimitReached = errors.New("limit reached")

// Collect turns a mix of file and directory paths into the list of image
// paths to upload. Files named explicitly are kept even when their
// extension is unsupported, so Load can report them; directories only
// contribute supported images, sorted by path.
func Collect(fs afero.Fs, paths []string, opts ScanOptions) ([]string, error) {
	var out []string
	for _, p := range paths {
		isDir, err := afero.IsDir(fs, p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("not found: %s", p)
			}
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !isDir {
			out = append(out, p)
			continue
		}
		found, err := scanDirectory(fs, p, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func scanDirectory(fs afero.Fs, root string, opts ScanOptions) ([]string, error) {
	log.Info().
		Str("path", root).
		Int("max_depth", opts.MaxDepth).
		Int("limit", opts.Limit).
		Msg("Scanning directory for images")

	baseDepth := strings.Count(filepath.Clean(root), string(os.PathSeparator))
	var found []string

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error accessing path, skipping")
			return nil
		}
		if info.IsDir() {
			if opts.MaxDepth > 0 && path != root {
				depth := strings.Count(filepath.Clean(path), string(os.PathSeparator)) - baseDepth
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !IsImage(filepath.Ext(info.Name())) {
			return nil
		}
		if opts.Limit > 0 && len(found) >= opts.Limit {
			return errLimitReached
		}
		found = append(found, path)
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(found)
	log.Info().Str("path", root).Int("images", len(found)).Msg("Directory scan complete")
	return found, nil
}
