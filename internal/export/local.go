package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd = zstd.ZipMethodWinZip

// DirDestination writes files into a directory.
type DirDestination struct {
	fs  afero.Fs
	dir string
}

// NewDirDestination creates dir if needed.
func NewDirDestination(fs afero.Fs, dir string) (*DirDestination, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &DirDestination{fs: fs, dir: dir}, nil
}

func (d *DirDestination) Put(_ context.Context, name, _ string, r io.Reader, _ int64) error {
	if err := afero.WriteReader(d.fs, filepath.Join(d.dir, name), r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (d *DirDestination) Close() error { return nil }

func (d *DirDestination) String() string { return d.dir }

// ZipDestination writes a ZIP archive whose entries are zstd compressed.
type ZipDestination struct {
	path string
	file afero.File
	zw   *zip.Writer
	now  func() time.Time
}

// NewZipDestination creates the archive at path, replacing any existing file.
func NewZipDestination(fs afero.Fs, path string) (*ZipDestination, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zipMethodZstd, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))
	return &ZipDestination{path: path, file: f, zw: zw, now: time.Now}, nil
}

func (z *ZipDestination) Put(_ context.Context, name, _ string, r io.Reader, _ int64) error {
	header := &zip.FileHeader{
		Name:   name,
		Method: zipMethodZstd,
	}
	header.Modified = z.now()

	w, err := z.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create ZIP entry for %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("write to ZIP for %s: %w", name, err)
	}
	return nil
}

// Close finishes the archive. It must be called for the file to be valid.
func (z *ZipDestination) Close() error {
	if err := z.zw.Close(); err != nil {
		z.file.Close()
		return fmt.Errorf("close ZIP writer: %w", err)
	}
	return z.file.Close()
}

func (z *ZipDestination) String() string { return z.path }
