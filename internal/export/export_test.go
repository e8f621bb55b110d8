package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/fpang/photo-gallery/internal/blobcache"
	"github.com/fpang/photo-gallery/internal/photoapi"
)

type blobs map[string][]byte

func (b blobs) GetPhotoContent(_ context.Context, id string) ([]byte, string, error) {
	data, ok := b[id]
	if !ok {
		return nil, "", photoapi.ErrNotFound
	}
	if bytes.HasPrefix(data, []byte("\x89PNG")) {
		return data, "image/png", nil
	}
	return data, "image/jpeg", nil
}

func newSource(t *testing.T, b blobs) *blobcache.Cache {
	t.Helper()
	c := blobcache.New(b, blobcache.WithFs(afero.NewMemMapFs()), blobcache.WithDir("/handles"))
	t.Cleanup(func() { c.ReleaseAll() })
	return c
}

func photos(ids ...string) []photoapi.Photo {
	out := make([]photoapi.Photo, len(ids))
	for i, id := range ids {
		out[i] = photoapi.Photo{ID: id}
	}
	return out
}

func TestExportToDirectory(t *testing.T) {
	src := newSource(t, blobs{
		"a": []byte("jpeg-a"),
		"b": []byte("\x89PNG-b"),
	})
	fs := afero.NewMemMapFs()

	dst, err := NewDirDestination(fs, "/out")
	if err != nil {
		t.Fatalf("new destination: %v", err)
	}
	report, err := Export(context.Background(), src, photos("a", "b"), dst)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if report.Exported() != 2 {
		t.Errorf("exported %d, want 2", report.Exported())
	}

	got, _ := afero.ReadFile(fs, "/out/a.jpg")
	if string(got) != "jpeg-a" {
		t.Errorf("a.jpg = %q", got)
	}
	got, _ = afero.ReadFile(fs, "/out/b.png")
	if string(got) != "\x89PNG-b" {
		t.Errorf("b.png = %q", got)
	}
}

func TestExportSkipsFailedPhotos(t *testing.T) {
	src := newSource(t, blobs{"a": []byte("a"), "c": []byte("c")})
	fs := afero.NewMemMapFs()
	dst, _ := NewDirDestination(fs, "/out")

	report, err := Export(context.Background(), src, photos("a", "missing", "c"), dst)
	if !errors.Is(err, photoapi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound in joined error, got %v", err)
	}
	if report.Exported() != 2 || len(report.Results) != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Results[1].PhotoID != "missing" || report.Results[1].Err == nil {
		t.Errorf("expected failure recorded for missing photo: %+v", report.Results[1])
	}
	if ok, _ := afero.Exists(fs, "/out/c.jpg"); !ok {
		t.Error("photo after the failure was not exported")
	}
}

func TestExportStopsOnCancel(t *testing.T) {
	src := newSource(t, blobs{"a": []byte("a")})
	dst, _ := NewDirDestination(afero.NewMemMapFs(), "/out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Export(ctx, src, photos("a"), dst)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("expected no results, got %+v", report.Results)
	}
}

func TestExportToZip(t *testing.T) {
	src := newSource(t, blobs{
		"a": bytes.Repeat([]byte("jpeg-a"), 100),
		"b": []byte("\x89PNG-b"),
	})
	fs := afero.NewMemMapFs()

	dst, err := NewZipDestination(fs, "/out/photos.zip")
	if err != nil {
		t.Fatalf("new zip: %v", err)
	}
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	dst.now = func() time.Time { return stamp }

	if _, err := Export(context.Background(), src, photos("a", "b"), dst); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := dst.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := afero.ReadFile(fs, "/out/photos.zip")
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	zr.RegisterDecompressor(zipMethodZstd, zstd.ZipDecompressor())

	want := map[string]string{
		"a.jpg": strings.Repeat("jpeg-a", 100),
		"b.png": "\x89PNG-b",
	}
	if len(zr.File) != len(want) {
		t.Fatalf("archive has %d entries, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		if f.Method != zipMethodZstd {
			t.Errorf("%s: method %d, want %d", f.Name, f.Method, zipMethodZstd)
		}
		if !f.Modified.Equal(stamp) {
			t.Errorf("%s: modified %v, want %v", f.Name, f.Modified, stamp)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if string(body) != want[f.Name] {
			t.Errorf("%s content mismatch", f.Name)
		}
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	fail    bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	key := *in.Bucket + "/" + *in.Key
	f.objects[key] = body
	f.types[key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func TestExportToS3(t *testing.T) {
	src := newSource(t, blobs{"a": []byte("jpeg-a")})
	client := &fakeS3{}
	dst := NewS3Destination(client, "bucket", "/trips/2025/")

	if _, err := Export(context.Background(), src, photos("a"), dst); err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := string(client.objects["bucket/trips/2025/a.jpg"]); got != "jpeg-a" {
		t.Errorf("object body = %q, objects: %v", got, client.objects)
	}
	if got := client.types["bucket/trips/2025/a.jpg"]; got != "image/jpeg" {
		t.Errorf("content type = %q", got)
	}
	if dst.String() != "s3://bucket/trips/2025" {
		t.Errorf("String() = %q", dst.String())
	}
}

func TestExportToS3Failure(t *testing.T) {
	src := newSource(t, blobs{"a": []byte("jpeg-a")})
	dst := NewS3Destination(&fakeS3{fail: true}, "bucket", "")

	report, err := Export(context.Background(), src, photos("a"), dst)
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected access denied, got %v", err)
	}
	if report.Exported() != 0 {
		t.Errorf("exported %d, want 0", report.Exported())
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		raw     string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{raw: "s3://photos", bucket: "photos"},
		{raw: "s3://photos/", bucket: "photos"},
		{raw: "s3://photos/2025/march", bucket: "photos", prefix: "2025/march"},
		{raw: "s3:///nobucket", wantErr: true},
		{raw: "https://photos/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			bucket, prefix, err := ParseS3URL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.bucket || prefix != tt.prefix {
				t.Errorf("got (%q, %q), want (%q, %q)", bucket, prefix, tt.bucket, tt.prefix)
			}
		})
	}
}

func TestOpenPicksDestination(t *testing.T) {
	fs := afero.NewMemMapFs()

	d, err := Open(context.Background(), fs, "/out/archive.ZIP")
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if _, ok := d.(*ZipDestination); !ok {
		t.Errorf("expected *ZipDestination, got %T", d)
	}
	d.Close()

	d, err = Open(context.Background(), fs, "/out/photos")
	if err != nil {
		t.Fatalf("open dir: %v", err)
	}
	if _, ok := d.(*DirDestination); !ok {
		t.Errorf("expected *DirDestination, got %T", d)
	}
	if ok, _ := afero.IsDir(fs, "/out/photos"); !ok {
		t.Error("directory destination was not created")
	}
}

func TestFileName(t *testing.T) {
	p := photoapi.Photo{ID: "42"}
	if got := FileName(p, "image/webp"); got != "42.webp" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(p, "application/octet-stream"); got != "42.bin" {
		t.Errorf("FileName = %q", got)
	}
}
