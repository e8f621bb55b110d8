package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/fpang/photo-gallery/internal/blobcache"
	"github.com/fpang/photo-gallery/internal/config"
	"github.com/fpang/photo-gallery/internal/photoapi"
	"github.com/fpang/photo-gallery/internal/phototest"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPhoto(t *testing.T) {
	p := photoapi.Photo{ID: "abc", Width: 640, Height: 480, UploadedAt: 1735689600, Tags: []string{"beach", "sun"}}
	line := FormatPhoto(p, true)
	for _, want := range []string{"* abc", "640x480", "2025-01-01", "beach, sun"} {
		if !strings.Contains(line, want) {
			t.Errorf("FormatPhoto = %q, missing %q", line, want)
		}
	}
	if line := FormatPhoto(photoapi.Photo{ID: "x"}, false); !strings.HasPrefix(line, "  x") || !strings.Contains(line, "(untagged)") {
		t.Errorf("FormatPhoto = %q", line)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"yes", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Delete 2 photos?"); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Delete 2 photos? (y/N)") {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}

func TestPromptForToken(t *testing.T) {
	var out bytes.Buffer
	if got := PromptForToken(strings.NewReader("  secret \n"), &out); got != "secret" {
		t.Errorf("PromptForToken = %q", got)
	}
}

func TestHandleAPIErrorClearsTokenOnUnauthorized(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GALLERY_TOKEN", "")
	if err := config.SaveToken("stale"); err != nil {
		t.Fatal(err)
	}

	err := HandleAPIError(photoapi.ErrUnauthorized, config.TokenFromFile)
	if !errors.Is(err, ErrLoggedOut) || !errors.Is(err, photoapi.ErrUnauthorized) {
		t.Errorf("expected ErrLoggedOut wrapping ErrUnauthorized, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(home, ".photo-gallery", "token")); !os.IsNotExist(statErr) {
		t.Errorf("token file should be removed, stat err = %v", statErr)
	}

	if HandleAPIError(nil, config.TokenFromFile) != nil {
		t.Error("nil should pass through")
	}
	other := errors.New("boom")
	if HandleAPIError(other, config.TokenFromFile) != other {
		t.Error("unrelated errors should pass through unchanged")
	}
}

func TestHandleAPIErrorKeepsStoredTokenForOtherSources(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GALLERY_TOKEN", "")
	if err := config.SaveToken("good"); err != nil {
		t.Fatal(err)
	}

	for _, src := range []config.TokenSource{config.TokenFromFlag, config.TokenFromEnv} {
		err := HandleAPIError(photoapi.ErrUnauthorized, src)
		if !errors.Is(err, ErrTokenRejected) || errors.Is(err, ErrLoggedOut) {
			t.Errorf("%s: expected ErrTokenRejected, got %v", src, err)
		}
		if token, err := config.GetToken(); err != nil || token != "good" {
			t.Errorf("%s: stored token = %q, %v; want it kept", src, token, err)
		}
	}
}

func TestInitSession(t *testing.T) {
	srv := phototest.New()
	defer srv.Close()
	srv.Seed("A", []string{"x"}, []byte("a"))

	cfg := config.Config{APIURL: srv.URL, Token: phototest.Token}
	sess, err := InitSession(context.Background(), cfg, blobcache.WithFs(afero.NewMemMapFs()))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer sess.Close()
	if !sess.Store.Has("A") {
		t.Error("expected collection to be loaded")
	}
}

func TestInitSessionWithoutToken(t *testing.T) {
	if _, err := InitSession(context.Background(), config.Config{APIURL: "http://unused"}); !errors.Is(err, config.ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestInitSessionUnauthorized(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := phototest.New()
	defer srv.Close()
	srv.Fail("GET /photos", http.StatusUnauthorized)

	cfg := config.Config{APIURL: srv.URL, Token: phototest.Token, TokenSource: config.TokenFromFile}
	if _, err := InitSession(context.Background(), cfg, blobcache.WithFs(afero.NewMemMapFs())); !errors.Is(err, ErrLoggedOut) {
		t.Errorf("expected ErrLoggedOut, got %v", err)
	}
}
