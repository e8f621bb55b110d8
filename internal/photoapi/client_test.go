package photoapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient: server.Client(),
		token:      "test-token",
		baseURL:    server.URL,
	}
}

func TestListPhotos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/photos" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("tags"); got != "beach,sunset" {
			t.Errorf("unexpected tags query: %q", got)
		}
		if got := r.URL.Query().Get("untagged"); got != "" {
			t.Errorf("unexpected untagged query: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}

		json.NewEncoder(w).Encode(listPhotosResponse{Photos: []Photo{
			{ID: "p1", ImageHash: "h1", Width: 640, Height: 480, UploadedAt: 1700000000, Tags: []string{"beach"}},
			{ID: "p2", ImageHash: "h2", Width: 800, Height: 600, UploadedAt: 1690000000, Tags: []string{}},
		}})
	}))
	defer server.Close()

	client := newTestClient(server)
	photos, err := client.ListPhotos(context.Background(), ListOptions{Tags: []string{"beach", "sunset"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(photos))
	}
	if photos[0].ID != "p1" || photos[0].Width != 640 || !photos[0].HasTag("beach") {
		t.Errorf("unexpected first photo: %+v", photos[0])
	}
	if photos[1].UploadedAt != 1690000000 {
		t.Errorf("unexpected uploaded_at: %d", photos[1].UploadedAt)
	}
}

func TestListPhotosUntagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("untagged"); got != "true" {
			t.Errorf("expected untagged=true, got %q", got)
		}
		if r.URL.Query().Has("tags") {
			t.Error("expected no tags query")
		}
		w.Write([]byte(`{"photos":[]}`))
	}))
	defer server.Close()

	photos, err := newTestClient(server).ListPhotos(context.Background(), ListOptions{Untagged: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(photos) != 0 {
		t.Errorf("expected no photos, got %d", len(photos))
	}
}

func TestListTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"tags":[{"name":"beach","count":3},{"name":"dog","count":1}]}`))
	}))
	defer server.Close()

	tags, err := newTestClient(server).ListTags(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 2 || tags[0] != (Tag{Name: "beach", Count: 3}) {
		t.Errorf("unexpected tags: %+v", tags)
	}
}

func TestUploadPhoto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/photos/upload" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("expected multipart body: %v", err)
			return
		}
		part, err := reader.NextPart()
		if err != nil {
			t.Errorf("expected a part: %v", err)
			return
		}
		if part.FormName() != "file" {
			t.Errorf("expected form field 'file', got %q", part.FormName())
		}
		if part.FileName() != "cat.png" {
			t.Errorf("unexpected filename: %q", part.FileName())
		}
		if got := part.Header.Get("Content-Type"); got != "image/png" {
			t.Errorf("unexpected part content type: %q", got)
		}
		data, _ := io.ReadAll(part)
		if string(data) != "png-bytes" {
			t.Errorf("unexpected part body: %q", data)
		}
		w.Write([]byte(`{"uploaded_count":1}`))
	}))
	defer server.Close()

	n, err := newTestClient(server).UploadPhoto(context.Background(), UploadFile{
		Name:        "cat.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 uploaded, got %d", n)
	}
}

func TestDeletePhotos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		if strings.Join(req.ImageIDs, ",") != "a,b" {
			t.Errorf("unexpected ids: %v", req.ImageIDs)
		}
		json.NewEncoder(w).Encode(deleteResponse{DeletedImageIDs: req.ImageIDs})
	}))
	defer server.Close()

	deleted, err := newTestClient(server).DeletePhotos(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("expected 2 deleted ids, got %v", deleted)
	}
}

func TestGetPhotoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photos/abc/content" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("RIFF....WEBP"))
	}))
	defer server.Close()

	data, contentType, err := newTestClient(server).GetPhotoContent(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "RIFF....WEBP" {
		t.Errorf("unexpected data: %q", data)
	}
	if contentType != "image/webp" {
		t.Errorf("unexpected content type: %q", contentType)
	}
}

func TestTagBatch(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var req tagBatchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.TagNames) != 1 || req.TagNames[0] != "beach" {
			t.Errorf("unexpected tag names: %v", req.TagNames)
		}
		if len(req.PhotoIDs) != 1 || req.PhotoIDs[0] != "p1" {
			t.Errorf("unexpected photo ids: %v", req.PhotoIDs)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.AddTags(context.Background(), []string{"beach"}, []string{"p1"}); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if err := client.RemoveTags(context.Background(), []string{"beach"}, []string{"p1"}); err != nil {
		t.Fatalf("RemoveTags: %v", err)
	}
	if strings.Join(paths, " ") != "/tags/add /tags/remove" {
		t.Errorf("unexpected paths: %v", paths)
	}
}

func TestTagBatchReportedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	err := newTestClient(server).AddTags(context.Background(), []string{"x"}, []string{"p1"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRecommendTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photos/p1/recommend-tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"tags":["sky","cloud"]}`))
	}))
	defer server.Close()

	tags, err := newTestClient(server).RecommendTags(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(tags, ",") != "sky,cloud" {
		t.Errorf("unexpected tags: %v", tags)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "bad request", status: http.StatusBadRequest, want: ErrValidation},
		{name: "conflict", status: http.StatusConflict, want: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(server).ListTags(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != "nope" {
				t.Errorf("unexpected APIError: %+v", apiErr)
			}
		})
	}
}

func TestServerErrorHasNoSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server).ListPhotos(context.Background(), ListOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sentinel := range []error{ErrUnauthorized, ErrNotFound, ErrValidation} {
		if errors.Is(err, sentinel) {
			t.Errorf("500 should not match %v", sentinel)
		}
	}
}

func TestInvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server).ListTags(context.Background())
	if err == nil || !strings.Contains(err.Error(), "parse response") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestNewClientTrimsBaseURL(t *testing.T) {
	c := NewClient("http://localhost:3000/api/", "tok")
	if c.BaseURL() != "http://localhost:3000/api" {
		t.Errorf("unexpected base URL: %s", c.BaseURL())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("truncate = %q", got)
	}
}
