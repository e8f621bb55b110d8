// Package phototest runs an in-memory photo service over HTTP for tests.
// It mirrors the real service's routes and response shapes closely enough
// to exercise the client, the gallery store and the blob cache end to end.
package phototest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

// Token is the bearer credential the server accepts.
const Token = "test-token"

// maxUploadFiles matches the service's per-request file limit.
const maxUploadFiles = 16

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type storedPhoto struct {
	photo       photoapi.Photo
	content     []byte
	contentType string
}

// Server is a fake photo service. Zero or more failures can be queued per
// route with Fail; requests on other routes are unaffected.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	photos    []*storedPhoto // newest first, like the real listing
	failures  map[string][]int
	calls     map[string]int
	recommend map[string][]string
	gate      chan struct{}
	clock     int64
}

// New starts a server. Close it when done.
func New() *Server {
	s := &Server{
		failures:  make(map[string][]int),
		calls:     make(map[string]int),
		recommend: make(map[string][]string),
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}

	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Get("/photos", s.handleList)
	r.Post("/photos/upload", s.handleUpload)
	r.Post("/photos/delete", s.handleDelete)
	r.Get("/photos/{id}/content", s.handleContent)
	r.Get("/photos/{id}/recommend-tags", s.handleRecommend)
	r.Get("/tags", s.handleTags)
	r.Post("/tags/add", s.handleTagBatch(true))
	r.Post("/tags/remove", s.handleTagBatch(false))

	s.Server = httptest.NewServer(r)
	return s
}

// NewClient returns a photoapi client authenticated against this server.
func (s *Server) NewClient() *photoapi.Client {
	return photoapi.NewClient(s.URL, Token)
}

// Seed adds a photo with the given id, tags and content. Seeded photos are
// listed in the order they were added; uploads are listed before them.
func (s *Server) Seed(id string, tags []string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock++
	sum := sha256.Sum256(content)
	s.photos = append(s.photos, &storedPhoto{
		photo: photoapi.Photo{
			ID:         id,
			ImageHash:  hex.EncodeToString(sum[:]),
			Width:      1,
			Height:     1,
			UploadedAt: s.clock,
			Tags:       append([]string{}, tags...),
		},
		content:     content,
		contentType: "image/jpeg",
	})
}

// SetRecommendations sets the tags returned by the recommend endpoint.
func (s *Server) SetRecommendations(id string, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommend[id] = tags
}

// Fail queues HTTP status codes returned, in order, by the next requests
// matching route (e.g. "POST /photos/delete").
func (s *Server) Fail(route string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], statuses...)
}

// Calls reports how many requests matched route, including failed ones.
// Routes use concrete paths, e.g. "GET /photos/a/content".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// HoldContent blocks content downloads until the returned function is
// called. It lets tests observe requests while they are in flight.
func (s *Server) HoldContent() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// IDs returns the ids of all stored photos in listing order.
func (s *Server) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.photos))
	for _, p := range s.photos {
		ids = append(ids, p.photo.ID)
	}
	return ids
}

// Remove deletes a photo behind the client's back, as another session would.
func (s *Server) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// --- middleware ---

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[route]++
		var status int
		if queued := s.failures[route]; len(queued) > 0 {
			status = queued[0]
			s.failures[route] = queued[1:]
		}
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+Token {
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var filter []string
	for _, t := range strings.Split(r.URL.Query().Get("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter = append(filter, t)
		}
	}
	untagged := r.URL.Query().Get("untagged") == "true"

	s.mu.Lock()
	photos := make([]photoapi.Photo, 0, len(s.photos))
	for _, p := range s.photos {
		if untagged && len(p.photo.Tags) > 0 {
			continue
		}
		if len(filter) > 0 && !hasAny(p.photo, filter) {
			continue
		}
		photos = append(photos, p.photo.Clone())
	}
	s.mu.Unlock()

	render.JSON(w, r, map[string]any{"photos": photos})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "Failed to parse multipart", http.StatusBadRequest)
		return
	}

	uploaded := 0
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "Failed to parse multipart", http.StatusBadRequest)
			return
		}
		if part.FormName() != "file" || !allowedUploadTypes[part.Header.Get("Content-Type")] {
			continue
		}
		if uploaded >= maxUploadFiles {
			http.Error(w, "Too many files", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, "Failed to read file", http.StatusBadRequest)
			return
		}

		width, height := 0, 0
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			width, height = cfg.Width, cfg.Height
		}
		sum := sha256.Sum256(data)

		s.mu.Lock()
		s.clock++
		stored := &storedPhoto{
			photo: photoapi.Photo{
				ID:         uuid.Must(uuid.NewV7()).String(),
				ImageHash:  hex.EncodeToString(sum[:]),
				Width:      width,
				Height:     height,
				UploadedAt: s.clock,
				Tags:       []string{},
			},
			content:     data,
			contentType: part.Header.Get("Content-Type"),
		}
		s.photos = append([]*storedPhoto{stored}, s.photos...)
		s.mu.Unlock()
		uploaded++
	}

	render.JSON(w, r, map[string]any{"uploaded_count": uploaded})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageIDs []string `json:"image_ids"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	for _, id := range req.ImageIDs {
		s.removeLocked(id)
	}
	s.mu.Unlock()

	render.JSON(w, r, map[string]any{"deleted_image_ids": req.ImageIDs})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	p := s.findLocked(id)
	s.mu.Unlock()
	if p == nil {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", p.contentType)
	w.Write(p.content)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	p := s.findLocked(id)
	tags := s.recommend[id]
	s.mu.Unlock()
	if p == nil {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	render.JSON(w, r, map[string]any{"tags": tags})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	counts := make(map[string]int)
	for _, p := range s.photos {
		for _, t := range p.photo.Tags {
			counts[t]++
		}
	}
	s.mu.Unlock()

	tags := make([]photoapi.Tag, 0, len(counts))
	for name, n := range counts {
		tags = append(tags, photoapi.Tag{Name: name, Count: n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})
	render.JSON(w, r, map[string]any{"tags": tags})
}

func (s *Server) handleTagBatch(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TagNames []string `json:"tag_names"`
			PhotoIDs []string `json:"photo_ids"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "Invalid body", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		for _, id := range req.PhotoIDs {
			p := s.findLocked(id)
			if p == nil {
				continue
			}
			for _, name := range req.TagNames {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				if add {
					if !p.photo.HasTag(name) {
						p.photo.Tags = append(p.photo.Tags, name)
					}
				} else {
					p.photo.Tags = without(p.photo.Tags, name)
				}
			}
		}
		s.mu.Unlock()

		render.JSON(w, r, map[string]any{"success": true})
	}
}

// --- helpers ---

func (s *Server) findLocked(id string) *storedPhoto {
	for _, p := range s.photos {
		if p.photo.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) removeLocked(id string) {
	for i, p := range s.photos {
		if p.photo.ID == id {
			s.photos = append(s.photos[:i], s.photos[i+1:]...)
			return
		}
	}
}

func hasAny(p photoapi.Photo, names []string) bool {
	for _, n := range names {
		if p.HasTag(n) {
			return true
		}
	}
	return false
}

func without(tags []string, name string) []string {
	out := tags[:0]
	for _, t := range tags {
		if t != name {
			out = append(out, t)
		}
	}
	return out
}
