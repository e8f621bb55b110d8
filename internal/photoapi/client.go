// Package photoapi provides a client for the photo gallery REST service:
// listing photos and tags, uploading and deleting photos, fetching raw
// image bytes, and batch tag edits.
//
// Every call carries the session's bearer credential. A 401 surfaces as
// ErrUnauthorized; discarding the credential is the caller's job.
package photoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
)

const (
	// defaultTimeout is the HTTP client timeout for API calls.
	defaultTimeout = 60 * time.Second

	// maxErrorBody caps how much of an error response is kept for messages.
	maxErrorBody = 512
)

// Client talks to the photo service on behalf of one authenticated session.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

// NewClient creates a client for the service rooted at baseURL
// (e.g. "http://localhost:3000/api"). Responses are transparently
// gzip-decoded.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the service root this client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- Photos ---

// ListPhotos returns photos in server order (newest upload first).
func (c *Client) ListPhotos(ctx context.Context, opts ListOptions) ([]Photo, error) {
	q := url.Values{}
	if len(opts.Tags) > 0 {
		q.Set("tags", strings.Join(opts.Tags, ","))
	}
	if opts.Untagged {
		q.Set("untagged", "true")
	}
	endpoint := "/photos"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var resp listPhotosResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	log.Debug().Int("count", len(resp.Photos)).Msg("Photos listed")
	return resp.Photos, nil
}

// UploadPhoto submits one file. Returns the number of photos the server
// created from it (0 when the server skipped an unsupported part).
func (c *Client) UploadPhoto(ctx context.Context, file UploadFile) (int, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", file.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return 0, fmt.Errorf("upload %s: build form: %w", file.Name, err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return 0, fmt.Errorf("upload %s: read file: %w", file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("upload %s: build form: %w", file.Name, err)
	}

	httpResp, err := c.do(ctx, http.MethodPost, "/photos/upload", &body, mw.FormDataContentType())
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	defer httpResp.Body.Close()

	var resp uploadResponse
	if err := decode(httpResp.Body, &resp); err != nil {
		return 0, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	log.Info().Str("file", file.Name).Int("uploaded", resp.UploadedCount).Msg("Photo uploaded")
	return resp.UploadedCount, nil
}

// DeletePhotos deletes the given photos and returns the ids the server
// reports as deleted.
func (c *Client) DeletePhotos(ctx context.Context, ids []string) ([]string, error) {
	var resp deleteResponse
	if err := c.postJSON(ctx, "/photos/delete", deleteRequest{ImageIDs: ids}, &resp); err != nil {
		return nil, fmt.Errorf("delete photos: %w", err)
	}
	log.Info().Int("requested", len(ids)).Int("deleted", len(resp.DeletedImageIDs)).Msg("Photos deleted")
	return resp.DeletedImageIDs, nil
}

// GetPhotoContent downloads the raw image bytes of a photo along with
// the content type reported by the server.
func (c *Client) GetPhotoContent(ctx context.Context, id string) ([]byte, string, error) {
	httpResp, err := c.do(ctx, http.MethodGet, "/photos/"+url.PathEscape(id)+"/content", nil, "")
	if err != nil {
		return nil, "", fmt.Errorf("get content %s: %w", id, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("get content %s: read body: %w", id, err)
	}
	contentType := httpResp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	log.Debug().Str("photoId", id).Int("bytes", len(data)).Str("contentType", contentType).Msg("Photo content fetched")
	return data, contentType, nil
}

// RecommendTags asks the service for AI-suggested tags for a photo.
func (c *Client) RecommendTags(ctx context.Context, id string) ([]string, error) {
	var resp recommendTagsResponse
	if err := c.getJSON(ctx, "/photos/"+url.PathEscape(id)+"/recommend-tags", &resp); err != nil {
		return nil, fmt.Errorf("recommend tags %s: %w", id, err)
	}
	return resp.Tags, nil
}

// --- Tags ---

// ListTags returns every tag in use with its photo count.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var resp listTagsResponse
	if err := c.getJSON(ctx, "/tags", &resp); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return resp.Tags, nil
}

// AddTags attaches every named tag to every listed photo.
func (c *Client) AddTags(ctx context.Context, names, photoIDs []string) error {
	return c.tagBatch(ctx, "/tags/add", names, photoIDs)
}

// RemoveTags detaches every named tag from every listed photo.
func (c *Client) RemoveTags(ctx context.Context, names, photoIDs []string) error {
	return c.tagBatch(ctx, "/tags/remove", names, photoIDs)
}

func (c *Client) tagBatch(ctx context.Context, endpoint string, names, photoIDs []string) error {
	var resp successResponse
	if err := c.postJSON(ctx, endpoint, tagBatchRequest{TagNames: names, PhotoIDs: photoIDs}, &resp); err != nil {
		return fmt.Errorf("%s: %w", strings.TrimPrefix(endpoint, "/"), err)
	}
	if !resp.Success {
		return fmt.Errorf("%s: service reported failure: %w", strings.TrimPrefix(endpoint, "/"), ErrValidation)
	}
	return nil
}

// --- Internal helpers ---

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	httpResp, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	return decode(httpResp.Body, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpResp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	return decode(httpResp.Body, out)
}

// do sends an authenticated request. Non-2xx responses are drained and
// returned as *APIError; the caller owns the body of successful ones.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*http.Response, error) {
	startTime := time.Now()
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log.Trace().Str("method", method).Str("path", endpoint).Str("requestId", requestID).Msg("Photo API request")

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Photo API response")
		return nil, fmt.Errorf("request failed: %w", err)
	}

	log.Debug().
		Str("method", method).
		Str("path", endpoint).
		Int("statusCode", httpResp.StatusCode).
		Dur("duration", duration).
		Msg("Photo API response")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer httpResp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}
	return httpResp, nil
}

func decode(r io.Reader, out any) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	return nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
