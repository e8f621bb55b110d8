package photoapi

import "io"

// Photo is a server-stored image with its metadata and tag set.
// Only Tags ever changes over a photo's lifetime.
type Photo struct {
	ID         string   `json:"id"`
	ImageHash  string   `json:"image_hash"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	UploadedAt int64    `json:"uploaded_at"`
	Tags       []string `json:"tags"`
}

// HasTag reports whether the photo carries the named tag.
func (p Photo) HasTag(name string) bool {
	for _, t := range p.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with p.
func (p Photo) Clone() Photo {
	c := p
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	return c
}

// Tag is a tag name with the number of photos carrying it.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ListOptions narrows a photo listing on the server side.
// Tags uses the server's any-of semantics; the client applies its own
// all-of filter on top of whatever is returned.
type ListOptions struct {
	Tags     []string
	Untagged bool
}

// UploadFile is a single file submitted to the upload endpoint.
type UploadFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// --- wire envelopes ---

type listPhotosResponse struct {
	Photos []Photo `json:"photos"`
}

type listTagsResponse struct {
	Tags []Tag `json:"tags"`
}

type uploadResponse struct {
	UploadedCount int `json:"uploaded_count"`
}

type deleteRequest struct {
	ImageIDs []string `json:"image_ids"`
}

type deleteResponse struct {
	DeletedImageIDs []string `json:"deleted_image_ids"`
}

type tagBatchRequest struct {
	TagNames []string `json:"tag_names"`
	PhotoIDs []string `json:"photo_ids"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type recommendTagsResponse struct {
	Tags []string `json:"tags"`
}
