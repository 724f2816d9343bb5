package domain

import (
	"fmt"
	"strconv"
)

// Resource is an opaque catalog entity as returned by a listing endpoint.
// Attributes are kept exactly as decoded from JSON.
type Resource map[string]any

// ID returns the stable identity of the resource.
// Numeric ids are rendered without a fractional part.
func (r Resource) ID() string {
	return r.String("id")
}

// String returns the attribute as a string, or "" when absent.
func (r Resource) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Page is the result of one listing request. Next is empty on the last page.
type Page[T any] struct {
	Items []T
	Next  string
}

// HasNext reports whether another page follows.
func (p Page[T]) HasNext() bool {
	return p.Next != ""
}

// Channel is a container of videos the token holder can access
type Channel struct {
	ID          string
	Name        string
	Description string
}

// Video is a single video entry in a channel listing
type Video struct {
	ID          string
	Title       string
	Description string
	Published   bool
}

// FileName returns the unsanitized base name used for downloads.
func (v Video) FileName() string {
	return v.ID + "-" + v.Title
}

// Variant is one encoded rendition of a video.
// Variants arrive ordered best quality first; QualityRank mirrors that position.
type Variant struct {
	Location    string
	QualityRank int
	Name        string
	MediaType   string
}

// CreatedVideo is the record produced by finalizing an upload
type CreatedVideo struct {
	ID   string
	Path string
	URL  string
}
