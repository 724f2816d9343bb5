package domain

import (
	"path"
	"strings"
	"time"
)

// UploadState is the position of an upload in its lifecycle.
type UploadState string

const (
	UploadCreated   UploadState = "created"
	UploadUploading UploadState = "uploading"
	UploadCompleted UploadState = "completed"
	UploadFailed    UploadState = "failed"
)

// UploadSession is a server-tracked upload addressed by byte offset.
// Offset is only ever advanced from values the server reported.
type UploadSession struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Offset    int64     `json:"offset"`
	Length    int64     `json:"length"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete reports whether the server holds every byte.
func (s UploadSession) Complete() bool {
	return s.Length >= 0 && s.Offset == s.Length
}

// SessionIDFromURL returns the trailing path segment of a session URL,
// which the catalog accepts as upload identifier.
func SessionIDFromURL(sessionURL string) string {
	u := sessionURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if u == "" {
		return ""
	}
	return path.Base(u)
}
