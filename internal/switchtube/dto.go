package switchtube

import (
	"bytes"
	"encoding/json"
)

// flexString accepts JSON strings and numbers; ids are sometimes numeric.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// ChannelDTO is a channel as returned by /api/v1/channels
type ChannelDTO struct {
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

// VideoDTO is a video as returned by the channel browse listing
type VideoDTO struct {
	ID          flexString `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Published   bool       `json:"published"`
}

// VariantDTO is an encoded rendition; Path is relative to the origin
type VariantDTO struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
}

// CreateVideoDTO is the body of POST /api/v1/videos
type CreateVideoDTO struct {
	ChannelID string `json:"channel_id"`
	UploadID  string `json:"upload_id"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
}

// CreatedVideoDTO is the response of POST /api/v1/videos
type CreatedVideoDTO struct {
	ID   flexString `json:"id"`
	Path string     `json:"path"`
}
