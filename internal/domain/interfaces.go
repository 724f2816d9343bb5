package domain

import (
	"context"
	"iter"
)

// Catalog is the read side of the remote service.
// Sequences are lazy: pages are fetched as the caller ranges over them.
type Catalog interface {
	ChannelVideos(ctx context.Context, channelID string) iter.Seq2[Video, error]
	VideoVariants(ctx context.Context, videoID string) iter.Seq2[Variant, error]
	Channels(ctx context.Context) ([]Channel, error)
}

// Publisher turns a completed upload into a catalog record.
type Publisher interface {
	CreateVideo(ctx context.Context, req CreateVideoRequest) (*CreatedVideo, error)
}

// CreateVideoRequest is the finalize call payload.
type CreateVideoRequest struct {
	ChannelID string
	UploadID  string
	Title     string
	Published bool
}
