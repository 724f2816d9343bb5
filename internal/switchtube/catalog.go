package switchtube

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"

	"github.com/mmcdole/switchtube/internal/domain"
)

// ChannelVideosURL returns the first page of a channel's video listing
func (c *Client) ChannelVideosURL(channelID string) string {
	return c.Endpoint(fmt.Sprintf("/api/v1/browse/channels/%s/videos", url.PathEscape(channelID)))
}

// VideoVariantsURL returns the first page of a video's variant listing
func (c *Client) VideoVariantsURL(videoID string) string {
	return c.Endpoint(fmt.Sprintf("/api/v1/browse/videos/%s/video_variants", url.PathEscape(videoID)))
}

// ChannelVideos yields every video of a channel in listing order
func (c *Client) ChannelVideos(ctx context.Context, channelID string) iter.Seq2[domain.Video, error] {
	lister := NewLister(c, func(raw json.RawMessage) (domain.Video, error) {
		var d VideoDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return domain.Video{}, err
		}
		if d.ID == "" {
			return domain.Video{}, fmt.Errorf("video without id")
		}
		return MapVideo(d), nil
	})
	return lister.All(ctx, c.ChannelVideosURL(channelID))
}

// VideoVariants yields a video's variants, best quality first as sent by the server
func (c *Client) VideoVariants(ctx context.Context, videoID string) iter.Seq2[domain.Variant, error] {
	lister := NewLister(c, func(raw json.RawMessage) (VariantDTO, error) {
		var d VariantDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return VariantDTO{}, err
		}
		if d.Path == "" {
			return VariantDTO{}, fmt.Errorf("variant without path")
		}
		return d, nil
	})

	return func(yield func(domain.Variant, error) bool) {
		rank := 0
		for d, err := range lister.All(ctx, c.VideoVariantsURL(videoID)) {
			if err != nil {
				yield(domain.Variant{}, err)
				return
			}
			if !yield(c.MapVariant(d, rank), nil) {
				return
			}
			rank++
		}
	}
}

// Channels returns the channels the token holder can contribute to.
// This endpoint is not paginated.
func (c *Client) Channels(ctx context.Context) ([]domain.Channel, error) {
	var dtos []ChannelDTO
	if _, err := c.getJSON(ctx, c.Endpoint("/api/v1/channels?role=contributor"), &dtos); err != nil {
		return nil, err
	}
	return MapChannels(dtos), nil
}

// CreateVideo finalizes a completed upload into a video record
func (c *Client) CreateVideo(ctx context.Context, req domain.CreateVideoRequest) (*domain.CreatedVideo, error) {
	body := CreateVideoDTO{
		ChannelID: req.ChannelID,
		UploadID:  req.UploadID,
		Title:     req.Title,
		Published: req.Published,
	}

	var resp CreatedVideoDTO
	if err := c.postJSON(ctx, c.Endpoint("/api/v1/videos"), body, &resp); err != nil {
		return nil, err
	}
	if resp.Path == "" {
		return nil, &domain.ProtocolError{Reason: "created video response has no path"}
	}

	c.logger.Info("created video", "channel", req.ChannelID, "upload_id", req.UploadID, "path", resp.Path)

	return &domain.CreatedVideo{
		ID:   string(resp.ID),
		Path: resp.Path,
		URL:  c.Endpoint(resp.Path),
	}, nil
}

var (
	_ domain.Catalog   = (*Client)(nil)
	_ domain.Publisher = (*Client)(nil)
)
