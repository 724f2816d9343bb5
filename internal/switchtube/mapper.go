package switchtube

import (
	"github.com/mmcdole/switchtube/internal/domain"
)

// MapChannels converts channel DTOs to domain channels
func MapChannels(dtos []ChannelDTO) []domain.Channel {
	channels := make([]domain.Channel, 0, len(dtos))
	for _, d := range dtos {
		channels = append(channels, domain.Channel{
			ID:          string(d.ID),
			Name:        d.Name,
			Description: d.Description,
		})
	}
	return channels
}

// MapVideo converts a video DTO to a domain video
func MapVideo(d VideoDTO) domain.Video {
	return domain.Video{
		ID:          string(d.ID),
		Title:       d.Title,
		Description: d.Description,
		Published:   d.Published,
	}
}

// MapVariant converts a variant DTO; rank is its position in the listing
func (c *Client) MapVariant(d VariantDTO, rank int) domain.Variant {
	return domain.Variant{
		Location:    c.Endpoint(d.Path),
		QualityRank: rank,
		Name:        d.Name,
		MediaType:   d.MediaType,
	}
}
