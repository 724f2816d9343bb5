package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/switchtube/internal/domain"
)

// channelLister abstracts the contributor channel listing (consumer-defined interface)
type channelLister interface {
	Channels(ctx context.Context) ([]domain.Channel, error)
}

// ChannelService lists the channels the token holder can upload to
type ChannelService struct {
	client channelLister
	logger *slog.Logger
}

// NewChannelService creates a new channel service
func NewChannelService(client channelLister, logger *slog.Logger) *ChannelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelService{client: client, logger: logger}
}

// List returns the contributor channels. A non-empty filter keeps only names
// that fuzzy-match it, closest first; otherwise server order is kept.
func (s *ChannelService) List(ctx context.Context, filter string) ([]domain.Channel, error) {
	channels, err := s.client.Channels(ctx)
	if err != nil {
		s.logger.Error("failed to fetch channels", "error", err)
		return nil, err
	}
	s.logger.Debug("fetched channels", "count", len(channels))

	filter = strings.TrimSpace(filter)
	if filter == "" {
		return channels, nil
	}

	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name
	}

	matches := fuzzy.RankFindFold(filter, names)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	result := make([]domain.Channel, 0, len(matches))
	for _, m := range matches {
		result = append(result, channels[m.OriginalIndex])
	}
	return result, nil
}
