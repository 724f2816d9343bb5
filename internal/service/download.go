package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/c2fo/vfs/v7"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/transfer"
)

const mediaExtension = ".mp4"

// videoSource abstracts the catalog listings the download flow walks (consumer-defined interface)
type videoSource interface {
	ChannelVideos(ctx context.Context, channelID string) iter.Seq2[domain.Video, error]
	VideoVariants(ctx context.Context, videoID string) iter.Seq2[domain.Variant, error]
}

// mediaDownloader abstracts the streaming downloader (consumer-defined interface)
type mediaDownloader interface {
	Download(ctx context.Context, sourceURL string, dst vfs.File, obs domain.ProgressObserver) (domain.TransferProgress, error)
}

// DownloadSummary counts what a channel download did.
type DownloadSummary struct {
	Downloaded int
	Skipped    int // videos without any variant
	Filtered   int // videos not matching the title filter
	Bytes      int64
}

// DownloadService mirrors a channel into a destination location
type DownloadService struct {
	catalog    videoSource
	downloader mediaDownloader
	dest       vfs.Location
	match      string
	logger     *slog.Logger
}

// NewDownloadService creates a download service writing into dest.
// A non-empty match restricts downloads to videos whose title fuzzy-matches it.
func NewDownloadService(catalog videoSource, downloader mediaDownloader, dest vfs.Location, match string, logger *slog.Logger) *DownloadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadService{
		catalog:    catalog,
		downloader: downloader,
		dest:       dest,
		match:      strings.TrimSpace(match),
		logger:     logger,
	}
}

// DownloadChannel walks every video of the channel in listing order and
// downloads its best variant to {dest}/{sanitized id-title}.mp4.
// Videos with no variant are skipped. The first error stops the walk;
// files completed before it stay in place.
func (s *DownloadService) DownloadChannel(ctx context.Context, channelID string, obs domain.ProgressObserver) (DownloadSummary, error) {
	var summary DownloadSummary

	for video, err := range s.catalog.ChannelVideos(ctx, channelID) {
		if err != nil {
			s.logger.Error("failed to list channel videos", "channel", channelID, "error", err)
			return summary, fmt.Errorf("listing videos of channel %s: %w", channelID, err)
		}

		if !s.matches(video.Title) {
			summary.Filtered++
			continue
		}

		variant, ok, err := transfer.ResolveFrom(s.catalog.VideoVariants(ctx, video.ID))
		if err != nil {
			s.logger.Error("failed to list variants", "video", video.ID, "error", err)
			return summary, fmt.Errorf("listing variants of video %s: %w", video.ID, err)
		}
		if !ok {
			s.logger.Info("no variant to download, skipping", "video", video.ID, "title", video.Title)
			summary.Skipped++
			continue
		}

		name := FileNameFor(video)
		dst, err := s.dest.NewFile(name)
		if err != nil {
			return summary, fmt.Errorf("preparing %s: %w", name, err)
		}

		s.logger.Debug("downloading video", "video", video.ID, "variant", variant.Name, "rank", variant.QualityRank, "dest", dst.URI())

		final, err := s.downloader.Download(ctx, variant.Location, dst, obs)
		if err != nil {
			return summary, fmt.Errorf("downloading video %s: %w", video.ID, err)
		}
		summary.Downloaded++
		summary.Bytes += final.Transferred
	}

	s.logger.Info("channel download finished",
		"channel", channelID,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"filtered", summary.Filtered,
		"bytes", summary.Bytes,
	)
	return summary, nil
}

// maxStemBytes keeps "<stem>.mp4.part" within MaxNameBytes.
const maxStemBytes = transfer.MaxNameBytes - len(mediaExtension) - len(transfer.PartSuffix)

// FileNameFor returns the local file name of a video.
// Distinct videos may map to the same name; the later download overwrites.
func FileNameFor(video domain.Video) string {
	return transfer.SanitizeMax(video.FileName(), maxStemBytes) + mediaExtension
}

func (s *DownloadService) matches(title string) bool {
	if s.match == "" {
		return true
	}
	return len(fuzzy.Find(strings.ToLower(s.match), []string{strings.ToLower(title)})) > 0
}
