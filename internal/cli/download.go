package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/service"
	"github.com/mmcdole/switchtube/internal/transfer"
	"github.com/mmcdole/switchtube/internal/tui"
)

func newDownloadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <channel>",
		Short: "Download every video of a channel",
		Long: `Download the best variant of every video in a channel to
{dest}/{id}-{title}.mp4. Videos without a downloadable variant are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channelID := args[0]
			cfg := a.cfg.Download

			client, err := a.newClient()
			if err != nil {
				return err
			}
			dest, err := locationFor(cfg.Destination)
			if err != nil {
				return err
			}

			downloader := transfer.NewDownloader(client, a.logger,
				transfer.WithChunkSize(cfg.ChunkSize),
				transfer.WithAtomicWrites(cfg.Atomic),
			)
			svc := service.NewDownloadService(client, downloader, dest, cfg.Match, a.logger)

			var summary service.DownloadSummary
			work := func(ctx context.Context, obs domain.ProgressObserver) error {
				var err error
				summary, err = svc.DownloadChannel(ctx, channelID, obs)
				return err
			}

			out := cmd.OutOrStdout()
			if a.interactive(out) {
				err = tui.Run(cmd.Context(), work)
			} else {
				plain := tui.NewPlainObserver(out)
				err = work(cmd.Context(), plain)
				plain.Finish()
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Downloaded %d videos (%s) to %s", summary.Downloaded, humanize.Bytes(uint64(summary.Bytes)), dest.URI())
			if summary.Skipped > 0 {
				fmt.Fprintf(out, ", skipped %d without variants", summary.Skipped)
			}
			if summary.Filtered > 0 {
				fmt.Fprintf(out, ", %d not matching %q", summary.Filtered, cfg.Match)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("dest", "d", ".", "directory or vfs URI to download into")
	f.StringP("match", "m", "", "only download videos whose title fuzzy-matches")
	f.Bool("atomic", false, "write to <name>.part and rename once complete")
	f.Int("chunk-size", transfer.DefaultChunkSize, "read size in bytes")
	bindFlag(cmd, "dest", "download.destination")
	bindFlag(cmd, "match", "download.match")
	bindFlag(cmd, "atomic", "download.atomic")
	bindFlag(cmd, "chunk-size", "download.chunk_size")

	return requireAuth(cmd)
}
