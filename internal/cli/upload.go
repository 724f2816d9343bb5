package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/service"
	"github.com/mmcdole/switchtube/internal/store"
	"github.com/mmcdole/switchtube/internal/tui"
	"github.com/mmcdole/switchtube/internal/tus"
)

func newUploadCmd(a *app) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "upload <channel> <file> <title>",
		Short: "Upload a video to a channel",
		Long: `Upload a file through the resumable upload endpoint and create a video
from it. An interrupted upload of the same file continues where the server
stopped when the command is run again.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			channelID, path, title := args[0], args[1], args[2]
			cfg := a.cfg.Upload

			client, err := a.newClient()
			if err != nil {
				return err
			}
			src, err := fileFor(path)
			if err != nil {
				return err
			}

			sessions, err := store.NewUploadStore(cfg.SessionDB)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			defer sessions.Close()

			uploader := tus.NewUploader(client.Endpoint(cfg.Endpoint), client, a.logger,
				tus.WithChunkSize(cfg.ChunkSize),
				tus.WithMaxResyncs(cfg.MaxResyncs),
			)
			svc := service.NewUploadService(uploader, client, sessions, client.BaseURL(), a.logger)

			req := service.UploadRequest{
				ChannelID: channelID,
				Title:     title,
				Published: publish,
				Source:    src,
			}

			var video *domain.CreatedVideo
			work := func(ctx context.Context, obs domain.ProgressObserver) error {
				var err error
				video, err = svc.Upload(ctx, req, obs)
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

			fmt.Fprintln(out, video.URL)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&publish, "publish", true, "publish the video once processed")
	f.Int("chunk-size", tus.DefaultChunkSize, "upload chunk size in bytes")
	bindFlag(cmd, "chunk-size", "upload.chunk_size")

	return requireAuth(cmd)
}
