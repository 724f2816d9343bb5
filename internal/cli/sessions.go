package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/service"
	"github.com/mmcdole/switchtube/internal/store"
	"github.com/mmcdole/switchtube/internal/tui"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List interrupted uploads kept for resume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := store.NewUploadStore(a.cfg.Upload.SessionDB)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			defer sessions.Close()

			svc := service.NewUploadService(nil, nil, sessions, a.cfg.Server.URL, a.logger)
			all, err := svc.Sessions()
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No interrupted uploads")
				return nil
			}

			list := make([]domain.UploadSession, 0, len(all))
			for _, s := range all {
				list = append(list, s)
			}
			slices.SortFunc(list, func(x, y domain.UploadSession) int {
				return y.UpdatedAt.Compare(x.UpdatedAt)
			})

			fmt.Fprint(cmd.OutOrStdout(), tui.RenderSessions(list))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <file>",
		Short: "Drop the stored session of a file so the next upload starts over",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := fileFor(args[0])
			if err != nil {
				return err
			}

			sessions, err := store.NewUploadStore(a.cfg.Upload.SessionDB)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			defer sessions.Close()

			svc := service.NewUploadService(nil, nil, sessions, a.cfg.Server.URL, a.logger)
			forgot, err := svc.Forget(src)
			if err != nil {
				return err
			}
			if forgot {
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot upload session of %s\n", src.Name())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No upload session for %s\n", src.Name())
			}
			return nil
		},
	})

	return cmd
}
