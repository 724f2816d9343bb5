package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/switchtube/internal/service"
	"github.com/mmcdole/switchtube/internal/tui"
)

func newChannelsCmd(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List the channels you can contribute to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}

			channels, err := service.NewChannelService(client, a.logger).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(channels) == 0 && filter != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "No channel matches %q\n", filter)
				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), tui.RenderChannels(channels))
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "fuzzy filter on channel names")
	return requireAuth(cmd)
}
