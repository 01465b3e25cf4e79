package chat

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/cli"
	"github.com/plume-cli/plume/internal/configuration"
)

// newDeleteCmd instantiates and returns the chat delete command.
func newDeleteCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		Force bool
	}
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a chat",
		Long:  "Delete a chat",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			key, err := strconv.ParseInt(args[0], 10, 64)
			cobra.CheckErr(err)

			s, err := store.New(config.Chat.Directory)
			cobra.CheckErr(err)

			if !opts.Force && !cli.QueryUser("Delete this chat?") {
				return
			}
			cobra.CheckErr(s.Delete(s.RecordPath(key)))
			cli.UserCommand("deleted chat %d\n", key)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "skip confirmation")
	return cmd
}
