package chat

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/archive"
	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/configuration"
)

// newArchiveCmd instantiates and returns the chat archive command.
func newArchiveCmd(config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <database>",
		Short: "Export chats to a sqlite database",
		Long:  "Export all parsable chats into a single sqlite database",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s, err := store.New(config.Chat.Directory)
			cobra.CheckErr(err)

			records, err := s.List()
			cobra.CheckErr(err)

			cobra.CheckErr(archive.Export(args[0], records))
			fmt.Printf("Archived %d chats to %s\n", len(records), args[0])
		},
	}
	return cmd
}
