package chat

import (
	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/cli"
	"github.com/plume-cli/plume/internal/configuration"
)

// newSearchCmd instantiates and returns the chat search command.
func newSearchCmd(config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search chats by title",
		Long:  "Search chats by title relevance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s, err := store.New(config.Chat.Directory)
			cobra.CheckErr(err)

			cli.Title("PLUME CHAT SEARCH")

			records, err := s.List()
			cobra.CheckErr(err)
			ranked := store.Search(args[0], records)
			if len(ranked) == 0 {
				cli.UserInput("no matching chats\n")
				return
			}
			printRecords(ranked)
		},
	}
	return cmd
}
