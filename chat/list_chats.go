package chat

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/cli"
	"github.com/plume-cli/plume/internal/configuration"
)

// newListCmd instantiates and returns the chat list command.
func newListCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		PageSize int
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all chats",
		Long:  "List all chats, most recently accessed first",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			// Instantiate store.
			s, err := store.New(config.Chat.Directory)
			cobra.CheckErr(err)

			// Headers.
			cli.Title("PLUME CHAT LIST")

			records, err := s.List()
			cobra.CheckErr(err)
			if len(records) > opts.PageSize {
				records = records[:opts.PageSize]
			}
			printRecords(records)
		},
	}

	cmd.Flags().IntVarP(&opts.PageSize, "page-size", "p", 50, "Page size")
	return cmd
}

func printRecords(records []*store.Record) {
	for _, record := range records {
		title := record.Metadata.Title
		if title == "" {
			title = "(untitled)"
		}
		cli.AIOutput("%d - %s (%s)\n", record.Key, title,
			record.Metadata.LastAccessedAt.Format(time.RFC822))
		description := ""
		for i := 0; i < 3 && i < len(record.Messages); i++ {
			if record.Messages[i].Role == store.RoleUser {
				description += "> " + record.Messages[i].Content + "\n"
			}
		}
		cli.UserInput("%s", description)
	}
}
