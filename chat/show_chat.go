package chat

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/cli"
	"github.com/plume-cli/plume/internal/configuration"
)

// newShowCmd instantiates and returns the chat show command.
func newShowCmd(config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show a chat",
		Long:  "Show a chat's full transcript and mark it as accessed",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			key, err := strconv.ParseInt(args[0], 10, 64)
			cobra.CheckErr(err)

			s, err := store.New(config.Chat.Directory)
			cobra.CheckErr(err)

			path := s.RecordPath(key)
			record, err := s.Load(path)
			cobra.CheckErr(err)

			title := record.Metadata.Title
			if title == "" {
				title = "(untitled)"
			}
			cli.Title("%s", title)
			for _, message := range record.Messages {
				switch message.Role {
				case store.RoleUser:
					cli.UserInput("> %s\n", message.Content)
				case store.RoleAssistant:
					cli.AIOutput("%s", message.Content+"\n")
				}
			}

			// Reading a chat bumps its access time so it surfaces in list.
			cobra.CheckErr(s.Touch(path))
		},
	}
	return cmd
}
