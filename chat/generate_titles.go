package chat

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/configuration"
	"github.com/plume-cli/plume/internal/llm"
	"github.com/plume-cli/plume/internal/session"
)

// newGenerateTitlesCmd instantiates and returns the generate-titles command.
func newGenerateTitlesCmd(config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-titles",
		Short: "Generate titles for chats that don't have one",
		Long:  "Generate titles for all stored chats that don't have a title",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			s, err := store.New(config.Chat.Directory)
			cobra.CheckErr(err)

			client := llm.NewClient(config.OpenaiAPIKey, config.OpenaiAPIHost)
			titles := session.NewTitleGenerator(client)

			records, err := s.List()
			cobra.CheckErr(err)

			var untitled []*store.Record
			for _, record := range records {
				if record.Metadata.Title == "" {
					untitled = append(untitled, record)
				}
			}
			if len(untitled) == 0 {
				fmt.Println("No chats found without titles")
				return
			}
			fmt.Printf("Found %d chats without titles\n", len(untitled))

			for i, record := range untitled {
				fmt.Printf("Processing chat %d/%d (key: %d)... ", i+1, len(untitled), record.Key)

				firstUserMessage := ""
				for _, message := range record.Messages {
					if message.Role == store.RoleUser {
						firstUserMessage = message.Content
						break
					}
				}
				if firstUserMessage == "" {
					fmt.Println("SKIPPED: no user message")
					continue
				}

				title := titles.Generate(ctx, firstUserMessage, config.Chat.SummaryModel)
				if _, err := s.Flush(record.Key, title, record.Messages); err != nil {
					fmt.Printf("ERROR: %v\n", err)
					continue
				}
				fmt.Printf("%q\n", title)
			}

			fmt.Println("Finished processing all chats")
		},
	}
	return cmd
}
