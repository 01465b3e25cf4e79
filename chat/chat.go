package chat

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/cli"
	"github.com/plume-cli/plume/internal/configuration"
	"github.com/plume-cli/plume/internal/llm"
	"github.com/plume-cli/plume/internal/model"
	"github.com/plume-cli/plume/internal/session"
)

// streamFlushInterval bounds data loss on crash: while streaming, the partial
// assistant message is flushed this often in addition to the final flush.
const streamFlushInterval = 2 * time.Second

// NewCmd instantiates and returns the chat command.
func NewCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		Model    string
		Files    []string
		ShowCost bool
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Back and forth chat",
		Long:  "Back and forth chat",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			// Instantiate store.
			s, err := store.New(config.Chat.Directory)
			cobra.CheckErr(err)

			// Set the model.
			m, err := model.Parse(opts.Model)
			cobra.CheckErr(err)

			client := llm.NewClient(config.OpenaiAPIKey, config.OpenaiAPIHost)
			titles := session.NewTitleGenerator(client)
			manager := session.NewManager(s, titles)
			manager.Start("chat", m.ID)

			// Headers.
			cli.Title("PLUME CHAT [%s]", m.ID)

			// Attach files.
			for _, path := range opts.Files {
				content, err := os.ReadFile(path)
				cobra.CheckErr(err)
				cobra.CheckErr(manager.AttachFile(session.FileContext{Path: path, Content: string(content)}))
				cli.UserCommand("attached file: %s\n", path)
			}

			ctx := context.Background()
			var totalCost decimal.Decimal
			for {
				// Query user for prompt.
				text, err := cli.PromptUser()
				if err != nil {
					return
				}
				if strings.HasPrefix(text, ":") {
					if quit := runSessionCommand(manager, text); quit {
						return
					}
					continue
				}
				if strings.TrimSpace(text) == "" {
					continue
				}

				// The first user message of a session flushes immediately, so
				// a record exists before any assistant output arrives.
				cobra.CheckErr(manager.AppendUser(ctx, text))

				// Quick feedback so user knows the query has been submitted.
				cli.AIOutput("AI: ")

				streamCtx, cancel := context.WithTimeout(ctx, time.Duration(config.RequestTimeout)*time.Second)
				request := buildRequest(manager)
				if opts.ShowCost {
					requestTokens, requestCost := m.CalculateRequestCost(manager.Messages()...)
					totalCost = totalCost.Add(requestCost)
					cli.CostInfo("Request contains ~%d tokens costing $%s\n", requestTokens, requestCost.String())
				}

				stream, err := client.CreateChatStream(streamCtx, request)
				if err != nil {
					cancel()
					cli.Error("\n%v\n", err)
					continue
				}
				streamDone := make(chan struct{})
				tokenChannel, errorChannel := pipeStream(stream, streamDone)

				// Process the stream. An interrupt kills the stream but keeps
				// whatever partial content has arrived so far.
				interruptSignalChannel := make(chan os.Signal, 1)
				signal.Notify(interruptSignalChannel, os.Interrupt)
				flushTicker := time.NewTicker(streamFlushInterval)
				for {
					streamEnded := false
					select {
					case <-interruptSignalChannel:
						cli.UserCommand("#Interrupted")
						streamEnded = true
					case token := <-tokenChannel:
						cli.AIOutput("%s", token)
						cobra.CheckErr(manager.AppendAssistantDelta(token))
					case <-flushTicker.C:
						cobra.CheckErr(manager.Flush())
					case err := <-errorChannel:
						if !errors.Is(err, io.EOF) {
							cli.Error("\n%v\n", err)
						}
						streamEnded = true
					}
					if streamEnded {
						signal.Stop(interruptSignalChannel)
						break
					}
				}
				flushTicker.Stop()
				close(streamDone)
				stream.Close()
				cancel()
				cli.AIOutput("\n")

				// Final flush is mandatory: no token loss on cancel.
				cobra.CheckErr(manager.Flush())

				if opts.ShowCost {
					responseTokens, responseCost := m.CalculateResponseCost(manager.Messages()[len(manager.Messages())-1])
					totalCost = totalCost.Add(responseCost)
					cli.CostInfo("Response contains ~%d tokens costing $%s\n", responseTokens, responseCost.String())
					cli.CostInfo("Total cost so far $%s\n", totalCost.String())
				}
			}
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", config.Chat.DefaultModel, "specify a model")
	cmd.Flags().StringSliceVarP(&opts.Files, "file", "f", nil, "specify file content to inject into the context")
	cmd.Flags().BoolVarP(&opts.ShowCost, "show-cost", "c", false, "Show cost")

	cmd.AddCommand(newListCmd(config))
	cmd.AddCommand(newSearchCmd(config))
	cmd.AddCommand(newShowCmd(config))
	cmd.AddCommand(newDeleteCmd(config))
	cmd.AddCommand(newGenerateTitlesCmd(config))
	cmd.AddCommand(newArchiveCmd(config))
	return cmd
}

// runSessionCommand handles the editing commands of the interactive loop.
// Returns true when the session should end.
func runSessionCommand(manager *session.Manager, text string) bool {
	fields := strings.Fields(text)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":edit":
		if len(fields) != 2 {
			cli.Error("usage: :edit <message index>\n")
			return false
		}
		index, err := strconv.Atoi(fields[1])
		if err != nil {
			cli.Error("invalid index (%s)\n", fields[1])
			return false
		}
		if err := manager.TruncateAt(index); err != nil {
			cli.Error("%v\n", err)
			return false
		}
		cli.UserCommand("truncated conversation at message %d (attachments cleared, :restore to undo)\n", index)
		flushQuietly(manager)
	case ":restore":
		if err := manager.Restore(); err != nil {
			cli.Error("%v\n", err)
			return false
		}
		cli.UserCommand("restored truncated messages\n")
		flushQuietly(manager)
	case ":title":
		if len(fields) < 2 {
			cli.Error("usage: :title <new title>\n")
			return false
		}
		if err := manager.SetTitle(strings.Join(fields[1:], " ")); err != nil {
			cli.Error("%v\n", err)
			return false
		}
		flushQuietly(manager)
	case ":new":
		manager.Start("chat", manager.Model())
		cli.UserCommand("started a new conversation\n")
	default:
		cli.Error("unknown command (%s)\n", fields[0])
	}
	return false
}

func flushQuietly(manager *session.Manager) {
	// Nothing durable exists before the first user message.
	if manager.Session() == nil || manager.Session().Path == "" {
		return
	}
	if err := manager.Flush(); err != nil {
		cli.Error("%v\n", err)
	}
}
