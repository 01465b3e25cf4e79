package chat

import (
	"fmt"

	"github.com/plume-cli/plume/chat/store"
	"github.com/plume-cli/plume/internal/llm"
	"github.com/plume-cli/plume/internal/session"
)

// pipeStream forwards stream fragments onto channels. Closing done releases
// the goroutine even when the consumer stops receiving mid-stream, as an
// interrupt does.
func pipeStream(stream *llm.Stream, done <-chan struct{}) (chan string, chan error) {
	tokenChannel := make(chan string)
	errorChannel := make(chan error, 1)
	go func() {
		for {
			fragment, err := stream.Recv()
			if err != nil {
				errorChannel <- err
				return
			}
			select {
			case tokenChannel <- fragment:
			case <-done:
				return
			}
		}
	}()
	return tokenChannel, errorChannel
}

// buildRequest assembles the wire messages for the active conversation:
// system prompt, attached file snapshots, then the conversation so far.
func buildRequest(manager *session.Manager) *llm.CreateChatStreamRequest {
	messages := []*llm.Message{{Role: store.RoleSystem, Content: defaultPrompt}}
	for _, fileContext := range manager.Session().FileContexts {
		messages = append(messages, &llm.Message{
			Role:    store.RoleSystem,
			Content: fmt.Sprintf("file %s: `%s`", fileContext.Path, fileContext.Content),
		})
	}
	for _, message := range manager.Messages() {
		messages = append(messages, &llm.Message{Role: message.Role, Content: message.Content})
	}
	return &llm.CreateChatStreamRequest{
		Model:    manager.Model(),
		Messages: messages,
	}
}
