package llm

import "context"

// Message is one turn of a conversation, in wire form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CreateChatStreamRequest holds the parameters of a streaming chat request.
type CreateChatStreamRequest struct {
	Model    string
	Messages []*Message
}

// Completer issues a one-shot, non-streaming text generation.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}
