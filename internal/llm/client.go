package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/plume-cli/plume/internal/debug"
)

// Client talks to an OpenAI-compatible chat completion API.
type Client struct {
	apiKey     string
	apiHost    string
	httpClient *http.Client
	openai     *openai.Client
}

// NewClient instantiates and returns a new client.
func NewClient(apiKey, apiHost string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = apiHost
	return &Client{
		apiKey:     apiKey,
		apiHost:    strings.TrimSuffix(apiHost, "/"),
		httpClient: &http.Client{},
		openai:     openai.NewClientWithConfig(config),
	}
}

type chatCompletionPayload struct {
	Model    string     `json:"model"`
	Messages []*Message `json:"messages"`
	Stream   bool       `json:"stream"`
}

// CreateChatStream opens a streaming chat completion. The response status is
// classified before any decoding: a non-success response or a missing body
// yields a typed *Error and no stream.
func (c *Client) CreateChatStream(ctx context.Context, request *CreateChatStreamRequest) (*Stream, error) {
	payload := &chatCompletionPayload{
		Model:    request.Model,
		Messages: request.Messages,
		Stream:   true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request payload")
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiHost+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "text/event-stream")

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, NetworkError(err)
	}
	if classified := ClassifyResponse(response); classified != nil {
		return nil, classified
	}

	streamID := uuid.New().String()[:8]
	debug.GetLogger().Debug("opened chat stream", "stream_id", streamID, "model", request.Model)
	return NewStream(response.Body), nil
}

// Complete issues a one-shot chat completion and returns the assistant text.
// Used for title summarization.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: 50,
	}
	response, err := c.openai.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", translateOpenAIError(err)
	}
	if len(response.Choices) == 0 {
		return "", &Error{Kind: ErrorKindAPI, StatusCode: http.StatusOK, Body: "completion returned no choice"}
	}
	return response.Choices[0].Message.Content, nil
}

// translateOpenAIError folds go-openai errors into our classified kinds.
func translateOpenAIError(err error) error {
	var apiError *openai.APIError
	if errors.As(err, &apiError) {
		return ClassifyStatus(apiError.HTTPStatusCode, apiError.Message)
	}
	var requestError *openai.RequestError
	if errors.As(err, &requestError) {
		return ClassifyStatus(requestError.HTTPStatusCode, requestError.Error())
	}
	return NetworkError(err)
}
