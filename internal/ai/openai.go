package ai

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
    client *openai.Client
    model  string
}

// OpenAIOptions configures NewOpenAIClient. BaseURL and Model are optional.
type OpenAIOptions struct {
    APIKey     string
    BaseURL    string
    Model      string
    HTTPClient *http.Client
}

func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
    if strings.TrimSpace(opts.APIKey) == "" {
        return nil, fmt.Errorf("openai: %w", ErrMissingKey)
    }
    cfg := openai.DefaultConfig(opts.APIKey)
    if opts.BaseURL != "" {
        cfg.BaseURL = opts.BaseURL
    }
    if opts.HTTPClient != nil {
        cfg.HTTPClient = opts.HTTPClient
    }
    model := opts.Model
    if model == "" {
        model = openai.GPT4oMini
    }
    return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Do(ctx context.Context, req Request) (Response, error) {
    model := req.Model
    if model == "" {
        model = c.model
    }

    var messages []openai.ChatCompletionMessage
    if req.SystemPrompt != "" {
        messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
    }
    messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

    payload := openai.ChatCompletionRequest{
        Model:       model,
        Messages:    messages,
        Temperature: req.Temperature,
        MaxTokens:   req.MaxTokens,
    }
    if req.JSONMode {
        payload.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
    }

    resp, err := c.client.CreateChatCompletion(ctx, payload)
    if err != nil {
        var apiErr *openai.APIError
        if errors.As(err, &apiErr) {
            if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
                return Response{}, ErrRateLimited
            }
            return Response{}, &HTTPError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Provider: c.Name()}
        }
        var reqErr *openai.RequestError
        if errors.As(err, &reqErr) {
            if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
                return Response{}, ErrRateLimited
            }
            return Response{}, &HTTPError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error(), Provider: c.Name()}
        }
        return Response{}, fmt.Errorf("openai request: %w", err)
    }
    if len(resp.Choices) == 0 {
        return Response{}, fmt.Errorf("openai: %w", ErrEmpty)
    }

    return Response{
        Text:      resp.Choices[0].Message.Content,
        Model:     resp.Model,
        TokensIn:  resp.Usage.PromptTokens,
        TokensOut: resp.Usage.CompletionTokens,
    }, nil
}
