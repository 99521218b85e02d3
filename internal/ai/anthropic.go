package ai

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strings"
)

const anthropicDefaultURL = "https://api.anthropic.com"

type AnthropicClient struct {
    http    *http.Client
    apiKey  string
    baseURL string
    model   string
}

// AnthropicOptions configures NewAnthropicClient. BaseURL and Model are optional.
type AnthropicOptions struct {
    APIKey     string
    BaseURL    string
    Model      string
    HTTPClient *http.Client
}

func NewAnthropicClient(opts AnthropicOptions) (*AnthropicClient, error) {
    if strings.TrimSpace(opts.APIKey) == "" {
        return nil, fmt.Errorf("anthropic: %w", ErrMissingKey)
    }
    hc := opts.HTTPClient
    if hc == nil { hc = &http.Client{} }
    base := strings.TrimRight(opts.BaseURL, "/")
    if base == "" { base = anthropicDefaultURL }
    model := opts.Model
    if model == "" { model = "claude-3-haiku-20240307" }
    return &AnthropicClient{http: hc, apiKey: opts.APIKey, baseURL: base, model: model}, nil
}

func (c *AnthropicClient) Name() string { return "anthropic" }

type anthropicMessage struct {
    Role    string `json:"role"`
    Content string `json:"content"`
}

type anthropicMsgReq struct {
    Model       string             `json:"model"`
    MaxTokens   int                `json:"max_tokens"`
    System      string             `json:"system,omitempty"`
    Temperature float32            `json:"temperature"`
    Messages    []anthropicMessage `json:"messages"`
}

type anthropicMsgResp struct {
    Model   string `json:"model"`
    Content []struct {
        Type string `json:"type"`
        Text string `json:"text"`
    } `json:"content"`
    Usage struct {
        InputTokens  int `json:"input_tokens"`
        OutputTokens int `json:"output_tokens"`
    } `json:"usage"`
}

func (c *AnthropicClient) Do(ctx context.Context, req Request) (Response, error) {
    model := req.Model
    if model == "" { model = c.model }
    maxTokens := req.MaxTokens
    if maxTokens <= 0 { maxTokens = 1024 }

    payload := anthropicMsgReq{
        Model:       model,
        MaxTokens:   maxTokens,
        System:      req.SystemPrompt,
        Temperature: req.Temperature,
        Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
    }
    body, err := json.Marshal(payload)
    if err != nil { return Response{}, fmt.Errorf("anthropic encode: %w", err) }

    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
    if err != nil { return Response{}, err }
    httpReq.Header.Set("x-api-key", c.apiKey)
    httpReq.Header.Set("anthropic-version", "2023-06-01")
    httpReq.Header.Set("Content-Type", "application/json")

    resp, err := c.http.Do(httpReq)
    if err != nil { return Response{}, fmt.Errorf("anthropic request: %w", err) }
    defer resp.Body.Close()
    if resp.StatusCode == http.StatusTooManyRequests { return Response{}, ErrRateLimited }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
        return Response{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(b), Provider: c.Name()}
    }

    var r anthropicMsgResp
    if err := json.NewDecoder(resp.Body).Decode(&r); err != nil { return Response{}, fmt.Errorf("anthropic decode: %w", err) }
    var text strings.Builder
    for _, part := range r.Content {
        if part.Type == "" || part.Type == "text" { text.WriteString(part.Text) }
    }
    if text.Len() == 0 { return Response{}, fmt.Errorf("anthropic: %w", ErrEmpty) }
    return Response{Text: text.String(), Model: r.Model, TokensIn: r.Usage.InputTokens, TokensOut: r.Usage.OutputTokens}, nil
}
