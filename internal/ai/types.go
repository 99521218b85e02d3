package ai

import (
    "context"
    "errors"
    "fmt"
)

// Request is a single-turn text generation request.
type Request struct {
    Model        string
    SystemPrompt string
    Prompt       string
    MaxTokens    int
    Temperature  float32
    // JSONMode asks the provider for a JSON object response where supported.
    JSONMode     bool
}

type Response struct {
    Text      string
    Model     string
    TokensIn  int
    TokensOut int
}

// Client interface for providers like OpenAI, Anthropic.
type Client interface {
    Name() string
    Do(ctx context.Context, req Request) (Response, error)
}

var (
    ErrRateLimited = errors.New("rate_limited")
    ErrMissingKey  = errors.New("missing api key")
    ErrEmpty       = errors.New("empty response")
)

// HTTPError represents a non-2xx status from a provider.
type HTTPError struct {
    StatusCode int
    Body       string
    Provider   string
}

func (e *HTTPError) Error() string {
    return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}

func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
