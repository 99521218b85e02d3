package refine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/local/ravianalyzer/internal/ai"
	"github.com/local/ravianalyzer/internal/logger"
	"github.com/local/ravianalyzer/internal/metrics"
)

// LLMOptions configures an LLMJudge.
type LLMOptions struct {
	Model string
	// Timeout bounds a single provider call. Zero leaves it to the client.
	Timeout time.Duration
	// RPS paces provider calls. Zero or negative disables pacing.
	RPS float64
}

// LLMJudge asks a text generation provider for a page judgment.
type LLMJudge struct {
	client  ai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewLLMJudge(client ai.Client, opts LLMOptions) *LLMJudge {
	j := &LLMJudge{client: client, model: opts.Model, timeout: opts.Timeout, log: logger.Component("refine")}
	if opts.RPS > 0 {
		j.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return j
}

func (j *LLMJudge) Judge(ctx context.Context, req PageRequest) (Judgment, error) {
	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return Judgment{}, fmt.Errorf("rate wait: %w", err)
		}
	}
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := j.client.Do(ctx, ai.Request{
		Model:        j.model,
		SystemPrompt: systemPrompt,
		Prompt:       BuildPrompt(req),
		MaxTokens:    512,
		JSONMode:     true,
	})
	dur := time.Since(start)
	if err != nil {
		result := "error"
		if ai.IsRateLimited(err) {
			result = "rate_limited"
		}
		metrics.ObserveProvider(j.client.Name(), j.model, result, dur)
		return Judgment{}, fmt.Errorf("%s page %d: %w", j.client.Name(), req.Page, err)
	}

	judgment, err := ParseJudgment(resp.Text)
	if err != nil {
		metrics.ObserveProvider(j.client.Name(), j.model, "malformed", dur)
		return Judgment{}, fmt.Errorf("%s page %d: %w", j.client.Name(), req.Page, err)
	}
	metrics.ObserveProvider(j.client.Name(), j.model, "ok", dur)
	j.log.Debug().
		Str("engine", j.client.Name()).
		Int("page", req.Page).
		Bool("found", judgment.Found).
		Int("tokens_in", resp.TokensIn).
		Int("tokens_out", resp.TokensOut).
		Msg("page judged")
	return judgment, nil
}
