// Package refine re-derives page judgments through an external text
// generation service and decides whether they supersede keyword results.
package refine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/local/ravianalyzer/internal/ravi"
)

// PageRequest is one page handed to a Judge.
type PageRequest struct {
	Book string
	Page int
	Text string
}

// Judgment is the structured verdict for one page.
type Judgment struct {
	Found   bool        `json:"found"`
	Status  ravi.Status `json:"status"`
	Context string      `json:"context"`
}

// Judge classifies a single page.
type Judge interface {
	Judge(ctx context.Context, req PageRequest) (Judgment, error)
}

// JudgeFunc adapts a function into a Judge.
type JudgeFunc func(ctx context.Context, req PageRequest) (Judgment, error)

func (f JudgeFunc) Judge(ctx context.Context, req PageRequest) (Judgment, error) { return f(ctx, req) }

// CachedJudge memoises successful judgments by the prompt sent for a page,
// so book, page and text all take part in the key. Errors are not cached.
type CachedJudge struct {
	next  Judge
	cache *gocache.Cache
}

// NewCachedJudge wraps next with an in-memory cache holding entries for ttl.
func NewCachedJudge(next Judge, ttl time.Duration) *CachedJudge {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedJudge{next: next, cache: gocache.New(ttl, 2*ttl)}
}

func (c *CachedJudge) Judge(ctx context.Context, req PageRequest) (Judgment, error) {
	key := promptKey(req)
	if v, ok := c.cache.Get(key); ok {
		return v.(Judgment), nil
	}
	j, err := c.next.Judge(ctx, req)
	if err != nil {
		return Judgment{}, err
	}
	c.cache.SetDefault(key, j)
	return j, nil
}

func promptKey(req PageRequest) string {
	sum := sha256.Sum256([]byte(BuildPrompt(req)))
	return hex.EncodeToString(sum[:])
}
