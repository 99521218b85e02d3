package orchestrator

import (
    "context"
    "encoding/json"
    "fmt"

    "github.com/local/ravianalyzer/internal/store"
)

type redisResultsAdapter struct { s *store.RedisResults }

// NewResultsAdapter stores reports as JSON in Redis.
func NewResultsAdapter(s *store.RedisResults) ResultStore { return &redisResultsAdapter{s: s} }

func (a *redisResultsAdapter) Save(ctx context.Context, rep Report) error {
    b, err := json.Marshal(rep)
    if err != nil { return fmt.Errorf("encode report: %w", err) }
    return a.s.Save(ctx, rep.ID, b, rep.CreatedAt)
}

func (a *redisResultsAdapter) Load(ctx context.Context, id string) (Report, error) {
    b, err := a.s.Load(ctx, id)
    if err != nil { return Report{}, err }
    var rep Report
    if err := json.Unmarshal(b, &rep); err != nil { return Report{}, fmt.Errorf("decode report %s: %w", id, err) }
    return rep, nil
}

func (a *redisResultsAdapter) Recent(ctx context.Context, n int) ([]string, error) {
    return a.s.Recent(ctx, n)
}
