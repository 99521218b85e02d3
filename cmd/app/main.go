package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"

    "github.com/local/ravianalyzer/internal/ai"
    cfgpkg "github.com/local/ravianalyzer/internal/config"
    "github.com/local/ravianalyzer/internal/filetype"
    logpkg "github.com/local/ravianalyzer/internal/logger"
    "github.com/local/ravianalyzer/internal/metrics"
    "github.com/local/ravianalyzer/internal/mupdf"
    "github.com/local/ravianalyzer/internal/orchestrator"
    "github.com/local/ravianalyzer/internal/ravi"
    "github.com/local/ravianalyzer/internal/refine"
    "github.com/local/ravianalyzer/internal/statuscheck"
    "github.com/local/ravianalyzer/internal/storage"
    "github.com/local/ravianalyzer/internal/store"
    web "github.com/local/ravianalyzer/internal/web"
)

func main() {
    // .env is optional
    _ = godotenv.Load()
    cfg := cfgpkg.FromEnv()

    if err := logpkg.Init(logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        MaxSizeMB: cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress: cfg.Logging.Compress,
        SendToAxiom: cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey: cfg.Axiom.APIKey,
        AxiomOrgID: cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush: cfg.Axiom.FlushInterval,
    }); err != nil {
        fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
    }
    defer logpkg.Close()
    metrics.Init()

    deps := orchestrator.Dependencies{
        Extractor:      mupdf.Default(),
        Detector:       filetype.New(),
        Classifier:     ravi.Default(),
        Refiner:        newRefiner(cfg.Refine),
        MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
    }

    statusOpts := statuscheck.Options{
        S3Bucket: cfg.Archive.Bucket,
        S3Region: cfg.Archive.Region,
        Engine:   cfg.Refine.Engine,
        APIKey:   cfg.Refine.APIKey(),
        BaseURL:  refineBaseURL(cfg.Refine),
        Decoders: []string{"mupdf", "pdf"},
    }

    // Result store (optional)
    if cfg.Store.RedisURL != "" {
        rs, err := store.NewRedisResults(cfg.Store.RedisURL, cfg.Store.TTL)
        if err != nil {
            log.Warn().Err(err).Msg("result store disabled")
        } else {
            defer rs.Close()
            deps.Results = orchestrator.NewResultsAdapter(rs)
            statusOpts.Redis = rs
        }
    }

    // Upload archive (optional)
    if cfg.Archive.Bucket != "" {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        arch, err := storage.NewArchive(ctx, storage.Options{
            Bucket:          cfg.Archive.Bucket,
            Prefix:          cfg.Archive.Prefix,
            Region:          cfg.Archive.Region,
            AccessKeyID:     cfg.Archive.AccessKeyID,
            SecretAccessKey: cfg.Archive.SecretAccessKey,
            Passphrase:      cfg.Archive.Passphrase,
        })
        cancel()
        if err != nil {
            log.Warn().Err(err).Msg("upload archive disabled")
        } else {
            deps.Archive = arch
        }
    }
    deps.Status = statuscheck.New(statusOpts)

    orch := orchestrator.New(deps)
    api := http.NewServeMux()
    orch.RegisterRoutes(api)

    ui := web.New(web.Options{Username: cfg.Server.WebUsername, Password: cfg.Server.WebPassword})

    mux := http.NewServeMux()
    mux.Handle("/api/", ui.Protect(api))
    mux.Handle("/health", api)
    mux.Handle("/status", api)
    mux.Handle("/metrics", metrics.Handler())
    ui.RegisterRoutes(mux)

    srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

    go func(){
        log.Info().Str("engine", cfg.Refine.Engine).Bool("refine", cfg.Refine.Enabled()).
            Bool("auth", ui.AuthEnabled()).Msgf("HTTP server listening on :%s", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
    fmt.Println("shutdown complete")
}

// newRefiner builds the refinement stage for the configured engine. A
// missing key disables refinement.
func newRefiner(rc cfgpkg.RefineConfig) *refine.Refiner {
    if !rc.Enabled() {
        log.Info().Str("engine", rc.Engine).Msg("refinement disabled: no API key")
        return refine.New(nil)
    }
    var (
        client ai.Client
        model  string
        err    error
    )
    switch rc.Engine {
    case "anthropic":
        model = rc.AnthropicModel
        client, err = ai.NewAnthropicClient(ai.AnthropicOptions{APIKey: rc.AnthropicKey, BaseURL: rc.AnthropicURL, Model: model})
    case "openai":
        model = rc.OpenAIModel
        client, err = ai.NewOpenAIClient(ai.OpenAIOptions{APIKey: rc.OpenAIKey, BaseURL: rc.OpenAIURL, Model: model})
    default:
        err = fmt.Errorf("unknown refine engine %q", rc.Engine)
    }
    if err != nil {
        log.Warn().Err(err).Msg("refinement disabled")
        return refine.New(nil)
    }
    judge := refine.NewLLMJudge(client, refine.LLMOptions{Model: model, Timeout: rc.Timeout, RPS: rc.RPS})
    return refine.New(refine.NewCachedJudge(judge, rc.CacheTTL))
}

func refineBaseURL(rc cfgpkg.RefineConfig) string {
    if rc.Engine == "anthropic" { return rc.AnthropicURL }
    return rc.OpenAIURL
}
