package statuscheck

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    awscfg "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/service/s3"
)

// Pinger models the minimal Redis capability we need for status checks.
type Pinger interface {
    Ping(ctx context.Context) error
}

// BucketHeader is the subset of the S3 client used to probe the archive bucket.
type BucketHeader interface {
    HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Checker aggregates health checks for the optional backends.
type Checker struct {
    redis      Pinger
    bucket     string
    region     string
    s3         BucketHeader
    httpClient *http.Client
    engine     string
    apiKey     string
    baseURL    string
    decoders   []string
}

// Options configures the Checker.
type Options struct {
    Redis      Pinger
    S3Bucket   string
    S3Region   string
    S3         BucketHeader
    HTTPClient *http.Client

    // Refinement engine ("openai"|"anthropic"), its key and optional base URL.
    Engine  string
    APIKey  string
    BaseURL string

    // Decoders lists the PDF decoders compiled in, in fallback order.
    Decoders []string
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses for /status.
type Summary struct {
    Redis   Status `json:"redis"`
    S3      Status `json:"s3"`
    Refine  Status `json:"refine"`
    Decoder Status `json:"decoder"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    client := opts.HTTPClient
    if client == nil {
        client = &http.Client{Timeout: 5 * time.Second}
    }
    return &Checker{
        redis:      opts.Redis,
        bucket:     opts.S3Bucket,
        region:     opts.S3Region,
        s3:         opts.S3,
        httpClient: client,
        engine:     strings.ToLower(strings.TrimSpace(opts.Engine)),
        apiKey:     strings.TrimSpace(opts.APIKey),
        baseURL:    strings.TrimRight(opts.BaseURL, "/"),
        decoders:   opts.Decoders,
    }
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    return Summary{
        Redis:   c.checkRedis(ctx),
        S3:      c.checkS3(ctx),
        Refine:  c.checkRefine(ctx),
        Decoder: c.checkDecoder(),
    }
}

func (c *Checker) checkRedis(ctx context.Context) Status {
    if c.redis == nil {
        return Status{OK: false, Message: "Not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := c.redis.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
    if c.bucket == "" {
        return Status{OK: false, Message: "Bucket not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    cli := c.s3
    if cli == nil {
        var loadOpts []func(*awscfg.LoadOptions) error
        if c.region != "" {
            loadOpts = append(loadOpts, awscfg.WithRegion(c.region))
        }
        cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
        if err != nil {
            return Status{OK: false, Message: trimError(err)}
        }
        cli = s3.NewFromConfig(cfg)
    }
    if _, err := cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.bucket}); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

// checkRefine probes the models endpoint of the configured engine.
func (c *Checker) checkRefine(ctx context.Context) Status {
    if c.apiKey == "" {
        return Status{OK: false, Message: "Disabled (API key missing)"}
    }
    var req *http.Request
    switch c.engine {
    case "anthropic":
        base := c.baseURL
        if base == "" { base = "https://api.anthropic.com" }
        req, _ = http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/models", nil)
        req.Header.Set("x-api-key", c.apiKey)
        req.Header.Set("anthropic-version", "2023-06-01")
    case "", "openai":
        base := c.baseURL
        if base == "" { base = "https://api.openai.com/v1" }
        req, _ = http.NewRequestWithContext(ctx, http.MethodGet, base+"/models?limit=1", nil)
        req.Header.Set("Authorization", "Bearer "+c.apiKey)
    default:
        return Status{OK: false, Message: fmt.Sprintf("Unknown engine %q", c.engine)}
    }
    resp, err := c.httpClient.Do(req)
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 400 {
        return Status{OK: false, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
    }
    return Status{OK: true, Message: "Available"}
}

func (c *Checker) checkDecoder() Status {
    if len(c.decoders) == 0 {
        return Status{OK: false, Message: "No decoders"}
    }
    return Status{OK: true, Message: "Embedded: " + strings.Join(c.decoders, ", ")}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
