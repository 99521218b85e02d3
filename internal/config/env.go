package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// RefineConfig configures the optional LLM refinement stage.
type RefineConfig struct {
    Engine         string // "openai"|"anthropic"
    OpenAIKey      string
    OpenAIURL      string
    OpenAIModel    string
    AnthropicKey   string
    AnthropicURL   string
    AnthropicModel string
    Timeout        time.Duration
    RPS            float64
    CacheTTL       time.Duration
}

// APIKey returns the key of the selected engine.
func (r RefineConfig) APIKey() string {
    if r.Engine == "anthropic" { return r.AnthropicKey }
    return r.OpenAIKey
}

// Enabled reports whether refinement has credentials for its engine.
func (r RefineConfig) Enabled() bool { return strings.TrimSpace(r.APIKey()) != "" }

// StoreConfig configures the optional Redis result store.
type StoreConfig struct {
    RedisURL string
    TTL      time.Duration
}

// ArchiveConfig configures the optional S3 upload archive.
type ArchiveConfig struct {
    Bucket          string
    Prefix          string
    Region          string
    AccessKeyID     string
    SecretAccessKey string
    Passphrase      string
}

// ServerConfig holds HTTP and UI settings.
type ServerConfig struct {
    Port        string
    MaxUploadMB int
    WebUsername string
    WebPassword string
}

// Config is the top-level configuration.
type Config struct {
    Logging LoggingConfig
    Axiom   AxiomConfig
    Refine  RefineConfig
    Store   StoreConfig
    Archive ArchiveConfig
    Server  ServerConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/ravianalyzer.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_ravianalyzer",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.Refine = RefineConfig{
        Engine:         strings.ToLower(getEnv("REFINE_ENGINE", "openai")),
        OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
        OpenAIURL:      getEnv("OPENAI_BASE_URL", ""),
        OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
        AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
        AnthropicURL:   getEnv("ANTHROPIC_BASE_URL", ""),
        AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
        Timeout:        parseDuration(getEnv("REFINE_TIMEOUT", ""), 0),
        RPS:            parseFloat(getEnv("REFINE_RPS", "0"), 0),
        CacheTTL:       parseDuration(getEnv("REFINE_CACHE_TTL", "1h"), time.Hour),
    }

    cfg.Store = StoreConfig{
        RedisURL: getEnv("REDIS_URL", ""),
        TTL:      parseDuration(getEnv("RESULT_TTL", "24h"), 24*time.Hour),
    }

    cfg.Archive = ArchiveConfig{
        Bucket:          getEnv("ARCHIVE_S3_BUCKET", ""),
        Prefix:          getEnv("ARCHIVE_S3_PREFIX", ""),
        Region:          getEnv("AWS_REGION", ""),
        AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
        SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
        Passphrase:      getEnv("ARCHIVE_PASSPHRASE", ""),
    }

    cfg.Server = ServerConfig{
        Port:        getEnv("PORT", "8080"),
        MaxUploadMB: parseInt(getEnv("MAX_UPLOAD_MB", "64"), 64),
        WebUsername: getEnv("WEB_USERNAME", ""),
        WebPassword: getEnv("WEB_PASSWORD", ""),
    }
    if cfg.Server.MaxUploadMB <= 0 { cfg.Server.MaxUploadMB = 64 }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
