package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys: VECTORDB_CHUNK_SIZE -> chunk_size.
const EnvPrefix = "VECTORDB_"

// DefaultConfigFile is read when --config is not given. A missing file is fine.
const DefaultConfigFile = "vectordb.yaml"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	DatabaseURL      string        `koanf:"database_url"`
	DatabasePassword string        `koanf:"database_password"`
	TableName        string        `koanf:"db_table"`
	DatabaseTimeout  time.Duration `koanf:"db_timeout"`
	DatabaseRetries  int           `koanf:"db_max_retries"`
	AutoMigrate      bool          `koanf:"db_auto_migrate"`
	SslCertPath      string        `koanf:"ssl_cert_path"`

	EmbedProvider    string        `koanf:"embed_provider"`
	OllamaURL        string        `koanf:"ollama_url"`
	EmbedModel       string        `koanf:"embed_model"`
	EmbedDim         int           `koanf:"embed_dim"`
	EmbedTimeout     time.Duration `koanf:"embed_timeout"`
	EmbedMaxRetries  int           `koanf:"embed_max_retries"`
	EmbedRetryDelay  time.Duration `koanf:"embed_retry_delay"`
	EmbedConcurrency int           `koanf:"embed_concurrency"`
	EmbedRateLimit   float64       `koanf:"embed_rate_limit"`
	GeminiAPIKey     string        `koanf:"gemini_api_key"`

	ChunkSize           int      `koanf:"chunk_size"`
	ChunkOverlap        int      `koanf:"chunk_overlap"`
	MaxFileSizeMB       int      `koanf:"max_file_size_mb"`
	SupportedExtensions []string `koanf:"supported_extensions"`
	IngestConcurrency   int      `koanf:"ingest_concurrency"`

	ArchiveBucket string `koanf:"archive_bucket"`
	ArchivePrefix string `koanf:"archive_prefix"`
	AwsRegion     string `koanf:"aws_region"`
	AwsAccessKey  string `koanf:"aws_access_key"`
	AwsSecretKey  string `koanf:"aws_secret_key"`

	Port           string   `koanf:"port"`
	JWTSecret      string   `koanf:"api_jwt_secret"`
	AllowedOrigins []string `koanf:"allowed_origins"`

	LogLevel string `koanf:"log_level"`
	LogJSON  bool   `koanf:"log_json"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		TableName:           "documents",
		DatabaseTimeout:     30 * time.Second,
		DatabaseRetries:     3,
		AutoMigrate:         true,
		EmbedProvider:       "ollama",
		OllamaURL:           "http://localhost:11434",
		EmbedModel:          "nomic-embed-text",
		EmbedDim:            768,
		EmbedTimeout:        60 * time.Second,
		EmbedMaxRetries:     3,
		EmbedRetryDelay:     time.Second,
		EmbedConcurrency:    8,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		MaxFileSizeMB:       10,
		SupportedExtensions: []string{".txt"},
		IngestConcurrency:   4,
		ArchivePrefix:       "raw",
		AwsRegion:           "us-east-2",
		Port:                "8080",
		AllowedOrigins:      []string{"http://localhost:5173"},
		LogLevel:            "warn",
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// at path, a .env file in the working directory and VECTORDB_* variables,
// in that order of precedence (last wins). The result is not validated.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.SupportedExtensions = normalizeExtensions(cfg.SupportedExtensions)

	return cfg, nil
}

// Validate checks that the configuration can drive an ingestion run.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return invalid("database_url", "is required")
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return invalid("database_url", err.Error())
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return invalid("database_url", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if _, hasPassword := u.User.Password(); !hasPassword && c.DatabasePassword == "" {
		return invalid("database_password", "a password is required in database_url or database_password")
	}
	if c.TableName == "" {
		return invalid("db_table", "is required")
	}
	if c.DatabaseTimeout <= 0 {
		return invalid("db_timeout", "must be positive")
	}
	if c.DatabaseRetries < 0 {
		return invalid("db_max_retries", "must not be negative")
	}

	switch c.EmbedProvider {
	case "ollama":
		ou, err := url.Parse(c.OllamaURL)
		if err != nil || (ou.Scheme != "http" && ou.Scheme != "https") || ou.Host == "" {
			return invalid("ollama_url", fmt.Sprintf("%q is not an http(s) URL", c.OllamaURL))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return invalid("gemini_api_key", "is required when embed_provider is gemini")
		}
	default:
		return invalid("embed_provider", fmt.Sprintf("unknown provider %q: must be ollama or gemini", c.EmbedProvider))
	}
	if c.EmbedModel == "" {
		return invalid("embed_model", "is required")
	}
	if c.EmbedDim < 0 {
		return invalid("embed_dim", "must not be negative")
	}
	if c.EmbedTimeout <= 0 {
		return invalid("embed_timeout", "must be positive")
	}
	if c.EmbedMaxRetries < 0 {
		return invalid("embed_max_retries", "must not be negative")
	}
	if c.EmbedConcurrency < 0 {
		return invalid("embed_concurrency", "must not be negative")
	}
	if c.EmbedRateLimit < 0 {
		return invalid("embed_rate_limit", "must not be negative")
	}

	if c.ChunkSize <= 0 {
		return invalid("chunk_size", "must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return invalid("chunk_overlap", fmt.Sprintf("must be in [0, %d)", c.ChunkSize))
	}
	if c.MaxFileSizeMB < 1 {
		return invalid("max_file_size_mb", "must be at least 1")
	}
	if len(c.SupportedExtensions) == 0 {
		return invalid("supported_extensions", "at least one extension is required")
	}
	if c.IngestConcurrency < 0 {
		return invalid("ingest_concurrency", "must not be negative")
	}
	if c.ArchiveBucket != "" && c.AwsRegion == "" {
		return invalid("aws_region", "is required when archive_bucket is set")
	}
	return nil
}

func invalid(key, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, key, msg)
}

// DSN returns the connection string handed to the pgx driver: the configured
// URL with database_password filled in and TLS verification switched on when
// a root certificate is configured.
func (c *Config) DSN() (string, error) {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid database_url: %w", err)
	}
	if c.DatabasePassword != "" {
		user := ""
		if u.User != nil {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, c.DatabasePassword)
	}
	if c.SslCertPath != "" {
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", c.SslCertPath)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// MaxFileSizeBytes is the upper bound on a single ingested file.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// ArchiveEnabled reports whether raw files are copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// Redacted returns a copy safe to print: secrets are masked and the password
// embedded in the database URL is replaced.
func (c *Config) Redacted() Config {
	out := *c
	out.SupportedExtensions = append([]string(nil), c.SupportedExtensions...)
	out.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	if u, err := url.Parse(c.DatabaseURL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
			out.DatabaseURL = u.String()
		}
	}
	out.DatabasePassword = mask(c.DatabasePassword)
	out.GeminiAPIKey = mask(c.GeminiAPIKey)
	out.AwsAccessKey = mask(c.AwsAccessKey)
	out.AwsSecretKey = mask(c.AwsSecretKey)
	out.JWTSecret = mask(c.JWTSecret)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
