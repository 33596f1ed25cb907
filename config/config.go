package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrNoGenerationCredentials = errors.New("no generation credentials configured")
	ErrUnknownStorageDriver    = errors.New("unknown storage driver")
	ErrUnknownVectorDriver     = errors.New("unknown vector driver")
	ErrUnknownLLMBackend       = errors.New("unknown llm backend")
)

type Server struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8787"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost,http://127.0.0.1"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Session struct {
	CookieName   string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"alumglass_anon_session"`
	MaxAge       time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"720h"`
	SecureCookie bool          `yaml:"secure_cookie" env:"SESSION_SECURE_COOKIE" env-default:"true"`
	HistoryLimit int           `yaml:"history_limit" env:"CHAT_HISTORY_LIMIT" env-default:"8"`
}

type Redis struct {
	Endpoint string `yaml:"endpoint" env:"REDIS_ENDPOINT" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"chat_history.db"`
}

type Storage struct {
	Driver     string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	MessageTTL time.Duration `yaml:"message_ttl" env:"STORAGE_MESSAGE_TTL" env-default:"720h"`
	Redis      Redis         `yaml:"redis"`
	SQLite     SQLite        `yaml:"sqlite"`
}

type LLM struct {
	Backend         string        `yaml:"backend" env:"LLM_BACKEND" env-default:"gemini"`
	BaseURL         string        `yaml:"base_url" env:"LLM_BASE_URL"`
	GenerationModel string        `yaml:"generation_model" env:"LLM_GENERATION_MODEL" env-default:"gemini-2.5-pro"`
	EmbeddingModel  string        `yaml:"embedding_model" env:"LLM_EMBEDDING_MODEL" env-default:"text-embedding-004"`
	Temperature     float32       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.4"`
	Timeout         time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`
	// GenerationKeys are tried in declared order. Each entry is "name:key" or a bare key.
	GenerationKeys []string      `yaml:"generation_keys" env:"GENERATION_API_KEYS" env-separator:","`
	EmbeddingKey   string        `yaml:"embedding_key" env:"EMBEDDING_API_KEY"`
	MaxAttempts    int           `yaml:"max_attempts" env:"LLM_MAX_ATTEMPTS" env-default:"5"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" env:"LLM_RETRY_BACKOFF" env-default:"800ms"`
}

type Astra struct {
	Endpoint   string `yaml:"endpoint" env:"ASTRA_DB_ENDPOINT"`
	Keyspace   string `yaml:"keyspace" env:"ASTRA_KEYSPACE"`
	Collection string `yaml:"collection" env:"ASTRA_COLLECTION_NAME"`
	Token      string `env:"ASTRA_DB_TOKEN"`
}

type Postgres struct {
	DSN   string `env:"VECTOR_POSTGRES_DSN"`
	Table string `yaml:"table" env:"VECTOR_POSTGRES_TABLE" env-default:"documents"`
}

type Vector struct {
	Driver   string        `yaml:"driver" env:"VECTOR_DRIVER" env-default:"astra"`
	Limit    int           `yaml:"limit" env:"VECTOR_LIMIT" env-default:"10"`
	Timeout  time.Duration `yaml:"timeout" env:"VECTOR_TIMEOUT" env-default:"15s"`
	Astra    Astra         `yaml:"astra"`
	Postgres Postgres      `yaml:"postgres"`
}

type Search struct {
	Providers    []string      `yaml:"providers" env:"SEARCH_PROVIDERS" env-separator:"," env-default:"ddg,sep"`
	MaxResults   int           `yaml:"max_results" env:"SEARCH_MAX_RESULTS" env-default:"5"`
	SiteFilter   string        `yaml:"site_filter" env:"SEARCH_SITE_FILTER" env-default:"plato.stanford.edu"`
	SiteResults  int           `yaml:"site_results" env:"SEARCH_SITE_RESULTS" env-default:"3"`
	Timeout      time.Duration `yaml:"timeout" env:"SEARCH_TIMEOUT" env-default:"10s"`
	SerperAPIKey string        `env:"SERPER_API_KEY"`
	BraveAPIKey  string        `env:"BRAVE_API_KEY"`
}

type Prompt struct {
	Locale        string `yaml:"locale" env:"PROMPT_LOCALE" env-default:"fa"`
	AssistantName string `yaml:"assistant_name" env:"ASSISTANT_NAME" env-default:"AlumGlass"`
	MaxTokens     int    `yaml:"max_tokens" env:"PROMPT_MAX_TOKENS" env-default:"24000"`
	SnippetRunes  int    `yaml:"snippet_runes" env:"PROMPT_SNIPPET_RUNES" env-default:"200"`
	Encoding      string `yaml:"encoding" env:"PROMPT_TOKEN_ENCODING" env-default:"cl100k_base"`
}

type Log struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Session Session `yaml:"session"`
	Storage Storage `yaml:"storage"`
	LLM     LLM     `yaml:"llm"`
	Vector  Vector  `yaml:"vector"`
	Search  Search  `yaml:"search"`
	Prompt  Prompt  `yaml:"prompt"`
	Log     Log     `yaml:"log"`
}

// LoadConfig reads cfgPath when it is not empty and then applies the
// environment on top of it.
func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.GenerationPool().Credentials) == 0 {
		return ErrNoGenerationCredentials
	}
	switch c.Storage.Driver {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, c.Storage.Driver)
	}
	switch c.Vector.Driver {
	case "astra", "pgvector", "none":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVectorDriver, c.Vector.Driver)
	}
	switch c.LLM.Backend {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLLMBackend, c.LLM.Backend)
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = 5
	}
	if c.Session.HistoryLimit <= 0 {
		c.Session.HistoryLimit = 8
	}
	if c.Search.MaxResults <= 0 || c.Search.MaxResults > 5 {
		c.Search.MaxResults = 5
	}
	if c.Search.SiteResults <= 0 || c.Search.SiteResults > c.Search.MaxResults {
		c.Search.SiteResults = c.Search.MaxResults
	}
	if c.Vector.Limit <= 0 {
		c.Vector.Limit = 10
	}
	return nil
}

// GenerationPool returns the generation credentials in declared priority order.
func (c *Config) GenerationPool() model.CredentialPool {
	pool := model.CredentialPool{Name: "generation"}
	for i, raw := range c.LLM.GenerationKeys {
		if cred, ok := parseCredential(raw, i); ok {
			pool.Credentials = append(pool.Credentials, cred)
		}
	}
	return pool
}

// EmbeddingPool holds the single dedicated embedding credential. It falls back
// to the first generation credential when no embedding key is set.
func (c *Config) EmbeddingPool() model.CredentialPool {
	pool := model.CredentialPool{Name: "embedding"}
	if cred, ok := parseCredential(c.LLM.EmbeddingKey, 0); ok {
		if !strings.Contains(c.LLM.EmbeddingKey, ":") {
			cred.Name = "embedding"
		}
		pool.Credentials = append(pool.Credentials, cred)
		return pool
	}
	gen := c.GenerationPool()
	if len(gen.Credentials) > 0 {
		pool.Credentials = append(pool.Credentials, gen.Credentials[0])
	}
	return pool
}

func parseCredential(raw string, idx int) (model.Credential, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Credential{}, false
	}
	name, key, found := strings.Cut(raw, ":")
	if !found || strings.TrimSpace(key) == "" || strings.TrimSpace(name) == "" {
		return model.Credential{Name: fmt.Sprintf("key-%d", idx+1), APIKey: raw}, true
	}
	return model.Credential{Name: strings.TrimSpace(name), APIKey: strings.TrimSpace(key)}, true
}
