package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"openlet/internal/domain"
)

const (
	ProviderLangchain = "langchain"
	ProviderOpenAI    = "openai"

	DefaultModel = "google/gemini-2.5-flash"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Storage   StorageConfig
	CacheTTLs CacheTTLConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level string
	Env   string
}

// ModelEntry is one recognised model id and its capability tier.
// Model ids contain dots, so they are listed rather than used as map keys.
type ModelEntry struct {
	ID   string `mapstructure:"id"`
	Tier string `mapstructure:"tier"`
}

type LLMConfig struct {
	Provider             string
	BaseURL              string
	APIKey               string
	Timeout              time.Duration
	DefaultOCRModel      string
	DefaultQuestionModel string
	Models               []ModelEntry
}

type PipelineConfig struct {
	OCRConcurrency             int
	MaxPDFPages                int
	PDFDPI                     float64
	AllowPartialOCR            bool
	DeleteFilesAfterProcessing bool
	ClaimTTL                   time.Duration
	ReclaimIdle                time.Duration
	ReclaimInterval            time.Duration
	Stream                     string
	ConsumerGroup              string
	ConsumerName               string
}

type StorageConfig struct {
	Root string
}

type CacheTTLConfig struct {
	OCR string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("db.port", 1521)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "development")

	v.SetDefault("llm.provider", ProviderLangchain)
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.default_ocr_model", DefaultModel)
	v.SetDefault("llm.default_question_model", DefaultModel)

	v.SetDefault("pipeline.ocr_concurrency", 4)
	v.SetDefault("pipeline.max_pdf_pages", 10)
	v.SetDefault("pipeline.pdf_dpi", 144)
	v.SetDefault("pipeline.allow_partial_ocr", false)
	v.SetDefault("pipeline.delete_files_after_processing", true)
	v.SetDefault("pipeline.claim_ttl", 15*time.Minute)
	v.SetDefault("pipeline.reclaim_idle", 20*time.Minute)
	v.SetDefault("pipeline.reclaim_interval", time.Minute)
	v.SetDefault("pipeline.stream", "openlet:quiz-changes")
	v.SetDefault("pipeline.consumer_group", "pipeline")

	v.SetDefault("storage.root", "./uploads")
	v.SetDefault("cache_ttls.ocr", "24h")
}

// LoadConfig reads config.yaml (when present), an optional .env file and the
// environment. Nested keys map to upper-case variables: llm.api_key is LLM_API_KEY.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../configs")
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		DB: DBConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
		LLM: LLMConfig{
			Provider:             strings.ToLower(v.GetString("llm.provider")),
			BaseURL:              v.GetString("llm.base_url"),
			APIKey:               v.GetString("llm.api_key"),
			Timeout:              v.GetDuration("llm.timeout"),
			DefaultOCRModel:      v.GetString("llm.default_ocr_model"),
			DefaultQuestionModel: v.GetString("llm.default_question_model"),
		},
		Pipeline: PipelineConfig{
			OCRConcurrency:             v.GetInt("pipeline.ocr_concurrency"),
			MaxPDFPages:                v.GetInt("pipeline.max_pdf_pages"),
			PDFDPI:                     v.GetFloat64("pipeline.pdf_dpi"),
			AllowPartialOCR:            v.GetBool("pipeline.allow_partial_ocr"),
			DeleteFilesAfterProcessing: v.GetBool("pipeline.delete_files_after_processing"),
			ClaimTTL:                   v.GetDuration("pipeline.claim_ttl"),
			ReclaimIdle:                v.GetDuration("pipeline.reclaim_idle"),
			ReclaimInterval:            v.GetDuration("pipeline.reclaim_interval"),
			Stream:                     v.GetString("pipeline.stream"),
			ConsumerGroup:              v.GetString("pipeline.consumer_group"),
			ConsumerName:               v.GetString("pipeline.consumer_name"),
		},
		Storage: StorageConfig{
			Root: v.GetString("storage.root"),
		},
		CacheTTLs: CacheTTLConfig{
			OCR: v.GetString("cache_ttls.ocr"),
		},
	}

	if err := v.UnmarshalKey("llm.models", &cfg.LLM.Models); err != nil {
		return nil, fmt.Errorf("failed to read llm.models: %w", err)
	}
	if cfg.Pipeline.ConsumerName == "" {
		// Stable across restarts so a restarted worker re-reads its own pending entries.
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "openlet"
		}
		cfg.Pipeline.ConsumerName = host
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderLangchain, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm.provider %q (want %s or %s)", c.LLM.Provider, ProviderLangchain, ProviderOpenAI)
	}
	if c.Pipeline.OCRConcurrency < 1 {
		return fmt.Errorf("pipeline.ocr_concurrency must be at least 1")
	}
	if c.Pipeline.MaxPDFPages < 1 {
		return fmt.Errorf("pipeline.max_pdf_pages must be at least 1")
	}
	if c.Pipeline.ClaimTTL <= c.LLM.Timeout {
		return fmt.Errorf("pipeline.claim_ttl (%s) must exceed llm.timeout (%s)", c.Pipeline.ClaimTTL, c.LLM.Timeout)
	}
	if c.Pipeline.ReclaimIdle <= c.Pipeline.ClaimTTL {
		return fmt.Errorf("pipeline.reclaim_idle (%s) must exceed pipeline.claim_ttl (%s)", c.Pipeline.ReclaimIdle, c.Pipeline.ClaimTTL)
	}
	for _, m := range c.LLM.Models {
		if m.ID == "" {
			return fmt.Errorf("llm.models entries need an id")
		}
	}
	return nil
}

// ModelCatalog builds the domain catalog from llm.models and the defaults.
func (c *Config) ModelCatalog() domain.ModelCatalog {
	catalog := domain.ModelCatalog{
		DefaultOCRModel:      c.LLM.DefaultOCRModel,
		DefaultQuestionModel: c.LLM.DefaultQuestionModel,
	}
	if len(c.LLM.Models) > 0 {
		catalog.Models = make(map[string]string, len(c.LLM.Models))
		for _, m := range c.LLM.Models {
			catalog.Models[m.ID] = m.Tier
		}
	}
	return catalog
}

// ParseTTLStringOrDefault parses a duration string, falling back on empty or invalid input.
func (c *Config) ParseTTLStringOrDefault(ttlString string, defaultTTL time.Duration) time.Duration {
	if ttlString == "" {
		return defaultTTL
	}
	d, err := time.ParseDuration(ttlString)
	if err != nil || d <= 0 {
		return defaultTTL
	}
	return d
}
