package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrDatabaseURLRequired = errors.New("DATABASE_URL is required when ENABLE_DB=true")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

type Config struct {
	Port        string
	GinMode     string
	Environment string
	EnableDB    bool
	DatabaseURL string

	LLM LLMConfig

	StrictCandidates bool
	RateLimitMax     int
	RateLimitWindow  time.Duration
	AllowedOrigins   []string
	TrustedProxies   []string
	StaticDir        string
	HistoryCapacity  int

	LogLevel  string
	LogFormat string
}

type LLMConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Temperature        float32
	MaxTokensQuestions int
	MaxTokensAnalysis  int
	// RetryAttempts counts every attempt, the first one included.
	RetryAttempts int
	Timeout       time.Duration
}

// Retries is the number of attempts after the first.
func (c LLMConfig) Retries() int {
	if c.RetryAttempts <= 1 {
		return 0
	}
	return c.RetryAttempts - 1
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("environment", "development")
	v.SetDefault("enable_db", false)
	v.SetDefault("database_url", "")
	v.SetDefault("llm_provider", "groq")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("llm_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm_temperature", 0.7)
	v.SetDefault("llm_max_tokens_questions", 512)
	v.SetDefault("llm_max_tokens_analysis", 2048)
	v.SetDefault("llm_retry_attempts", 2)
	v.SetDefault("llm_timeout", 30*time.Second)
	v.SetDefault("strict_candidates", true)
	v.SetDefault("rate_limit_max", 100)
	v.SetDefault("rate_limit_window", 15*time.Minute)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("static_dir", "")
	v.SetDefault("history_capacity", 1000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("groq_api_key", "")
	v.SetDefault("openai_api_key", "")
}

// Load reads .env, the environment and an optional YAML config file, in that
// order of precedence: environment over file over defaults.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		GinMode:     v.GetString("gin_mode"),
		Environment: v.GetString("environment"),
		EnableDB:    v.GetBool("enable_db"),
		DatabaseURL: v.GetString("database_url"),
		LLM: LLMConfig{
			Provider:           strings.ToLower(strings.TrimSpace(v.GetString("llm_provider"))),
			APIKey:             v.GetString("llm_api_key"),
			BaseURL:            v.GetString("llm_base_url"),
			Model:              v.GetString("llm_model"),
			Temperature:        float32(v.GetFloat64("llm_temperature")),
			MaxTokensQuestions: v.GetInt("llm_max_tokens_questions"),
			MaxTokensAnalysis:  v.GetInt("llm_max_tokens_analysis"),
			RetryAttempts:      v.GetInt("llm_retry_attempts"),
			Timeout:            v.GetDuration("llm_timeout"),
		},
		StrictCandidates: v.GetBool("strict_candidates"),
		RateLimitMax:     v.GetInt("rate_limit_max"),
		RateLimitWindow:  v.GetDuration("rate_limit_window"),
		AllowedOrigins:   splitList(v.GetString("allowed_origins")),
		TrustedProxies:   splitList(v.GetString("trusted_proxies")),
		StaticDir:        v.GetString("static_dir"),
		HistoryCapacity:  v.GetInt("history_capacity"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "groq", "":
			cfg.LLM.APIKey = v.GetString("groq_api_key")
		case "openai":
			cfg.LLM.APIKey = v.GetString("openai_api_key")
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.EnableDB && c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}

	var errs []error
	if c.LLM.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("LLM_RETRY_ATTEMPTS must be at least 1, got %d", c.LLM.RetryAttempts))
	}
	if c.LLM.MaxTokensQuestions <= 0 || c.LLM.MaxTokensAnalysis <= 0 {
		errs = append(errs, errors.New("LLM token budgets must be positive"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be a positive duration such as 30s"))
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
