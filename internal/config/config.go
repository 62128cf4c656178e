package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/live-subtitle/backend/internal/job"
	"github.com/live-subtitle/backend/internal/translate"
)

// EnvConfigFile names the config file when --config is not given
const EnvConfigFile = "RELAY_CONFIG"

type Config struct {
	Port        int
	MediaPath   string
	DataPath    string
	DBPath      string
	CORSOrigins []string

	// Translation
	TranslatorEngine string
	AzureKey         string
	AzureRegion      string
	AzureEndpoint    string
	DeepLKey         string
	OpenAIKey        string
	OpenAIModel      string
	GeminiKey        string
	GeminiModel      string
	CacheSize        int

	// Job status polling
	BackendURL string
	Poll       job.Policy
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("data_path", "/data")
	v.SetDefault("media_path", "/media")
	v.SetDefault("cors_origins", "*")

	v.SetDefault("translator_engine", "")
	v.SetDefault("azure_translator_region", "global")
	v.SetDefault("azure_translator_endpoint", "https://api.cognitive.microsofttranslator.com")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("translation_cache_size", 500)

	v.SetDefault("backend_url", "")
	p := job.DefaultPolicy()
	v.SetDefault("poll_initial_delay", p.InitialDelay.String())
	v.SetDefault("poll_base_delay", p.BaseDelay.String())
	v.SetDefault("poll_step", p.Step.String())
	v.SetDefault("poll_max_delay", p.MaxDelay.String())
	v.SetDefault("poll_retry_base", p.RetryBase.String())
	v.SetDefault("poll_retry_max", p.RetryMax.String())
	v.SetDefault("poll_max_attempts", p.MaxAttempts)
	v.SetDefault("poll_request_timeout", p.RequestTimeout.String())
}

// Load reads configuration from the environment and, when path (or
// RELAY_CONFIG) names one, a yaml file. Environment variables win over the
// file. Keys in the file are the lower-case environment names.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	dataPath := v.GetString("data_path")
	dbPath := v.GetString("db_path")
	if dbPath == "" {
		dbPath = dataPath + "/subtitle-relay.db"
	}

	cfg := &Config{
		Port:        v.GetInt("port"),
		MediaPath:   v.GetString("media_path"),
		DataPath:    dataPath,
		DBPath:      dbPath,
		CORSOrigins: splitList(v.GetString("cors_origins")),

		TranslatorEngine: strings.ToLower(v.GetString("translator_engine")),
		AzureKey:         v.GetString("azure_translator_key"),
		AzureRegion:      v.GetString("azure_translator_region"),
		AzureEndpoint:    v.GetString("azure_translator_endpoint"),
		DeepLKey:         v.GetString("deepl_api_key"),
		OpenAIKey:        v.GetString("openai_api_key"),
		OpenAIModel:      v.GetString("openai_model"),
		GeminiKey:        v.GetString("gemini_api_key"),
		GeminiModel:      v.GetString("gemini_model"),
		CacheSize:        v.GetInt("translation_cache_size"),

		BackendURL: strings.TrimRight(v.GetString("backend_url"), "/"),
		Poll: job.Policy{
			InitialDelay:   v.GetDuration("poll_initial_delay"),
			BaseDelay:      v.GetDuration("poll_base_delay"),
			Step:           v.GetDuration("poll_step"),
			MaxDelay:       v.GetDuration("poll_max_delay"),
			RetryBase:      v.GetDuration("poll_retry_base"),
			RetryMax:       v.GetDuration("poll_retry_max"),
			MaxAttempts:    v.GetInt("poll_max_attempts"),
			RequestTimeout: v.GetDuration("poll_request_timeout"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.TranslatorEngine {
	case "", "azure", "deepl", "openai", "gemini":
	default:
		return fmt.Errorf("unknown translator engine %q", c.TranslatorEngine)
	}
	if c.Poll.MaxAttempts < 1 {
		return fmt.Errorf("poll_max_attempts must be positive, got %d", c.Poll.MaxAttempts)
	}
	for name, d := range map[string]time.Duration{
		"poll_base_delay":      c.Poll.BaseDelay,
		"poll_retry_base":      c.Poll.RetryBase,
		"poll_request_timeout": c.Poll.RequestTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// TranslateOptions maps the translation settings. model resolves the
// Gemini model at call time; nil falls back to the configured one.
func (c *Config) TranslateOptions(model translate.ModelResolver) translate.Options {
	if model == nil {
		m := c.GeminiModel
		model = func() string { return m }
	}
	return translate.Options{
		Engine:        c.TranslatorEngine,
		AzureKey:      c.AzureKey,
		AzureRegion:   c.AzureRegion,
		AzureEndpoint: c.AzureEndpoint,
		DeepLKey:      c.DeepLKey,
		OpenAIKey:     c.OpenAIKey,
		OpenAIModel:   c.OpenAIModel,
		GeminiKey:     c.GeminiKey,
		GeminiModel:   model,
		CacheSize:     c.CacheSize,
	}
}

// comma-separated list or "*"
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
