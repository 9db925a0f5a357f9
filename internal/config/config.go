package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/timmy/mojiscan/internal/domain"
	"github.com/timmy/mojiscan/internal/prompts"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Inference  InferenceConfig  `mapstructure:"inference"`
	Transcribe TranscribeConfig `mapstructure:"transcribe"`
	Consensus  ConsensusConfig  `mapstructure:"consensus"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	Mode        string     `mapstructure:"mode"`
	MaxUploadMB int64      `mapstructure:"max_upload_mb"`
	CORS        CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// InferenceConfig selects and authenticates the hosted multimodal model.
type InferenceConfig struct {
	Provider        string        `mapstructure:"provider"` // gemini, openai
	Model           string        `mapstructure:"model"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float64       `mapstructure:"temperature"`
	VerifyOnStartup bool          `mapstructure:"verify_on_startup"`
}

type TranscribeConfig struct {
	CacheEnabled   bool          `mapstructure:"cache_enabled"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	AllowedFormats []string      `mapstructure:"allowed_formats"`
}

// ConsensusConfig controls the two-pass workflow. Blank prompts keep the built-in defaults.
type ConsensusConfig struct {
	Parallel            bool   `mapstructure:"parallel"`
	BasePrompt          string `mapstructure:"base_prompt"`
	VariantPrompt       string `mapstructure:"variant_prompt"`
	ArbitrationTemplate string `mapstructure:"arbitration_template"`
}

type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Path        string `mapstructure:"path"`
	ServiceName string `mapstructure:"service_name"`
}

// PromptSet returns the built-in prompts with configured overrides applied.
func (c *ConsensusConfig) PromptSet() prompts.Set {
	return prompts.Default().WithOverrides(prompts.Set{
		Base:        c.BasePrompt,
		Variant:     c.VariantPrompt,
		Arbitration: c.ArbitrationTemplate,
	})
}

// MaxUploadBytes returns the upload limit in bytes.
func (s *ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data.
	// The credential variable depends on the selected provider.
	v.BindEnv("inference.api_key", "INFERENCE_API_KEY", apiKeyEnv(v.GetString("inference.provider")))
	v.BindEnv("server.port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Inference.Model == "" {
		cfg.Inference.Model = defaultModel(cfg.Inference.Provider)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("inference.provider", "gemini")
	v.SetDefault("inference.base_url", "")
	v.SetDefault("inference.timeout", 60*time.Second)
	v.SetDefault("inference.max_tokens", 2048)
	v.SetDefault("inference.temperature", 0.0)
	v.SetDefault("inference.verify_on_startup", false)
	v.SetDefault("transcribe.cache_enabled", true)
	v.SetDefault("transcribe.call_timeout", 90*time.Second)
	v.SetDefault("transcribe.allowed_formats", domain.DefaultImageFormats)
	v.SetDefault("consensus.parallel", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.service_name", "mojiscan")
}

// apiKeyEnv names the environment variable holding the provider credential.
func apiKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

func defaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "gpt-4o-mini"
	default:
		return "gemini-2.0-flash"
	}
}

// Validate refuses configurations the service cannot start with.
// Every returned error wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Inference.Provider) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%w: unknown inference provider %q", domain.ErrConfiguration, c.Inference.Provider)
	}
	if strings.TrimSpace(c.Inference.APIKey) == "" {
		return fmt.Errorf("%w: inference API key is not set (set %s or inference.api_key)",
			domain.ErrConfiguration, apiKeyEnv(c.Inference.Provider))
	}
	if c.Inference.Model == "" {
		return fmt.Errorf("%w: inference model is not set", domain.ErrConfiguration)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: server.max_upload_mb must be positive", domain.ErrConfiguration)
	}
	if err := c.Consensus.PromptSet().Validate(); err != nil {
		return fmt.Errorf("%w: consensus prompts: %v", domain.ErrConfiguration, err)
	}
	return nil
}
