package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hairizuan-noorazman/dashboard-watch/capture"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Capture    CaptureConfig
	Dialogs    DialogsConfig
	Credential CredentialConfig
	Extraction ExtractionConfig
	Storage    StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StaticDir    string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// CaptureConfig holds the browser target and loop timing.
type CaptureConfig struct {
	TargetURL         string
	StartDelay        time.Duration
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	RefreshInterval   time.Duration
	ScrollSettle      time.Duration
	ValueSelector     string
	Headless          bool
	WindowWidth       int
	WindowHeight      int
	UserAgent         string
	ChromePath        string
}

// DialogsConfig holds the onboarding dialog steps.
type DialogsConfig struct {
	WaitTimeout time.Duration
	Settle      time.Duration
	Steps       []capture.DialogStep
}

// CredentialConfig selects where the dashboard session comes from.
type CredentialConfig struct {
	CookieFile        string
	TokenEnv          string
	TokenCookieName   string
	TokenCookieDomain string
	TokenCookiePath   string
}

// ExtractionConfig holds vision model settings.
type ExtractionConfig struct {
	Provider       string // "openai", "bedrock" or "gemini"
	Model          string
	MaxTokens      int
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	BedrockRegion  string
	GeminiAPIKey   string
	RequestTimeout time.Duration
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Type            string        // "local" or "s3"
	BaseDir         string        // For local: "./artifacts"
	S3Bucket        string        // For S3: bucket name
	S3Region        string        // For S3: AWS region
	S3PresignExpiry time.Duration // Presigned URL expiration
	DebugRetention  int           // Timestamped debug screenshots to keep
}

type dialogStepConfig struct {
	Label    string `mapstructure:"label"`
	Strategy string `mapstructure:"strategy"`
}

// LoadConfig loads configuration from an optional .env file, the config file and environment
// variables, in increasing order of precedence.
func LoadConfig(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			// It's okay if the file doesn't exist
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load env file: %w", err)
			}
		}
	}

	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	config.Server.StaticDir = v.GetString("server.static_dir")

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	config.Capture.TargetURL = v.GetString("capture.target_url")
	config.Capture.StartDelay = v.GetDuration("capture.start_delay")
	config.Capture.NavigationTimeout = v.GetDuration("capture.navigation_timeout")
	config.Capture.ReadyTimeout = v.GetDuration("capture.ready_timeout")
	config.Capture.RefreshInterval = v.GetDuration("capture.refresh_interval")
	config.Capture.ScrollSettle = v.GetDuration("capture.scroll_settle")
	config.Capture.ValueSelector = v.GetString("capture.value_selector")
	config.Capture.Headless = v.GetBool("capture.headless")
	config.Capture.WindowWidth = v.GetInt("capture.window_width")
	config.Capture.WindowHeight = v.GetInt("capture.window_height")
	config.Capture.UserAgent = v.GetString("capture.user_agent")
	config.Capture.ChromePath = v.GetString("capture.chrome_path")

	config.Dialogs.WaitTimeout = v.GetDuration("dialogs.wait_timeout")
	config.Dialogs.Settle = v.GetDuration("dialogs.settle")
	var steps []dialogStepConfig
	if err := v.UnmarshalKey("dialogs.steps", &steps); err != nil {
		return nil, fmt.Errorf("failed to parse dialogs.steps: %w", err)
	}
	for i, s := range steps {
		if strings.TrimSpace(s.Label) == "" {
			return nil, fmt.Errorf("dialogs.steps[%d]: label is required", i)
		}
		strategy, err := capture.ParseClickStrategy(s.Strategy)
		if err != nil {
			return nil, fmt.Errorf("dialogs.steps[%d]: %w", i, err)
		}
		config.Dialogs.Steps = append(config.Dialogs.Steps, capture.DialogStep{Label: s.Label, Strategy: strategy})
	}

	config.Credential.CookieFile = v.GetString("credential.cookie_file")
	config.Credential.TokenEnv = v.GetString("credential.token_env")
	config.Credential.TokenCookieName = v.GetString("credential.token_cookie_name")
	config.Credential.TokenCookieDomain = v.GetString("credential.token_cookie_domain")
	config.Credential.TokenCookiePath = v.GetString("credential.token_cookie_path")

	config.Extraction.Provider = v.GetString("extraction.provider")
	config.Extraction.Model = v.GetString("extraction.model")
	config.Extraction.MaxTokens = v.GetInt("extraction.max_tokens")
	config.Extraction.OpenAIBaseURL = v.GetString("extraction.openai_base_url")
	config.Extraction.OpenAIAPIKey = v.GetString("extraction.openai_api_key")
	config.Extraction.BedrockRegion = v.GetString("extraction.bedrock_region")
	config.Extraction.GeminiAPIKey = v.GetString("extraction.gemini_api_key")
	config.Extraction.RequestTimeout = v.GetDuration("extraction.request_timeout")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")
	config.Storage.DebugRetention = v.GetInt("storage.debug_retention")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("capture.target_url", "")
	v.SetDefault("capture.start_delay", "5s")
	v.SetDefault("capture.navigation_timeout", "90s")
	v.SetDefault("capture.ready_timeout", "60s")
	v.SetDefault("capture.refresh_interval", "15s")
	v.SetDefault("capture.scroll_settle", "500ms")
	v.SetDefault("capture.value_selector", capture.DefaultValueSelector)
	v.SetDefault("capture.headless", true)
	v.SetDefault("capture.window_width", 1920)
	v.SetDefault("capture.window_height", 1080)
	v.SetDefault("capture.user_agent", "")
	v.SetDefault("capture.chrome_path", "")

	v.SetDefault("dialogs.wait_timeout", "3s")
	v.SetDefault("dialogs.settle", "1500ms")
	defaultSteps := make([]map[string]string, 0, 3)
	for _, s := range capture.DefaultDialogSteps() {
		defaultSteps = append(defaultSteps, map[string]string{"label": s.Label, "strategy": string(s.Strategy)})
	}
	v.SetDefault("dialogs.steps", defaultSteps)

	v.SetDefault("credential.cookie_file", "")
	v.SetDefault("credential.token_env", "")
	v.SetDefault("credential.token_cookie_name", "")
	v.SetDefault("credential.token_cookie_domain", "")
	v.SetDefault("credential.token_cookie_path", "/")

	v.SetDefault("extraction.provider", "openai")
	v.SetDefault("extraction.model", "")
	v.SetDefault("extraction.max_tokens", 2048)
	v.SetDefault("extraction.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("extraction.openai_api_key", "")
	v.SetDefault("extraction.bedrock_region", "us-east-1")
	v.SetDefault("extraction.gemini_api_key", "")
	v.SetDefault("extraction.request_timeout", "2m")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./artifacts")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_presign_expiry", "15m")
	v.SetDefault("storage.debug_retention", 20)
}

// Validate checks the settings serve needs before anything is started.
func (c *Config) Validate() error {
	if c.Capture.TargetURL == "" {
		return fmt.Errorf("capture.target_url is required")
	}
	if c.Capture.RefreshInterval <= 0 {
		return fmt.Errorf("capture.refresh_interval must be positive")
	}
	if c.Capture.NavigationTimeout <= 0 || c.Capture.ReadyTimeout <= 0 {
		return fmt.Errorf("capture timeouts must be positive")
	}
	return nil
}
