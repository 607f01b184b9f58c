package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel          OTelConfig
	GitHub        GitHubConfig
	ClassifierLLM LLMConfig
	TranslatorLLM LLMConfig
	Triage        TriageConfig
	Env           string
	Port          string
	LogLevel      string // debug, info, warn or error; empty picks by environment

	// explicitDev is set only when TRIAGE_ENV=development is present in the
	// environment (or .env), not when development is the fallback.
	explicitDev bool
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	Environment    string // deployment.environment resource attribute
}

type GitHubConfig struct {
	WebhookSecret  string
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	APIURL         string // Optional: GitHub Enterprise base URL
	SpamRepoNodeID string
	RuntimeLabel   string
}

type LLMConfig struct {
	Provider   string // "openai" or "anthropic"
	APIKey     string
	BaseURL    string // Optional: for custom endpoints
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
}

type TriageConfig struct {
	MaxComments       int
	MaxTimelineEvents int
	ActionConcurrency int
	DrainTimeout      time.Duration
	NodeID            int64
}

// Load loads configuration from environment variables.
// In development, .env is loaded first when present.
func Load() (Config, error) {
	if getEnv("TRIAGE_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	classifier := LLMConfig{
		Provider:   getEnv("CLASSIFIER_LLM_PROVIDER", "openai"),
		APIKey:     getEnv("CLASSIFIER_LLM_API_KEY", ""),
		BaseURL:    getEnv("CLASSIFIER_LLM_BASE_URL", ""),
		Model:      getEnv("CLASSIFIER_LLM_MODEL", "gpt-4o-mini"),
		MaxTokens:  getEnvInt("CLASSIFIER_LLM_MAX_TOKENS", 1024),
		Timeout:    getEnvDuration("CLASSIFIER_LLM_TIMEOUT", 60*time.Second),
		MaxRetries: getEnvInt("CLASSIFIER_LLM_MAX_RETRIES", 2),
	}

	// Translation runs on OpenAI structured outputs only, so only an OpenAI
	// classifier key can stand in for a missing translator key.
	translatorKey := ""
	if classifier.Provider == "openai" {
		translatorKey = classifier.APIKey
	}

	cfg := Config{
		Env:      getEnv("TRIAGE_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "triage"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("TRIAGE_ENV", "development"),
		},
		GitHub: GitHubConfig{
			WebhookSecret:  getEnv("GITHUB_WEBHOOK_SECRET", ""),
			Token:          getEnv("GITHUB_TOKEN", ""),
			AppID:          getEnvInt64("GITHUB_APP_ID", 0),
			InstallationID: getEnvInt64("GITHUB_APP_INSTALLATION_ID", 0),
			PrivateKeyPath: getEnv("GITHUB_APP_PRIVATE_KEY_PATH", ""),
			APIURL:         getEnv("GITHUB_API_URL", ""),
			SpamRepoNodeID: getEnv("SPAM_REPOSITORY_NODE_ID", ""),
			RuntimeLabel:   getEnv("RUNTIME_SUBSYSTEM_LABEL", "nitro"),
		},
		ClassifierLLM: classifier,
		TranslatorLLM: LLMConfig{
			Provider:   "openai",
			APIKey:     getEnv("TRANSLATOR_LLM_API_KEY", translatorKey),
			BaseURL:    getEnv("TRANSLATOR_LLM_BASE_URL", ""),
			Model:      getEnv("TRANSLATOR_LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:  getEnvInt("TRANSLATOR_LLM_MAX_TOKENS", 512),
			Timeout:    getEnvDuration("TRANSLATOR_LLM_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvInt("TRANSLATOR_LLM_MAX_RETRIES", 2),
		},
		Triage: TriageConfig{
			MaxComments:       getEnvInt("TRIAGE_MAX_COMMENTS", 5),
			MaxTimelineEvents: getEnvInt("TRIAGE_MAX_TIMELINE_EVENTS", 20),
			ActionConcurrency: getEnvInt("TRIAGE_ACTION_CONCURRENCY", 4),
			DrainTimeout:      getEnvDuration("TRIAGE_DRAIN_TIMEOUT", 30*time.Second),
			NodeID:            getEnvInt64("TRIAGE_NODE_ID", 1),
		},
	}

	if env, ok := os.LookupEnv("TRIAGE_ENV"); ok && env == "development" {
		cfg.explicitDev = true
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.IsDevelopment() {
		return nil
	}
	var errs []error
	if c.GitHub.WebhookSecret == "" {
		errs = append(errs, errors.New("GITHUB_WEBHOOK_SECRET is required"))
	}
	if !c.GitHub.Enabled() {
		errs = append(errs, errors.New("GITHUB_TOKEN or GITHUB_APP_ID, GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY_PATH are required"))
	}
	if !c.ClassifierLLM.Enabled() {
		errs = append(errs, fmt.Errorf("CLASSIFIER_LLM_API_KEY is required (provider %q)", c.ClassifierLLM.Provider))
	}
	if !c.TranslatorLLM.Enabled() {
		errs = append(errs, fmt.Errorf("TRANSLATOR_LLM_API_KEY is required when the classifier provider is %q", c.ClassifierLLM.Provider))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AllowUnsignedWebhooks reports whether deliveries may skip signature checks
// when no webhook secret is set. It requires TRIAGE_ENV=development explicitly.
func (c Config) AllowUnsignedWebhooks() bool {
	return c.explicitDev
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// AppAuth reports whether GitHub App installation credentials are set.
func (c GitHubConfig) AppAuth() bool {
	return c.AppID != 0 && c.InstallationID != 0 && c.PrivateKeyPath != ""
}

func (c GitHubConfig) Enabled() bool {
	return c.Token != "" || c.AppAuth()
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
