package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"datastory/internal/errors"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	AI       AIConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string // postgres or sqlite
	URL    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// StorageConfig holds upload handling settings
type StorageConfig struct {
	UploadDir     string
	MaxFileSize   int64
	MaxStoredRows int
}

// ProviderConfig describes one generative provider
type ProviderConfig struct {
	Name        string  `yaml:"name"`
	Kind        string  `yaml:"kind"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AIConfig holds provider and per-stage chain settings
type AIConfig struct {
	Providers     []ProviderConfig
	InsightChain  []string
	StoryChain    []string
	Timeout       time.Duration
	MaxConcurrent int
	PromptsDir    string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

type providersFile struct {
	Providers    []ProviderConfig `yaml:"providers"`
	InsightChain []string         `yaml:"insight_chain"`
	StoryChain   []string         `yaml:"story_chain"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Storage:  loadStorageConfig(),
		Log:      LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
	}

	aiConfig, err := loadAIConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AI configuration")
	}
	config.AI = *aiConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	url := getEnvOrDefault("DATABASE_URL", "datastory.db")
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "sqlite"
		if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
			driver = "postgres"
		}
	}
	return DatabaseConfig{Driver: driver, URL: url}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{Port: getEnvOrDefault("PORT", "8080")}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		UploadDir:     getEnvOrDefault("UPLOAD_DIR", "./uploads"),
		MaxFileSize:   int64(getEnvIntOrDefault("MAX_FILE_SIZE", 10<<20)),
		MaxStoredRows: getEnvIntOrDefault("MAX_STORED_ROWS", 10000),
	}
}

func loadAIConfig() (*AIConfig, error) {
	cfg := &AIConfig{
		Timeout:       getEnvDurationOrDefault("AI_TIMEOUT", 60*time.Second),
		MaxConcurrent: getEnvIntOrDefault("AI_MAX_CONCURRENT", 4),
		PromptsDir:    os.Getenv("PROMPTS_DIR"),
	}

	if path := os.Getenv("PROVIDERS_FILE"); path != "" {
		file, err := loadProvidersFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Providers = file.Providers
		cfg.InsightChain = file.InsightChain
		cfg.StoryChain = file.StoryChain
	} else {
		cfg.Providers = providersFromEnv()
	}

	if chain := getEnvList("INSIGHT_CHAIN"); len(chain) > 0 {
		cfg.InsightChain = chain
	}
	if chain := getEnvList("STORY_CHAIN"); len(chain) > 0 {
		cfg.StoryChain = chain
	}
	if len(cfg.InsightChain) == 0 && len(cfg.Providers) > 0 {
		cfg.InsightChain = []string{cfg.Providers[0].Name}
	}
	if len(cfg.StoryChain) == 0 {
		for i := 0; i < len(cfg.Providers) && i < 2; i++ {
			cfg.StoryChain = append(cfg.StoryChain, cfg.Providers[i].Name)
		}
	}
	return cfg, nil
}

// loadProvidersFile reads the YAML providers file. Keys may be given inline
// or through api_key_env.
func loadProvidersFile(path string) (*providersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read providers file %s", path)
	}
	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to parse providers file %s", path)
	}
	for i := range file.Providers {
		p := &file.Providers[i]
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
		if p.Name == "" {
			p.Name = p.Kind
		}
	}
	return &file, nil
}

func providersFromEnv() []ProviderConfig {
	var providers []ProviderConfig
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		providers = append(providers, ProviderConfig{
			Name:        "gemini",
			Kind:        "gemini",
			Model:       getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			APIKey:      key,
			BaseURL:     os.Getenv("GEMINI_BASE_URL"),
			Temperature: getEnvFloatOrDefault("TEMPERATURE", 0.7),
			MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 4096),
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		providers = append(providers, ProviderConfig{
			Name:        "openai",
			Kind:        "openai",
			Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      key,
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Temperature: getEnvFloatOrDefault("TEMPERATURE", 0.7),
			MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 4096),
		})
	}
	return providers
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported DATABASE_DRIVER %q", config.Database.Driver))
	}
	if config.Storage.MaxFileSize <= 0 {
		return errors.ConfigInvalid("MAX_FILE_SIZE must be positive")
	}
	if config.AI.MaxConcurrent <= 0 {
		return errors.ConfigInvalid("AI_MAX_CONCURRENT must be positive")
	}

	known := make(map[string]bool, len(config.AI.Providers))
	for _, p := range config.AI.Providers {
		if p.Name == "" {
			return errors.ConfigInvalid("provider name is required")
		}
		if known[p.Name] {
			return errors.ConfigInvalid(fmt.Sprintf("provider %q is defined twice", p.Name))
		}
		known[p.Name] = true
	}
	for _, chain := range [][]string{config.AI.InsightChain, config.AI.StoryChain} {
		for _, name := range chain {
			if !known[name] {
				return errors.ConfigInvalid(fmt.Sprintf("chain references unknown provider %q", name))
			}
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
