package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	LogLevel             string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	EventSubjectPrefix   string
	JWTSecret            string
	LeaderboardKey       string
	LeaderboardCacheTTL  time.Duration
	LeaderboardCacheSize int
	AIProvider           string
	AIModel              string
	OpenAIAPIKey         string
	AnthropicAPIKey      string
	AssistantRateLimit   int
	MaxCodeBytes         int
	CompletionThreshold  int
	SeedEnabled          bool
	SeedToken            string
	CORSAllowOrigins     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEQUEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeQuest API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("nats.subject_prefix", "codequest")
	v.SetDefault("leaderboard.key", "codequest:leaderboard:xp")
	v.SetDefault("leaderboard.cache_ttl", "10m")
	v.SetDefault("leaderboard.cache_size", 1000)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("assistant.rate_limit", 10)
	v.SetDefault("evaluation.max_code_bytes", 100000)
	v.SetDefault("completion_threshold", 70)
	v.SetDefault("seed.enabled", false)
	v.SetDefault("cors.allow_origins", "*")

	ttlString := v.GetString("leaderboard.cache_ttl")
	if ttlString == "" {
		ttlString = "10m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		LogLevel:             strings.ToLower(v.GetString("log.level")),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		EventSubjectPrefix:   v.GetString("nats.subject_prefix"),
		JWTSecret:            v.GetString("jwt.secret"),
		LeaderboardKey:       v.GetString("leaderboard.key"),
		LeaderboardCacheTTL:  ttl,
		LeaderboardCacheSize: v.GetInt("leaderboard.cache_size"),
		AIProvider:           strings.ToLower(v.GetString("ai.provider")),
		AIModel:              v.GetString("ai.model"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		AnthropicAPIKey:      v.GetString("anthropic_api_key"),
		AssistantRateLimit:   v.GetInt("assistant.rate_limit"),
		MaxCodeBytes:         v.GetInt("evaluation.max_code_bytes"),
		CompletionThreshold:  v.GetInt("completion_threshold"),
		SeedEnabled:          v.GetBool("seed.enabled"),
		SeedToken:            v.GetString("seed.token"),
		CORSAllowOrigins:     v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AssistantRateLimit <= 0 {
		cfg.AssistantRateLimit = 10
	}

	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = 100000
	}

	if cfg.CompletionThreshold <= 0 || cfg.CompletionThreshold > 100 {
		cfg.CompletionThreshold = 70
	}

	return cfg, nil
}
