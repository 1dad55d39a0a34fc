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
	AppName                string
	AppEnv                 string
	AppPort                string
	AccessLog              bool
	CORSAllowOrigins       string
	DatabaseURL            string
	AutoMigrate            bool
	RedisURL               string
	ResultsChannel         string
	NATSURL                string
	NATSSubject            string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	ResultsCacheTTL        time.Duration
	UploadMaxMB            int
	Scores                 ScoreConfig
	LegacyAggregation      bool
	RateLimitMax           int
	RateLimitWindow        time.Duration
	SeedEnabled            bool
	SeedToken              string
}

// ScoreConfig holds the maximum mark of each assessment component.
type ScoreConfig struct {
	CA1Max  float64
	CA2Max  float64
	CA3Max  float64
	ExamMax float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SCHOOL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "School Results API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.access_log", false)
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.results_channel", "school:results")
	v.SetDefault("nats.subject", "results.computed")
	v.SetDefault("cloudinary.folder", "school/broadsheets")
	v.SetDefault("results.cache_ttl", "5m")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("scores.ca1_max", 20)
	v.SetDefault("scores.ca2_max", 20)
	v.SetDefault("scores.ca3_max", 20)
	v.SetDefault("scores.exam_max", 40)
	v.SetDefault("grading.legacy_aggregation", false)
	v.SetDefault("rate_limit.max", 120)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("seed.enabled", false)

	ttl, err := parseDuration(v.GetString("results.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid results cache ttl: %w", err)
	}
	window, err := parseDuration(v.GetString("rate_limit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		AccessLog:              v.GetBool("app.access_log"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		DatabaseURL:            v.GetString("database.url"),
		AutoMigrate:            v.GetBool("database.auto_migrate"),
		RedisURL:               v.GetString("redis.url"),
		ResultsChannel:         v.GetString("redis.results_channel"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		ResultsCacheTTL:        ttl,
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		Scores: ScoreConfig{
			CA1Max:  v.GetFloat64("scores.ca1_max"),
			CA2Max:  v.GetFloat64("scores.ca2_max"),
			CA3Max:  v.GetFloat64("scores.ca3_max"),
			ExamMax: v.GetFloat64("scores.exam_max"),
		},
		LegacyAggregation: v.GetBool("grading.legacy_aggregation"),
		RateLimitMax:      v.GetInt("rate_limit.max"),
		RateLimitWindow:   window,
		SeedEnabled:       v.GetBool("seed.enabled"),
		SeedToken:         v.GetString("seed.token"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.Scores.CA1Max < 0 || cfg.Scores.CA2Max < 0 || cfg.Scores.CA3Max < 0 || cfg.Scores.ExamMax < 0 {
		return Config{}, fmt.Errorf("score maxima must not be negative")
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 120
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
