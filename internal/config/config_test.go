package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SCHOOL_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 5*time.Minute, cfg.ResultsCacheTTL)
	require.Equal(t, ScoreConfig{CA1Max: 20, CA2Max: 20, CA3Max: 20, ExamMax: 40}, cfg.Scores)
	require.False(t, cfg.LegacyAggregation)
	require.Equal(t, "results.computed", cfg.NATSSubject)
	require.Equal(t, 120, cfg.RateLimitMax)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
	require.False(t, cfg.AccessLog)
	require.False(t, cfg.IsProduction())
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("SCHOOL_JWT_SECRET", "secret")
	t.Setenv("SCHOOL_APP_PORT", ":9090")
	t.Setenv("SCHOOL_APP_ENV", "Production")
	t.Setenv("SCHOOL_RESULTS_CACHE_TTL", "30s")
	t.Setenv("SCHOOL_SCORES_EXAM_MAX", "60")
	t.Setenv("SCHOOL_GRADING_LEGACY_AGGREGATION", "true")
	t.Setenv("SCHOOL_CORS_ALLOW_ORIGINS", "https://portal.example.sch")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.True(t, cfg.IsProduction())
	require.Equal(t, 30*time.Second, cfg.ResultsCacheTTL)
	require.Equal(t, 60.0, cfg.Scores.ExamMax)
	require.True(t, cfg.LegacyAggregation)
	require.Equal(t, "https://portal.example.sch", cfg.CORSAllowOrigins)
	require.False(t, cfg.SeedEnabled)
}

func TestLoadSeedSettings(t *testing.T) {
	t.Setenv("SCHOOL_JWT_SECRET", "secret")
	t.Setenv("SCHOOL_SEED_ENABLED", "true")
	t.Setenv("SCHOOL_SEED_TOKEN", "seed-me")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.SeedEnabled)
	require.Equal(t, "seed-me", cfg.SeedToken)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SCHOOL_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SCHOOL_JWT_SECRET", "secret")
	t.Setenv("SCHOOL_RESULTS_CACHE_TTL", "soon")
	_, err = Load()
	require.Error(t, err)
}
