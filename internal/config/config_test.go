package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "westtrac", cfg.Database.DBName)
	assert.Equal(t, int64(10), cfg.Database.MaxConcurrentQueries)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 3600, cfg.Cache.SeasonalTTLSeconds)
	assert.Equal(t, "nl", cfg.Seasonal.Locale)
	assert.False(t, cfg.Seasonal.RenormalizeMissingLevels)
	assert.Equal(t, 2_000_000, cfg.Seasonal.MaxRecords)
	assert.Equal(t, 4, cfg.Seasonal.Workers)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("SEASONAL_LOCALE", "EN")
	t.Setenv("SEASONAL_RENORMALIZE_MISSING_LEVELS", "true")
	t.Setenv("CACHE_ENABLED", "true")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := fromViper(v)

	assert.Equal(t, "en", cfg.Seasonal.Locale)
	assert.True(t, cfg.Seasonal.RenormalizeMissingLevels)
	assert.True(t, cfg.Cache.Enabled)
}
