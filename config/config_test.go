package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OSU_CLIENT_ID", "123")
	t.Setenv("OSU_CLIENT_SECRET", "secret")
	t.Setenv("DISCORD_TOKEN", "token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"DISCORD_DEFAULT_PREFIX", "OSU_TOKEN_MAX_AGE", "RENDER_TIMEOUT", "MAX_CONCURRENT_RENDERS", "TWITCH_CHANNELS", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ">>", cfg.DefaultPrefix)
	assert.Equal(t, "https://osu.ppy.sh/api/v2", cfg.OsuAPIURL)
	assert.Equal(t, time.Hour, cfg.OsuTokenMaxAge)
	assert.Equal(t, 5*time.Minute, cfg.RenderTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrentRender)
	assert.Equal(t, "Aswo", cfg.OrdrUsername)
	assert.Equal(t, "1280x720", cfg.OrdrResolution)
	assert.Empty(t, cfg.TwitchChannels)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv("RENDER_TIMEOUT", "soon")
	t.Setenv("MAX_CONCURRENT_RENDERS", "many")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RENDER_TIMEOUT")
	assert.Contains(t, err.Error(), "MAX_CONCURRENT_RENDERS")
}

func TestValidate(t *testing.T) {
	t.Run("missing osu credentials", func(t *testing.T) {
		setRequired(t)
		t.Setenv("OSU_CLIENT_SECRET", "")
		cfg, err := Load()
		require.NoError(t, err)
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OsuClientSecret")
	})

	t.Run("no front-end", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DISCORD_TOKEN", "")
		t.Setenv("TWITCH_BOT_USERNAME", "")
		cfg, err := Load()
		require.NoError(t, err)
		assert.ErrorContains(t, cfg.Validate(), "no chat front-end")
	})

	t.Run("twitch only", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DISCORD_TOKEN", "")
		t.Setenv("TWITCH_BOT_USERNAME", "aswo")
		t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:x")
		t.Setenv("TWITCH_CHANNELS", " chan1, ,chan2 ")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"chan1", "chan2"}, cfg.TwitchChannels)
		assert.True(t, cfg.TwitchEnabled())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad prefix", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DISCORD_DEFAULT_PREFIX", "waytoolongprefix")
		cfg, err := Load()
		require.NoError(t, err)
		assert.ErrorContains(t, cfg.Validate(), "DefaultPrefix")
	})
}

func TestLoadOTLPEndpoint(t *testing.T) {
	setRequired(t)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}
