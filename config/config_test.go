package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "")
	t.Setenv("RETENTION_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 180, cfg.Retention.Days)
	assert.Equal(t, "0 3 * * *", cfg.Retention.Schedule)
	assert.Equal(t, 12*time.Hour, cfg.Capture.NonceTTL)
	assert.Equal(t, "cart_session", cfg.Capture.SessionCookie)
	assert.False(t, cfg.Retention.ArchiveEnabled())
	assert.Equal(t, 100, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoad_PoolOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "8")
	t.Setenv("DB_CONN_MAX_LIFETIME", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoad_RejectsNonPositiveRetention(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "0")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestParseSlice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "Empty", input: "", want: []string{}},
		{name: "Single", input: "http://a", want: []string{"http://a"}},
		{name: "Trims and skips blanks", input: "http://a, ,http://b ", want: []string{"http://a", "http://b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSlice(tt.input)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Fallback(t *testing.T) {
	assert.Equal(t, time.Hour, parseDuration("nope", time.Hour))
	assert.Equal(t, 90*time.Minute, parseDuration("90m", time.Hour))
}
