package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "test_duration",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "test_duration_invalid",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "test_duration_missing",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("SMARTMARKS_"+strings.ToUpper(tt.key), tt.value)
			}
			assert.Equal(t, tt.expected, mustDuration(newEnvViper(), tt.key, tt.def))
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", key: "test_bool", value: "true", def: false, expected: true},
		{name: "false value", key: "test_bool_false", value: "false", def: true, expected: false},
		{name: "invalid value uses default", key: "test_bool_invalid", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", key: "test_bool_missing", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("SMARTMARKS_"+strings.ToUpper(tt.key), tt.value)
			}
			assert.Equal(t, tt.expected, mustBool(newEnvViper(), tt.key, tt.def))
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "single value", value: "value1", expected: []string{"value1"}},
		{name: "multiple values", value: "value1, value2, value3", expected: []string{"value1", "value2", "value3"}},
		{name: "quoted values", value: `"a.example.com", 'b.example.com'`, expected: []string{"a.example.com", "b.example.com"}},
		{name: "empty", value: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitAndTrim(tt.value))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenPort)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "https://accounts.google.com", cfg.OIDCIssuer)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SessionSweep)
	assert.True(t, cfg.Standalone())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smartmarks.yaml")
	content := `listen_port: ":9090"
database_path: /data/from-file.db
redis_addr: redis:6379
allowed_hosts: "marks.domain.ext, marks.lan"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SMARTMARKS_DATABASE_PATH", "/data/from-env.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenPort)
	assert.Equal(t, "/data/from-env.db", cfg.DatabasePath)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.False(t, cfg.Standalone())
	assert.Equal(t, []string{"marks.domain.ext", "marks.lan"}, cfg.AllowedHosts)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		DatabasePath:     "/data/smartmarks.db",
		SessionSecret:    "0123456789abcdef0123456789abcdef",
		OIDCClientID:     "client",
		OIDCClientSecret: "secret",
		OIDCRedirectURL:  "https://marks.domain.ext/auth/callback",
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing oidc", func(t *testing.T) {
		cfg := valid
		cfg.OIDCClientID = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SMARTMARKS_OIDC_CLIENT_ID")
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := valid
		cfg.SessionSecret = "short"
		assert.ErrorContains(t, cfg.Validate(), "at least 32 bytes")
	})

	t.Run("redis password required", func(t *testing.T) {
		cfg := valid
		cfg.RedisAddr = "redis:6379"
		cfg.RedisPasswordRequired = true
		assert.ErrorContains(t, cfg.Validate(), "SMARTMARKS_REDIS_PASSWORD")
	})
}

func TestRedacted(t *testing.T) {
	cfg := Config{SessionSecret: "s3cr3t", RedisPassword: "pw", OIDCClientSecret: "oidc"}
	r := cfg.Redacted()
	assert.NotContains(t, []string{r.SessionSecret, r.RedisPassword, r.OIDCClientSecret}, "s3cr3t")
	assert.Equal(t, "s3cr3t", cfg.SessionSecret, "original must not be modified")
}
