// AngelaMos | 2026
// config_test.go

package config

import (
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	k := koanf.New(".")
	require.NoError(t, loadDefaults(k))

	c := &Config{}
	require.NoError(t, k.Unmarshal("", c))

	c.Database.URL = "postgres://localhost/directory"
	c.Redis.URL = "redis://localhost:6379"
	return c
}

func TestDefaults(t *testing.T) {
	c := validConfig(t)

	require.NoError(t, validate(c))
	assert.Equal(t, 15*time.Minute, c.Verification.CodeTTL)
	assert.Equal(t, 6, c.Verification.CodeLength)
	assert.Equal(t, 24*time.Hour, c.Jobs.AdSweepInterval)
	assert.False(t, c.Mail.Enabled)
	assert.True(t, c.IsDevelopment())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing database", func(c *Config) { c.Database.URL = "" }},
		{"missing redis", func(c *Config) { c.Redis.URL = "" }},
		{"zero code ttl", func(c *Config) { c.Verification.CodeTTL = 0 }},
		{"wrong code length", func(c *Config) { c.Verification.CodeLength = 4 }},
		{"mail without host", func(c *Config) { c.Mail.Enabled = true }},
		{"wildcard cors with credentials", func(c *Config) {
			c.CORS.AllowedOrigins = []string{"*"}
		}},
		{"production without mail", func(c *Config) { c.App.Environment = "production" }},
		{"zero job interval", func(c *Config) { c.Jobs.CodePurgeInterval = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig(t)
			tc.mutate(c)
			assert.Error(t, validate(c))
		})
	}
}

func TestEnvKeyReplacer(t *testing.T) {
	assert.Equal(t, "database.url", envKeyReplacer("DATABASE_URL"))
	assert.Equal(t, "mail.host", envKeyReplacer("SMTP_HOST"))
	assert.Equal(t, "", envKeyReplacer("HOME"))
}
