package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "admin_token: secret\n"))
	require.NoError(t, err)

	assert.Equal(t, 2333, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "secret", cfg.AdminToken)
	assert.Contains(t, cfg.DSN, "tcp(127.0.0.1:3306)/plughub")
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.True(t, cfg.Sync.Enable)
	assert.Equal(t, 60, cfg.Sync.IntervalMinutes)
	assert.NotEmpty(t, cfg.Sync.ExportDir)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
port: 8080
env: Production
dsn: user:pass@tcp(db:3306)/catalog?parseTime=true
redis_url: redis:6379
admin_token: "  token  "
channels:
  - handle: "@plugins_demo"
    chat_id: -100123
    limit: 500
categories:
  - key: widgets
    tag_ru: "#виджеты"
    tag_en: "#widgets"
sync:
  enable: false
  interval_minutes: 15
s3:
  bucket: backups
  region: us-east-1
  access_key_id: key
  secret_access_key: secret
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "user:pass@tcp(db:3306)/catalog?parseTime=true", cfg.DSN)
	assert.Equal(t, "redis://redis:6379", cfg.RedisURL)
	assert.Equal(t, "token", cfg.AdminToken)

	require.Len(t, cfg.Channels, 1)
	assert.Equal(t, "plugins_demo", cfg.Channels[0].Handle, "leading @ is stripped")
	assert.Equal(t, int64(-100123), cfg.Channels[0].ChatID)

	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, "widgets", cfg.Categories[0].Key)

	assert.False(t, cfg.Sync.Enable)
	assert.Equal(t, 15, cfg.Sync.IntervalMinutes)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "prot: 8080\n"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	_, err := Load(writeConfig(t, "port: 70000\n"))
	assert.Error(t, err)
}

func TestLoadRejectsEmptyChannelHandle(t *testing.T) {
	_, err := Load(writeConfig(t, "channels:\n  - handle: \"  \"\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestDatabaseFieldsBuildDSN(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  host: db.internal
  port: 3307
  user: plug
  password: hub
  name: catalog
`))
	require.NoError(t, err)

	assert.Contains(t, cfg.DSN, "plug:hub@tcp(db.internal:3307)/catalog")
	assert.Contains(t, cfg.DSN, "charset=utf8mb4")
	assert.Contains(t, cfg.DSN, "parseTime=true")
}

func TestS3DisabledWithoutCredentials(t *testing.T) {
	cfg, err := Load(writeConfig(t, "s3:\n  bucket: backups\n"))
	require.NoError(t, err)
	assert.False(t, cfg.S3.Enabled())
}
