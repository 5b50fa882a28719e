// Package config loads the runtime YAML configuration with strict field
// checking, applies defaults, and validates the result.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "plughub"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN, overrides database.*
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	Paths          RuntimePathsConfig    `yaml:"paths"`
	LogRotateSize  *int                  `yaml:"log_rotate_size_mb"`
	LogRotateKeep  *int                  `yaml:"log_rotate_keep"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	AdminToken     string                `yaml:"admin_token"`
	Timezone       string                `yaml:"timezone"`

	Channels   []ChannelConfig  `yaml:"channels"`
	Categories []CategoryConfig `yaml:"categories"`
	Sync       SyncConfig       `yaml:"sync"`
	S3         S3Config         `yaml:"s3"`
}

// ChannelConfig names one source channel.
type ChannelConfig struct {
	Handle string `yaml:"handle"`
	ChatID int64  `yaml:"chat_id"`
	Limit  int    `yaml:"limit"`
}

// CategoryConfig maps one category key to its hashtag variants.
type CategoryConfig struct {
	Key   string `yaml:"key"`
	TagRU string `yaml:"tag_ru"`
	TagEN string `yaml:"tag_en"`
}

// SyncConfig controls the scheduled channel reconciliation.
type SyncConfig struct {
	Enable          bool   `yaml:"enable"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	ExportDir       string `yaml:"export_dir"`
}

// S3Config is the optional remote backup target.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

// Enabled reports whether remote backup upload is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type RuntimePathsConfig struct {
	Logs    string `yaml:"logs"`
	Backups string `yaml:"backups"`
	Exports string `yaml:"exports"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	normalize(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("invalid redis.port %d in %q, expected 1-65535", cfg.Redis.Port, path)
	}
	if cfg.Redis.DB < 0 {
		return nil, fmt.Errorf("invalid redis.db %d in %q, expected >= 0", cfg.Redis.DB, path)
	}
	for i, ch := range cfg.Channels {
		if strings.TrimSpace(ch.Handle) == "" {
			return nil, fmt.Errorf("channels[%d] in %q has empty handle", i, path)
		}
	}
	for i, cat := range cfg.Categories {
		if strings.TrimSpace(cat.Key) == "" {
			return nil, fmt.Errorf("categories[%d] in %q has empty key", i, path)
		}
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Sync: SyncConfig{
			Enable:          true,
			IntervalMinutes: 60,
		},
	}
	normalize(&cfg)
	return cfg
}

func normalize(cfg *AppConfig) {
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	if v := strings.TrimSpace(cfg.DSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(cfg.RedisURL); v != "" {
		cfg.Redis.URL = normalizeRedisRawURL(v)
	}
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.AdminToken = strings.TrimSpace(cfg.AdminToken)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)

	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.Paths.Backups = strings.TrimSpace(cfg.Paths.Backups)
	cfg.Paths.Exports = strings.TrimSpace(cfg.Paths.Exports)

	if cfg.Sync.IntervalMinutes <= 0 {
		cfg.Sync.IntervalMinutes = 60
	}
	if cfg.Sync.ExportDir == "" {
		cfg.Sync.ExportDir = cfg.ExportDir()
	}
	for i := range cfg.Channels {
		cfg.Channels[i].Handle = strings.TrimPrefix(strings.TrimSpace(cfg.Channels[i].Handle), "@")
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) BackupDir() string {
	if c == nil {
		return ResolveRuntimePath("", "backups")
	}
	return ResolveRuntimePath(c.Paths.Backups, "backups")
}

func (c *AppConfig) ExportDir() string {
	if c == nil {
		return ResolveRuntimePath("", "exports")
	}
	return ResolveRuntimePath(c.Paths.Exports, "exports")
}

func (c *AppConfig) LogRotateSizeMB() (int, bool) {
	if c == nil || c.LogRotateSize == nil {
		return 0, false
	}
	return *c.LogRotateSize, true
}

func (c *AppConfig) LogRotateKeepCount() (int, bool) {
	if c == nil || c.LogRotateKeep == nil {
		return 0, false
	}
	return *c.LogRotateKeep, true
}
