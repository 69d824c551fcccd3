package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yi-nology/survey_vault/pkg/assetstorage"
	"github.com/yi-nology/survey_vault/pkg/storage"
	"github.com/yi-nology/survey_vault/pkg/validator"

	"gopkg.in/yaml.v3"
)

// Config captures service level configuration loaded from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	CORS     CORSConfig     `yaml:"cors"`
	Upload   UploadConfig   `yaml:"upload"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
}

// RedisConfig defines Redis connection settings for the grant cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// KeyPrefix namespaces every key the service writes, so several
	// deployments can share one Redis database.
	KeyPrefix    string        `yaml:"key_prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CORSConfig defines CORS middleware settings.
type CORSConfig struct {
	AllowOrigin      string `yaml:"allow_origin"`
	AllowMethods     string `yaml:"allow_methods"`
	AllowHeaders     string `yaml:"allow_headers"`
	AllowCredentials bool   `yaml:"allow_credentials"`
}

// UploadConfig defines file upload constraints.
type UploadConfig struct {
	MaxSize      int64    `yaml:"max_size"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// ServerConfig defines HTTP server options.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// AuthConfig defines how sessions are verified.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	Issuer        string `yaml:"issuer"`
	SessionCookie string `yaml:"session_cookie"`
}

// DatabaseConfig defines the database backend configuration.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// StorageConfig describes the private asset storage: which host and
// containers hold survey assets and which backend mints their tokens.
type StorageConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Private    bool             `yaml:"private"`
	HostName   string           `yaml:"host_name"`
	Containers ContainersConfig `yaml:"containers"`
	Backend    storage.Config   `yaml:",inline"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ContainersConfig names the physical containers.
type ContainersConfig struct {
	UserFiles string `yaml:"user_files"`
	Content   string `yaml:"content"`
}

// CacheConfig controls the Redis cache of container grants.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RefreshMargin time.Duration `yaml:"refresh_margin"`
}

// AssetStorage builds the immutable configuration consumed by the asset
// authorization core.
func (s StorageConfig) AssetStorage() assetstorage.Config {
	return assetstorage.NewConfig(s.Enabled, s.Private, s.HostName, assetstorage.ContainerNames{
		UserFiles: s.Containers.UserFiles,
		Content:   s.Containers.Content,
	})
}

// Load reads a YAML configuration file from the provided path.
// It searches in the current working directory first, then next to the binary executable.
func Load(name string) (*Config, error) {
	cfg := defaultConfig()

	configPath := findConfigFile(name)
	if configPath == "" {
		log.Printf("Warning: config file %q not found, using defaults", name)
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	log.Printf("Loading config from: %s", configPath)
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var parsed Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&parsed)
	applyEnvOverrides(&parsed)
	if err := validate(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/survey_vault.db",
			},
		},
		CORS: CORSConfig{
			AllowOrigin:      "*",
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders:     "*",
			AllowCredentials: false,
		},
		Upload: UploadConfig{
			MaxSize: 10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{
				"image/jpeg",
				"image/png",
				"image/gif",
				"image/webp",
				"image/svg+xml",
				"application/pdf",
				"text/plain",
				"text/csv",
				"audio/mpeg",
				"audio/wave",
				"application/ogg",
				"video/webm",
				"video/mp4",
			},
		},
		Redis: RedisConfig{
			Address:     "localhost:6379",
			KeyPrefix:   storage.DefaultKeyPrefix,
			DialTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			SessionCookie: "session_token",
		},
		Storage: StorageConfig{
			Enabled:  true,
			Private:  true,
			HostName: "localhost",
			Containers: ContainersConfig{
				UserFiles: "user-files",
				Content:   "content",
			},
			Backend: storage.DefaultConfig(),
			Cache: CacheConfig{
				RefreshMargin: storage.DefaultRefreshMargin,
			},
		},
	}
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Server.Address == "" {
		cfg.Server.Address = def.Server.Address
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = def.Database.Driver
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = def.Database.SQLite.Path
	}
	if cfg.Upload.MaxSize <= 0 {
		cfg.Upload.MaxSize = def.Upload.MaxSize
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		cfg.Upload.AllowedTypes = def.Upload.AllowedTypes
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = def.Redis.Address
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = def.Redis.KeyPrefix
	}
	if cfg.Redis.DialTimeout <= 0 {
		cfg.Redis.DialTimeout = def.Redis.DialTimeout
	}
	if cfg.Auth.SessionCookie == "" {
		cfg.Auth.SessionCookie = def.Auth.SessionCookie
	}
	if cfg.Storage.Containers.UserFiles == "" {
		cfg.Storage.Containers.UserFiles = def.Storage.Containers.UserFiles
	}
	if cfg.Storage.Containers.Content == "" {
		cfg.Storage.Containers.Content = def.Storage.Containers.Content
	}
	if cfg.Storage.Backend.Type == "" {
		cfg.Storage.Backend.Type = def.Storage.Backend.Type
	}
	if cfg.Storage.Backend.TokenTTL <= 0 {
		cfg.Storage.Backend.TokenTTL = def.Storage.Backend.TokenTTL
	}
	if cfg.Storage.Backend.Local.BasePath == "" {
		cfg.Storage.Backend.Local.BasePath = def.Storage.Backend.Local.BasePath
	}
	if cfg.Storage.Backend.S3.Region == "" {
		cfg.Storage.Backend.S3.Region = def.Storage.Backend.S3.Region
	}
	if cfg.Storage.Cache.RefreshMargin <= 0 {
		cfg.Storage.Cache.RefreshMargin = def.Storage.Cache.RefreshMargin
	}
}

// applyEnvOverrides lets secrets stay out of config.yaml.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"STORAGE_SIGNING_KEY", &cfg.Storage.Backend.Local.SigningKey},
		{"STORAGE_S3_ACCESS_KEY", &cfg.Storage.Backend.S3.AccessKey},
		{"STORAGE_S3_SECRET_KEY", &cfg.Storage.Backend.S3.SecretKey},
		{"AUTH_JWT_SECRET", &cfg.Auth.JWTSecret},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func validate(cfg *Config) error {
	if !cfg.Storage.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Storage.HostName) == "" {
		return fmt.Errorf("storage.host_name must be configured when storage is enabled")
	}
	user := strings.ToLower(strings.TrimSpace(cfg.Storage.Containers.UserFiles))
	content := strings.ToLower(strings.TrimSpace(cfg.Storage.Containers.Content))
	if user == content {
		return fmt.Errorf("storage containers must differ, both are %q", user)
	}
	for _, name := range []string{user, content} {
		if !validator.ValidateContainerName(name) {
			return fmt.Errorf("storage container %q is not a valid container name", name)
		}
		if _, reserved := reservedContainerNames[name]; reserved {
			return fmt.Errorf("storage container %q collides with a server route", name)
		}
	}
	return nil
}

// reservedContainerNames are path prefixes the HTTP server routes itself;
// blobs are served under /<container>/.
var reservedContainerNames = map[string]struct{}{"api": {}, "ping": {}}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	// 1. Current working directory
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	// 2. Next to the binary executable
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		candidate := filepath.Join(exeDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
