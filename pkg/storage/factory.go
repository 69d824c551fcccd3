package storage

import (
	"fmt"
	"time"

	"github.com/yi-nology/survey_vault/pkg/storage/local"
	"github.com/yi-nology/survey_vault/pkg/storage/s3"
)

// DefaultTokenTTL is how long minted read tokens stay valid.
const DefaultTokenTTL = time.Hour

// Config holds storage backend configuration.
type Config struct {
	Type     string        `yaml:"type"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	Local    LocalConfig   `yaml:"local"`
	S3       S3Config      `yaml:"s3"`
}

// LocalConfig holds local storage configuration.
type LocalConfig struct {
	BasePath   string `yaml:"base_path"`
	SigningKey string `yaml:"signing_key"`
}

// S3Config holds S3-compatible storage configuration. Containers map onto
// buckets of the same name.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// New creates a storage adapter based on configuration.
func New(cfg Config) (Storage, error) {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	switch cfg.Type {
	case "", "local":
		basePath := cfg.Local.BasePath
		if basePath == "" {
			basePath = "data/blobs"
		}
		return local.New(local.Config{
			BasePath:   basePath,
			SigningKey: []byte(cfg.Local.SigningKey),
			TokenTTL:   ttl,
		})

	case "s3":
		return s3.New(s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
			TokenTTL:  ttl,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// DefaultConfig returns the default storage configuration (local storage).
func DefaultConfig() Config {
	return Config{
		Type:     "local",
		TokenTTL: DefaultTokenTTL,
		Local: LocalConfig{
			BasePath: "data/blobs",
		},
		S3: S3Config{
			Region:    "us-east-1",
			PathStyle: true,
		},
	}
}
