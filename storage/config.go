package storage

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/attachkit/file"
	"github.com/dmitrymomot/attachkit/pkg/config"
)

// LocalConfig contains configuration for local filesystem storage.
type LocalConfig struct {
	BaseDir   string      `env:"BASE_DIR" envDefault:"./uploads"`
	BaseURL   string      `env:"BASE_URL" envDefault:"/uploads/"`
	Move      bool        `env:"MOVE" envDefault:"false"`
	UUIDNames bool        `env:"UUID_NAMES" envDefault:"false"`
	File      file.Config `envPrefix:"FILE_"`
}

// S3Config contains configuration for S3 storage.
type S3Config struct {
	Bucket         string        `env:"BUCKET"`
	Region         string        `env:"REGION" envDefault:"us-east-1"`
	AccessKeyID    string        `env:"ACCESS_KEY_ID"`
	SecretKey      string        `env:"SECRET_KEY"`
	Endpoint       string        `env:"ENDPOINT"`         // Optional: for S3-compatible services
	BaseURL        string        `env:"BASE_URL"`         // Public URL base for serving files
	ForcePathStyle bool          `env:"FORCE_PATH_STYLE"` // For S3-compatible services like MinIO
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT"`
	UUIDNames      bool          `env:"UUID_NAMES" envDefault:"false"`
}

// LoadLocalConfig reads STORAGE_LOCAL_* variables,
// e.g. STORAGE_LOCAL_BASE_DIR or STORAGE_LOCAL_FILE_PERMISSIONS.
func LoadLocalConfig(opts ...config.Option) (LocalConfig, error) {
	opts = append([]config.Option{config.WithPrefix("STORAGE_LOCAL_")}, opts...)
	cfg, err := config.Load[LocalConfig](opts...)
	if err != nil {
		return LocalConfig{}, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return cfg, nil
}

// LoadS3Config reads STORAGE_S3_* variables, e.g. STORAGE_S3_BUCKET.
func LoadS3Config(opts ...config.Option) (S3Config, error) {
	opts = append([]config.Option{config.WithPrefix("STORAGE_S3_")}, opts...)
	cfg, err := config.Load[S3Config](opts...)
	if err != nil {
		return S3Config{}, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return cfg, nil
}
