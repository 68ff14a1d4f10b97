package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Option adjusts how environment variables are mapped onto a struct.
type Option func(*env.Options)

// WithPrefix prepends prefix to every env tag, e.g. "FILE_" turns
// `env:"PERMISSIONS"` into FILE_PERMISSIONS.
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithEnvironment parses from the given map instead of the process environment.
// Mostly useful in tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = vars
	}
}

// Load parses environment variables into a new value of T.
// The default .env file is read the first time Load is called; its absence is not an error.
//
// Example:
//
//	type S3Config struct {
//		Bucket string `env:"BUCKET,required"`
//		Region string `env:"REGION" envDefault:"us-east-1"`
//	}
//
//	cfg, err := config.Load[S3Config](config.WithPrefix("STORAGE_S3_"))
func Load[T any](opts ...Option) (T, error) {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional
		_ = godotenv.Load()
	})

	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}

	v, err := env.ParseAsWithOptions[T](o)
	if err != nil {
		var zero T
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return v, nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Use it for configuration the application cannot start without.
func MustLoad[T any](opts ...Option) T {
	v, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
	return v
}

// LoadEnv reads the given .env files into the process environment.
// Variables that are already set are not overridden.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadingEnvFile, err)
	}
	return nil
}
