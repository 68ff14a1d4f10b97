// Package config loads typed configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
// the default `.env` file in the working directory is read once per process
// (a missing file is fine), then the environment is parsed into a struct
// using field tags. Every package of the module that exposes configuration
// goes through Load so defaults, prefixes and error reporting stay uniform.
//
// # Usage
//
//	type LocalConfig struct {
//	    BaseDir string `env:"BASE_DIR,required"`
//	    BaseURL string `env:"BASE_URL" envDefault:"/files/"`
//	}
//
//	cfg, err := config.Load[LocalConfig](config.WithPrefix("STORAGE_LOCAL_"))
//	if err != nil {
//	    return err
//	}
//
// Additional files can be loaded explicitly before parsing:
//
//	if err := config.LoadEnv("./deploy/.env"); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Parsing failures are reported as ErrParsingConfig joined with the error
// produced by the env library, so both errors.Is(err, config.ErrParsingConfig)
// and the library's own error types keep working.
package config
