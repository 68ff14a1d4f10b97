package file

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrymomot/attachkit/pkg/config"
)

const (
	// DefaultDirPermissions is used for directories created by MoveTo and CopyTo.
	DefaultDirPermissions os.FileMode = 0o755

	// defaultFilePermissions is the create mode of freshly written files when
	// no explicit permissions were configured. The process umask still applies.
	defaultFilePermissions os.FileMode = 0o644
)

// Option configures a File.
type Option func(*options)

type options struct {
	perm    os.FileMode
	permSet bool
	dirPerm os.FileMode
}

func defaultOptions() options {
	return options{dirPerm: DefaultDirPermissions}
}

// WithPermissions sets the mode applied to every file this File writes.
// Without it, written files keep whatever mode the OS gives them.
func WithPermissions(mode os.FileMode) Option {
	return func(o *options) {
		o.perm = mode.Perm()
		o.permSet = true
	}
}

// WithDirPermissions sets the mode of directories created on demand.
func WithDirPermissions(mode os.FileMode) Option {
	return func(o *options) {
		if mode != 0 {
			o.dirPerm = mode.Perm()
		}
	}
}

// WithConfig applies modes loaded from the environment.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		for _, opt := range cfg.Options() {
			opt(o)
		}
	}
}

// Mode is a permission mode written in octal, e.g. "0640" or "0o640".
type Mode os.FileMode

// UnmarshalText parses an octal permission string.
func (m *Mode) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	if s == "" {
		*m = 0
		return nil
	}

	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrFailedToParsePermissions, text, err)
	}
	*m = Mode(os.FileMode(v).Perm())
	return nil
}

// FileMode returns m as an os.FileMode.
func (m Mode) FileMode() os.FileMode {
	return os.FileMode(m).Perm()
}

func (m Mode) String() string {
	return fmt.Sprintf("%#o", uint32(m))
}

// Config holds File settings loaded from FILE_* environment variables.
// A zero Permissions leaves written files untouched.
type Config struct {
	Permissions    Mode `env:"PERMISSIONS"`
	DirPermissions Mode `env:"DIRECTORY_PERMISSIONS" envDefault:"0755"`
}

// Options converts the config into File options.
func (c Config) Options() []Option {
	opts := make([]Option, 0, 2)
	if c.Permissions != 0 {
		opts = append(opts, WithPermissions(c.Permissions.FileMode()))
	}
	if c.DirPermissions != 0 {
		opts = append(opts, WithDirPermissions(c.DirPermissions.FileMode()))
	}
	return opts
}

// LoadConfig reads FILE_PERMISSIONS and FILE_DIRECTORY_PERMISSIONS.
func LoadConfig(opts ...config.Option) (Config, error) {
	opts = append([]config.Option{config.WithPrefix("FILE_")}, opts...)
	cfg, err := config.Load[Config](opts...)
	if err != nil {
		return Config{}, fmt.Errorf("load file config: %w", err)
	}
	return cfg, nil
}
