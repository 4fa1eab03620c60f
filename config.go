package filecache

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
)

// ByteSize is a byte count that can be loaded from a human-readable string
// ("10GB", "512MiB") via caarlos0/env's TextUnmarshaler support, and printed
// back the same way.
type ByteSize int64

// UnmarshalText lets ByteSize be populated directly from environment
// variables and ini values without a separate parsing pass.
func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return fmt.Errorf("filecache: invalid byte size %q: %w", text, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return humanize.Bytes(uint64(b))
}

// Config is the cache's structured configuration surface. Defaults are
// supplied by the host (DefaultConfig); callers may override per-instance
// by constructing a Config literal or by loading from the environment.
type Config struct {
	// Path is the cache root directory.
	Path string `env:"CACHE_PATH" envDefault:"/var/cache/filecache"`
	// MaxAge is the age threshold (minutes) past which an entry becomes
	// eligible for age-based eviction.
	MaxAge int `env:"CACHE_MAX_AGE_MINUTES" envDefault:"1440"`
	// MaxSize is the aggregate size ceiling enforced by size-based eviction.
	MaxSize ByteSize `env:"CACHE_MAX_SIZE" envDefault:"10GB"`
	// MaxFileSize bounds any single cached file; negative disables the check.
	MaxFileSize ByteSize `env:"CACHE_MAX_FILE_SIZE" envDefault:"2GB"`
	// Timeout bounds remote reads.
	Timeout time.Duration `env:"CACHE_TIMEOUT" envDefault:"30s"`
	// MimeTypes is the permitted-MIME allow-set; empty means unrestricted.
	MimeTypes []string `env:"CACHE_MIME_TYPES" envSeparator:","`
	// BindIP, if set, forces RemoteReader connections to this address while
	// preserving the request's Host header.
	BindIP string `env:"CACHE_BIND_IP" envDefault:""`
}

// DefaultConfig returns the zero-value-safe baseline configuration.
func DefaultConfig() Config {
	var cfg Config
	_ = env.Parse(&cfg) // defaults only; err is non-nil only on bad struct tags
	return cfg
}

// LoadConfigFromEnv parses Config fields from environment variables,
// starting from DefaultConfig's envDefault values.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("filecache: loading config from environment: %w", err)
	}
	return cfg, nil
}

// mimeAllowed reports whether mimeType passes the configured allow-set.
// An empty allow-set permits everything.
func (c Config) mimeAllowed(mimeType string) bool {
	if len(c.MimeTypes) == 0 {
		return true
	}
	for _, allowed := range c.MimeTypes {
		if allowed == mimeType {
			return true
		}
	}
	return false
}

func (c Config) maxAgeDuration() time.Duration {
	return time.Duration(c.MaxAge) * time.Minute
}
