package filemagic

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Number of leading bytes scanned for signatures
	BufferSize int `env:"FILEMAGIC_BUFFER_SIZE,default:1024"`

	// Rewind and re-read the prefix before inspecting zip containers
	RereadContainer bool `env:"FILEMAGIC_REREAD_CONTAINER,default:true"`

	// zerolog level name (trace, debug, info, warn, error, disabled)
	LogLevel string `env:"FILEMAGIC_LOG_LEVEL,default:disabled"`

	// Content-addressed result cache
	CacheEnabled bool   `env:"FILEMAGIC_CACHE_ENABLED,default:false"`
	CacheTTL     string `env:"FILEMAGIC_CACHE_TTL,default:5m"` // time.ParseDuration format, 0 disables expiry
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
