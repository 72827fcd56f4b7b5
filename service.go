package filemagic

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/rs/zerolog"
)

// Global instance
var (
	defaultDetector ContentDetector
	defaultOnce     sync.Once
	defaultErr      error
)

// ContentDetector is implemented by *Detector and *CachingDetector.
type ContentDetector interface {
	Detect(src Source) (*FileType, error)
}

// Builder provides a way to create detectors with custom env prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global detector using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new detector using the builder's prefix
func (b *Builder) New() (ContentDetector, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg)
}

// Init initializes the global detector. Without a config it is loaded from
// the environment. Only the first call has any effect.
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 && configs[0] != nil {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultDetector, defaultErr = New(cfg)
	})

	return defaultErr
}

// InitFromEnv initializes the global detector from environment variables
func InitFromEnv() error {
	return Init()
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultDetector = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// Default returns the global detector. If Init was never called, or failed,
// a detector with built-in defaults is returned.
func Default() ContentDetector {
	if err := Init(); err != nil || defaultDetector == nil {
		return NewDetector()
	}
	return defaultDetector
}

// New creates a detector from cfg. When caching is enabled the detector is
// wrapped in a CachingDetector backed by a MemoryCache.
func New(cfg *Config, opts ...Option) (ContentDetector, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	level, _ := parseLevel(cfg.LogLevel)
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("component", "filemagic").Logger()

	options := []Option{
		WithBufferSize(cfg.BufferSize),
		WithContainerReread(cfg.RereadContainer),
		WithLogger(logger),
	}
	d := NewDetector(append(options, opts...)...)

	if !cfg.CacheEnabled {
		return d, nil
	}

	ttl, _ := parseTTL(cfg.CacheTTL)
	return NewCachingDetector(d, NewMemoryCache(), WithCacheTTL(ttl)), nil
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", cfg.BufferSize)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.CacheEnabled {
		if _, err := parseTTL(cfg.CacheTTL); err != nil {
			return err
		}
	}
	return nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.Disabled, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.Disabled, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func parseTTL(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid cache ttl %q: %w", s, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("cache ttl must not be negative, got %s", ttl)
	}
	return ttl, nil
}

// Detect detects the type of src with the global detector.
func Detect(src Source) (*FileType, error) {
	return Default().Detect(src)
}

// DetectReader detects the type of r with the global detector.
func DetectReader(r io.Reader) (*FileType, error) {
	if r == nil {
		return nil, ErrInvalidArgument
	}
	return Default().Detect(NewSource(r))
}

// DetectBytes detects the type of data with the global detector.
func DetectBytes(data []byte) (*FileType, error) {
	return Default().Detect(BytesSource(data))
}

// DetectFile detects the type of the named file with the global detector.
func DetectFile(name string) (*FileType, error) {
	src, err := OpenFileSource(name)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return Default().Detect(src)
}
