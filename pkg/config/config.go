// Package config defines the configuration of the block serde, the page
// codec and the ambient logging and observability stack.
//
// The configuration is organized into sections:
//   - Serde: limits applied while decoding blocks
//   - Page: compression, checksums and page size limits
//   - Logging: zap logger settings
//   - Observability: metrics and tracing
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Page.Compression = "zstd"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/compression"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/logger"
)

// Config is the top-level configuration.
type Config struct {
	Serde         SerdeConfig         `yaml:"serde" json:"serde"`
	Page          PageConfig          `yaml:"page" json:"page"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SerdeConfig bounds what a block decoder will accept.
type SerdeConfig struct {
	// MaxDepth limits block nesting
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	// MaxPositions limits the position count of any single block
	MaxPositions int `yaml:"max_positions" json:"max_positions"`
}

// PageConfig controls page serialization.
type PageConfig struct {
	// Compression selects the algorithm (none, gzip, snappy, lz4, zstd, s2, deflate)
	Compression string `yaml:"compression" json:"compression"`
	// CompressionLevel sets compression ratio vs speed (1-9)
	CompressionLevel int `yaml:"compression_level" json:"compression_level"`
	// CompressionThreshold skips compression for smaller bodies
	CompressionThreshold int `yaml:"compression_threshold" json:"compression_threshold"`
	// Checksum appends an XXH64 checksum of the uncompressed body
	Checksum bool `yaml:"checksum" json:"checksum"`
	// MaxPageSize rejects pages whose uncompressed body is larger
	MaxPageSize int `yaml:"max_page_size" json:"max_page_size"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Encoding    string   `yaml:"encoding" json:"encoding"`
	Development bool     `yaml:"development" json:"development"`
	OutputPaths []string `yaml:"output_paths,omitempty" json:"output_paths,omitempty"`
}

// ObservabilityConfig contains monitoring and tracing settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus collectors
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry spans
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
	// ServiceName is reported on every span
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// Default returns a configuration with production defaults.
func Default() *Config {
	return &Config{
		Serde: SerdeConfig{
			MaxDepth:     64,
			MaxPositions: 1 << 24,
		},
		Page: PageConfig{
			Compression:          string(compression.LZ4),
			CompressionLevel:     int(compression.Default),
			CompressionThreshold: 1024,
			Checksum:             true,
			MaxPageSize:          64 << 20,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			TracingSampleRate: 0.1,
			ServiceName:       "nebula-blocks",
		},
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Serde.MaxDepth <= 0 {
		return invalid("serde.max_depth must be positive")
	}
	if c.Serde.MaxPositions <= 0 {
		return invalid("serde.max_positions must be positive")
	}
	if _, err := compression.ParseAlgorithm(c.Page.Compression); err != nil {
		return err
	}
	if c.Page.CompressionLevel < 0 || c.Page.CompressionLevel > 9 {
		return invalid("page.compression_level must be within 0-9")
	}
	if c.Page.CompressionThreshold < 0 {
		return invalid("page.compression_threshold cannot be negative")
	}
	if c.Page.MaxPageSize <= 0 {
		return invalid("page.max_page_size must be positive")
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return invalid("observability.tracing_sample_rate must be within 0.0-1.0")
	}
	return nil
}

func invalid(msg string) error {
	return errors.New(errors.ErrorTypeConfig, msg)
}

// CompressionConfig converts the page section into a compressor config.
func (p *PageConfig) CompressionConfig() (*compression.Config, error) {
	a, err := compression.ParseAlgorithm(p.Compression)
	if err != nil {
		return nil, err
	}
	return &compression.Config{Algorithm: a, Level: compression.Level(p.CompressionLevel)}, nil
}

// IsCompressionEnabled returns true if pages should be compressed
func (p *PageConfig) IsCompressionEnabled() bool {
	a, err := compression.ParseAlgorithm(p.Compression)
	return err == nil && a != compression.None
}

// LoggerConfig converts the logging section for logger.Init.
func (l *LoggingConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       l.Level,
		Development: l.Development,
		Encoding:    l.Encoding,
		OutputPaths: l.OutputPaths,
	}
}
