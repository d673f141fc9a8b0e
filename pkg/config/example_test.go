package config_test

import (
	"fmt"
	"log"
	"os"

	"github.com/ajitpratap0/nebula-blocks/pkg/config"
)

// ExampleDefault demonstrates the default configuration.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Compression: %s\n", cfg.Page.Compression)
	fmt.Printf("Checksum: %v\n", cfg.Page.Checksum)
	fmt.Printf("Max depth: %d\n", cfg.Serde.MaxDepth)

	// Output:
	// Compression: lz4
	// Checksum: true
	// Max depth: 64
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Page.Compression = "zstd"
	cfg.Page.CompressionLevel = 9

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Page.Compression = "brotli"
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid!
	// config: unsupported compression algorithm: brotli
}

// ExampleParse demonstrates YAML loading with environment substitution.
func ExampleParse() {
	os.Setenv("BLOCKS_COMPRESSION", "snappy")
	defer os.Unsetenv("BLOCKS_COMPRESSION")

	yaml := []byte(`
page:
  compression: ${BLOCKS_COMPRESSION}
  checksum: false
serde:
  max_depth: 8
`)
	cfg := config.Default()
	if err := config.Parse(yaml, cfg); err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Page.Compression, cfg.Page.Checksum, cfg.Serde.MaxDepth, cfg.Serde.MaxPositions)

	// Output:
	// snappy false 8 16777216
}
