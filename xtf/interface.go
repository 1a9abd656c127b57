package xtf

import (
	"fmt"

	"github.com/sokinpui/xtf/cli"
)

// Config for using xtf as a library.
type Config struct {
	// Directory is the project root changes are applied under. When empty,
	// XTF_PROJECT_DIRECTORY is consulted.
	Directory string
	// Extensions filters which file paths are applied (e.g. ".py").
	Extensions []string
}

// Apply parses a change document and applies it under config.Directory.
// It returns the per-file outcomes of the batch.
func Apply(content string, config Config) (*BatchResult, error) {
	cliCfg := &cli.Config{
		Directory:  config.Directory,
		Extensions: config.Extensions,
	}

	app, err := New(cliCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize xtf app: %w", err)
	}

	return app.ApplyDocument(content)
}
