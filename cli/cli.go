package cli

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	Directory   string
	Extensions  []string
	DryRun      bool
	Undo        bool
	Redo        bool
	NoAnimation bool
	Files       []string
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	pflag.StringVarP(&cfg.Directory, "directory", "C", "", "Target project directory (default: $XTF_PROJECT_DIRECTORY).")
	pflag.StringSliceVarP(&cfg.Extensions, "extension", "e", []string{}, "Only apply changes whose path has one of these extensions (e.g. 'py', 'js').")
	pflag.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Parse and report the planned changes without touching any file.")
	pflag.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable the spinner and render plain output.")

	// Mutually exclusive history group
	pflag.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last operation.")
	pflag.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone operation.")

	pflag.Usage = func() {
		fmt.Println("Usage: xtf [flags] [file ...]")
		fmt.Println("\nParse a <code_changes> document from files, stdin (pipe) or the clipboard and apply it to a project directory.")
		fmt.Println("\nExample: pbpaste | xtf -C ~/src/project")
		fmt.Println("\nFlags:")
		pflag.PrintDefaults()
	}

	pflag.Parse()
	cfg.Files = pflag.Args()

	// Validate mutually exclusive flags
	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}

	// Normalize extensions
	for i, ext := range cfg.Extensions {
		if len(ext) > 0 && ext[0] != '.' {
			cfg.Extensions[i] = "." + ext
		}
	}

	return cfg, nil
}
