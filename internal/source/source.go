package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// Provider retrieves the raw change-document text.
type Provider struct {
	files []string
}

// New creates a Provider. files are read ahead of stdin and the clipboard.
func New(files []string) *Provider {
	return &Provider{files: files}
}

// GetContent reads the given files if any, stdin when piped, or the
// clipboard as a last resort.
func (p *Provider) GetContent() (string, error) {
	if len(p.files) > 0 {
		var b strings.Builder
		for _, f := range p.files {
			data, err := os.ReadFile(f)
			if err != nil {
				return "", fmt.Errorf("failed to read %s: %w", f, err)
			}
			b.Write(data)
			b.WriteByte('\n')
		}
		return b.String(), nil
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, nil
}
