package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/sokinpui/xtf/model"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func Header(format string, a ...interface{}) {
	headerColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	infoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	successColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	warningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	errorColor.Fprintf(os.Stderr, format+"\n", a...)
}

// PrintSummary renders a run summary to stdout, one section per bucket. Used
// by the plain (non-TUI) output path.
func PrintSummary(s model.Summary) {
	if s.Message != "" {
		Header(s.Message)
	}

	section := func(c *color.Color, label string, paths []string) {
		if len(paths) == 0 {
			return
		}
		c.Printf("%s %d file(s):\n", label, len(paths))
		for _, p := range paths {
			fmt.Printf("  - %s\n", p)
		}
	}

	section(successColor, "Created", s.Created)
	section(successColor, "Modified", s.Modified)
	section(successColor, "Deleted", s.Deleted)
	section(errorColor, "Failed", s.Failed)
}
