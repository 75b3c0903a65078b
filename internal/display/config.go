package display

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// OutputFormat selects how reports are rendered
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates an output format name. An empty name means text.
func ParseFormat(name string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format '%s', must be one of: text, json, yaml", name)
	}
}

// Config holds configuration for visual display options
type Config struct {
	ColorEnabled bool
	UseIcons     bool
	Format       string
	Writer       io.Writer
}

// DefaultConfig returns the configuration used when no flags are given
func DefaultConfig() Config {
	return Config{
		ColorEnabled: true,
		UseIcons:     true,
		Format:       string(FormatText),
		Writer:       os.Stdout,
	}
}
