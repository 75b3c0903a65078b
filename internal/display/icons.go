package display

import (
	"os"
	"strings"
)

// Icon represents a visual icon with Unicode and ASCII fallbacks
type Icon struct {
	Unicode string
	ASCII   string
}

var icons = map[string]Icon{
	"success": {Unicode: "✓", ASCII: "[OK]"},
	"failure": {Unicode: "✗", ASCII: "[FAIL]"},
	"warning": {Unicode: "⚠", ASCII: "[WARN]"},
	"info":    {Unicode: "ℹ", ASCII: "[INFO]"},
}

// IconSystem renders icons, falling back to ASCII where Unicode is unsafe
type IconSystem struct {
	unicode bool
}

// NewIconSystem creates an icon system. Unicode is used only when enabled
// and the locale allows it.
func NewIconSystem(enabled bool) *IconSystem {
	return &IconSystem{unicode: enabled && detectUnicodeSupport()}
}

// detectUnicodeSupport checks the environment for a Unicode capable locale
func detectUnicodeSupport() bool {
	if os.Getenv("FORCE_UNICODE") != "" {
		return true
	}
	if os.Getenv("NO_UNICODE") != "" {
		return false
	}
	if os.Getenv("LANG") == "C" || os.Getenv("LC_ALL") == "C" {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != "vt100" && !strings.HasPrefix(term, "linux")
}

// Render returns the icon for name, or an empty string for unknown names
func (is *IconSystem) Render(name string) string {
	icon, ok := icons[name]
	if !ok {
		return ""
	}
	if is.unicode {
		return icon.Unicode
	}
	return icon.ASCII
}
