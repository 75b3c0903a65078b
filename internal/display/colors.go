package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Color names the terminal colors used by reports
type Color int

const (
	ColorReset Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorCyan
	ColorBold
)

// ColorSystem handles color application and terminal detection
type ColorSystem struct {
	enabled  bool
	colorMap map[Color]*color.Color
}

// NewColorSystem creates a color system for out. Colors are only emitted
// when enabled and out is a color-capable terminal.
func NewColorSystem(enabled bool, out io.Writer) *ColorSystem {
	cs := &ColorSystem{
		enabled: enabled && detectColorSupport(out),
		colorMap: map[Color]*color.Color{
			ColorReset:  color.New(color.Reset),
			ColorRed:    color.New(color.FgHiRed),
			ColorGreen:  color.New(color.FgHiGreen),
			ColorYellow: color.New(color.FgHiYellow),
			ColorCyan:   color.New(color.FgCyan),
			ColorBold:   color.New(color.Bold),
		},
	}

	// The global color.NoColor reflects stdout, which may differ from out.
	if cs.enabled {
		for _, c := range cs.colorMap {
			c.EnableColor()
		}
	}
	return cs
}

// detectColorSupport checks if the terminal behind out supports colors
func detectColorSupport(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}

	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}

	// NO_COLOR, TERM=dumb and friends
	if termenv.EnvNoColor() {
		return false
	}
	return termenv.NewOutput(f).EnvColorProfile() != termenv.Ascii
}

// Colorize applies color to text if color is supported
func (cs *ColorSystem) Colorize(text string, clr Color) string {
	if !cs.enabled {
		return text
	}
	if c, exists := cs.colorMap[clr]; exists {
		return c.Sprint(text)
	}
	return text
}

// Sprintf formats text with color using format string
func (cs *ColorSystem) Sprintf(clr Color, format string, args ...interface{}) string {
	return cs.Colorize(fmt.Sprintf(format, args...), clr)
}

// IsColorSupported returns whether colors are emitted
func (cs *ColorSystem) IsColorSupported() bool {
	return cs.enabled
}
