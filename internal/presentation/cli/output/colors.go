package output

import (
	"os"

	"github.com/fatih/color"
)

// Style is a set of terminal attributes applied together.
type Style []color.Attribute

// Styles used across the CLI.
var (
	StyleSuccess = Style{color.FgGreen}
	StyleError   = Style{color.FgRed}
	StyleWarning = Style{color.FgYellow}
	StyleInfo    = Style{color.FgBlue}
	StyleAccent  = Style{color.FgCyan, color.Bold}
	StyleBold    = Style{color.Bold}
	StyleMuted   = Style{color.Faint}
)

// Sprint applies the style to text. When enabled is false the text is
// returned unchanged regardless of global color detection.
func (s Style) Sprint(text string, enabled bool) string {
	c := color.New(s...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

// colorsEnabled caches the result of color support detection.
var colorsEnabled *bool

// IsColorSupported determines if color output should be enabled.
// It checks for NO_COLOR environment variable and terminal capability.
func IsColorSupported() bool {
	if colorsEnabled != nil {
		return *colorsEnabled
	}

	enabled := detectColorSupport()
	colorsEnabled = &enabled
	return enabled
}

// detectColorSupport checks environment variables and terminal capabilities.
func detectColorSupport() bool {
	// See https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	if _, exists := os.LookupEnv("FORCE_COLOR"); exists {
		return true
	}

	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}

	return !color.NoColor
}

// ResetColorDetection clears the cached color detection result.
func ResetColorDetection() {
	colorsEnabled = nil
}
